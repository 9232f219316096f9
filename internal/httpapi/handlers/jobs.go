package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/transcriber/internal/common"
	"github.com/suPer8Hu/transcriber/internal/jobs"
)

func removeQuiet(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Handler] remove file=%s err=%v", path, err)
		return err
	}
	return nil
}

func (h *Handler) Status(c *gin.Context) {
	job, err := h.Jobs.Get(c.Param("job_id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, "Job not found")
		return
	}
	common.OK(c, http.StatusOK, job)
}

// Download streams one generated artifact as an attachment.
func (h *Handler) Download(c *gin.Context) {
	job, err := h.Jobs.Get(c.Param("job_id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		common.Fail(c, http.StatusBadRequest, "Job not completed yet")
		return
	}

	format := strings.ToLower(c.Param("kind"))
	kind, ok := jobs.ArtifactForFormat(format)
	if !ok {
		common.Fail(c, http.StatusBadRequest, `Invalid file type. Use "srt" or "txt"`)
		return
	}

	path := job.Outputs[kind]
	if path == "" {
		common.Fail(c, http.StatusNotFound, "File not found")
		return
	}
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		common.Fail(c, http.StatusNotFound, "File not found")
		return
	}

	c.FileAttachment(path, downloadName(job, format))
}

// downloadName names the attachment after the client's original upload.
func downloadName(job jobs.Job, format string) string {
	name := job.OriginalName
	if name == "" {
		name = filepath.Base(job.SourcePath)
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
}

func (h *Handler) ListJobs(c *gin.Context) {
	list := h.Jobs.List()
	common.OK(c, http.StatusOK, gin.H{
		"jobs":  list,
		"total": len(list),
	})
}

func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.Jobs.Delete(c.Request.Context(), c.Param("job_id")); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("[Handler] DeleteJob job=%s err=%v", c.Param("job_id"), err)
		common.Fail(c, http.StatusInternalServerError, "Failed to delete job")
		return
	}
	common.OK(c, http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

func (h *Handler) Cleanup(c *gin.Context) {
	res, err := h.Jobs.Cleanup(c.Request.Context())
	if err != nil {
		log.Printf("[Handler] Cleanup err=%v", err)
		common.Fail(c, http.StatusInternalServerError, fmt.Sprintf("Cleanup failed: %v", err))
		return
	}
	common.OK(c, http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Cleanup completed. Removed %d files and %d jobs.", res.FilesRemoved, res.JobsRemoved),
		"files_removed": res.FilesRemoved,
		"jobs_removed":  res.JobsRemoved,
	})
}
