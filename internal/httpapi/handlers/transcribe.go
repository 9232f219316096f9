package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/suPer8Hu/transcriber/internal/common"
	"github.com/suPer8Hu/transcriber/internal/jobs"
	"github.com/suPer8Hu/transcriber/internal/media"
)

const multipartMemory = 32 << 20

func (h *Handler) tooLarge(c *gin.Context) {
	msg := fmt.Sprintf("File too large. Maximum size is %s.", humanize.IBytes(uint64(h.Cfg.MaxUploadBytes)))
	common.Fail(c, http.StatusRequestEntityTooLarge, msg)
}

func (h *Handler) invalidEngineMessage() string {
	names := lo.Map(h.Jobs.Engines(), func(n string, _ int) string { return `"` + n + `"` })
	return "Invalid engine. Use " + strings.Join(names, " or ")
}

// Transcribe stores the uploaded media and queues a job for it.
func (h *Handler) Transcribe(c *gin.Context) {
	if c.Request.ContentLength > h.Cfg.MaxUploadBytes {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Cfg.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.tooLarge(c)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			log.Printf("[Handler] Transcribe parse form err=%v", err)
		}
		common.Fail(c, http.StatusBadRequest, "No file provided")
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, "No file provided")
		return
	}
	if strings.TrimSpace(fh.Filename) == "" {
		common.Fail(c, http.StatusBadRequest, "No file selected")
		return
	}
	if !media.Allowed(fh.Filename) {
		common.Fail(c, http.StatusBadRequest, media.UnsupportedMessage())
		return
	}

	engineName := strings.ToLower(strings.TrimSpace(c.PostForm("engine")))
	if engineName == "" {
		engineName = h.Cfg.DefaultEngine
	}
	if !h.Jobs.KnownEngine(engineName) {
		common.Fail(c, http.StatusBadRequest, h.invalidEngineMessage())
		return
	}
	language := strings.TrimSpace(c.PostForm("language"))
	if language == "" {
		language = h.Cfg.DefaultLanguage
	}
	model := strings.TrimSpace(c.PostForm("model"))
	if model == "" {
		model = h.Cfg.DefaultModel
	}

	src, err := fh.Open()
	if err != nil {
		log.Printf("[Handler] Transcribe open upload err=%v", err)
		common.Fail(c, http.StatusBadRequest, "No file provided")
		return
	}
	defer src.Close()

	path, err := media.Save(h.Cfg.UploadDir, fh.Filename, src)
	if err != nil {
		log.Printf("[Handler] Transcribe save upload name=%q err=%v", fh.Filename, err)
		common.Fail(c, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	job, err := h.Jobs.Submit(c.Request.Context(), jobs.SubmitRequest{
		SourcePath:   path,
		OriginalName: fh.Filename,
		MediaType:    media.DetectType(path),
		Engine:       engineName,
		Language:     language,
		Model:        model,
	})
	if err != nil {
		_ = removeQuiet(path)
		if errors.Is(err, jobs.ErrUnknownEngine) {
			common.Fail(c, http.StatusBadRequest, h.invalidEngineMessage())
			return
		}
		log.Printf("[Handler] Transcribe submit err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "Failed to create job")
		return
	}

	common.OK(c, http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": fmt.Sprintf("Transcription job created. Use /status/%s to check progress.", job.ID),
	})
}
