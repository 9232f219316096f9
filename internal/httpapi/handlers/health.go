package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/suPer8Hu/transcriber/internal/common"
)

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.Cfg.AppVersion,
		"engines":   h.Jobs.Engines(),
	})
}

// ListHistory lists archived jobs, newest first. ?limit= caps the page (default 100).
func (h *Handler) ListHistory(c *gin.Context) {
	if h.History == nil {
		common.Fail(c, http.StatusNotFound, "Endpoint not found")
		return
	}
	recs, err := h.History.ListRecent(c.Request.Context(), cast.ToInt(c.Query("limit")))
	if err != nil {
		log.Printf("[Handler] History err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "Failed to load history")
		return
	}
	common.OK(c, http.StatusOK, gin.H{
		"jobs":  recs,
		"total": len(recs),
	})
}
