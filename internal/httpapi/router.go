package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/transcriber/internal/common"
	"github.com/suPer8Hu/transcriber/internal/httpapi/handlers"
	"github.com/suPer8Hu/transcriber/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "Endpoint not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.GET("/health", h.Health)

	r.POST("/transcribe", h.Transcribe)
	r.GET("/status/:job_id", h.Status)
	r.GET("/download/:job_id/:kind", h.Download)

	r.GET("/jobs", h.ListJobs)
	r.DELETE("/jobs/:job_id", h.DeleteJob)
	r.POST("/cleanup", h.Cleanup)

	// archive
	if h.History != nil {
		r.GET("/history", h.ListHistory)
	}
	return r
}
