package handlers

import (
	"github.com/suPer8Hu/transcriber/internal/archive"
	"github.com/suPer8Hu/transcriber/internal/config"
	"github.com/suPer8Hu/transcriber/internal/jobs"
)

type Handler struct {
	Cfg  config.Config
	Jobs *jobs.Service

	// History is nil when no archive database is configured.
	History *archive.Repo
}

func NewHandler(cfg config.Config, svc *jobs.Service, history *archive.Repo) *Handler {
	return &Handler{Cfg: cfg, Jobs: svc, History: history}
}
