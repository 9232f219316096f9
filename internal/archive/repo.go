package archive

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suPer8Hu/transcriber/internal/events"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Record{})
}

// Upsert inserts rec or overwrites the existing row with the same id.
func (r *Repo) Upsert(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "error", "cancelled", "subtitle_path", "text_path", "finished_at", "updated_at"}),
		}).
		Create(rec).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecent returns finished jobs newest first.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var recs []Record
	if err := r.db.WithContext(ctx).
		Order("finished_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// FromEvent builds an archive row from a terminal job event.
func FromEvent(e events.Event) *Record {
	rec := &Record{
		ID:         e.JobID,
		Engine:     e.Engine,
		Language:   e.Language,
		Model:      e.Model,
		SourcePath: e.SourcePath,
		Status:     e.Status,
		Cancelled:  e.Cancelled,
		StartedAt:  e.CreatedAt,
		FinishedAt: e.FinishedAt,
	}
	if e.Error != "" {
		msg := e.Error
		rec.Error = &msg
	}
	rec.SubtitlePath = e.Outputs["subtitle"]
	rec.TextPath = e.Outputs["text"]
	return rec
}

// Recorder archives terminal job events. It satisfies events.Notifier.
type Recorder struct {
	repo *Repo
}

func NewRecorder(repo *Repo) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Notify(ctx context.Context, e events.Event) error {
	if !e.Terminal() {
		return nil
	}
	return r.repo.Upsert(ctx, FromEvent(e))
}
