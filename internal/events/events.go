// Package events carries job lifecycle notifications to external sinks.
package events

import (
	"context"
	"errors"
	"log"
	"time"
)

// Event is a snapshot of a job emitted whenever its status changes.
type Event struct {
	JobID      string            `json:"job_id"`
	Status     string            `json:"status"`
	Engine     string            `json:"engine"`
	Language   string            `json:"language"`
	Model      string            `json:"model,omitempty"`
	SourcePath string            `json:"filename"`
	Progress   int               `json:"progress"`
	Error      string            `json:"error_message,omitempty"`
	Cancelled  bool              `json:"cancelled,omitempty"`
	Outputs    map[string]string `json:"output_files,omitempty"`
	CreatedAt  time.Time         `json:"start_time"`
	FinishedAt *time.Time        `json:"end_time,omitempty"`
	EmittedAt  time.Time         `json:"emitted_at"`
}

// Terminal reports whether the event describes a finished job.
func (e Event) Terminal() bool {
	return e.Status == "completed" || e.Status == "failed"
}

// Notifier delivers events. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TerminalOnly forwards only completed/failed events to Next.
type TerminalOnly struct {
	Next Notifier
}

func (t TerminalOnly) Notify(ctx context.Context, e Event) error {
	if !e.Terminal() {
		return nil
	}
	return t.Next.Notify(ctx, e)
}

// Logging writes a line per event to the standard logger.
type Logging struct{}

func (Logging) Notify(_ context.Context, e Event) error {
	if e.Error != "" {
		log.Printf("[Events] job=%s status=%s engine=%s err=%q", e.JobID, e.Status, e.Engine, e.Error)
		return nil
	}
	log.Printf("[Events] job=%s status=%s engine=%s progress=%d", e.JobID, e.Status, e.Engine, e.Progress)
	return nil
}
