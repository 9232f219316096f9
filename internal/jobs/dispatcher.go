package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/suPer8Hu/transcriber/internal/engine"
	"github.com/suPer8Hu/transcriber/internal/events"
)

const cancelledMessage = "Transcription was cancelled"

var (
	errSubtitleMissing = errors.New("SRT file was not created")
	errTextMissing     = errors.New("TXT file was not created")
)

type DispatcherConfig struct {
	OutputDir string
	// MaxConcurrent bounds how many backends run at once. Zero means one
	// goroutine per job with no limit.
	MaxConcurrent int
	Notifier      events.Notifier
}

// Dispatcher runs backends for pending jobs off the caller's goroutine and
// folds each outcome back into the store exactly once.
type Dispatcher struct {
	store     *Store
	registry  *engine.Registry
	outputDir string
	notifier  events.Notifier
	sem       chan struct{}
	wg        sync.WaitGroup

	stat func(name string) (os.FileInfo, error)
}

func NewDispatcher(store *Store, registry *engine.Registry, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		registry:  registry,
		outputDir: cfg.OutputDir,
		notifier:  cfg.Notifier,
		stat:      os.Stat,
	}
	if d.notifier == nil {
		d.notifier = events.Nop{}
	}
	if cfg.MaxConcurrent > 0 {
		d.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return d
}

// Dispatch starts the job in the background and returns immediately.
func (d *Dispatcher) Dispatch(id string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.sem != nil {
			d.sem <- struct{}{}
			defer func() { <-d.sem }()
		}
		d.Run(context.Background(), id)
	}()
}

// Wait blocks until every dispatched job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Run executes one job synchronously. It never panics and never leaves the
// job in processing.
func (d *Dispatcher) Run(ctx context.Context, id string) {
	start := time.Now()

	if err := d.store.MarkProcessing(id); err != nil {
		log.Printf("[Dispatcher] job=%s not started: %v", id, err)
		return
	}
	job, err := d.store.Get(id)
	if err != nil {
		log.Printf("[Dispatcher] job=%s deleted before start", id)
		return
	}
	d.emit(id)

	res, runErr := d.execute(ctx, job)
	if runErr == nil {
		runErr = d.verifyOutputs(res)
	}

	if runErr != nil {
		cancelled := errors.Is(runErr, engine.ErrCancelled)
		msg := failureMessage(job.Engine, runErr)
		err = d.store.MarkFailed(id, msg, cancelled)
		if err == nil {
			log.Printf("[Dispatcher] job=%s engine=%s failed cost=%s err=%v", id, job.Engine, time.Since(start), runErr)
		}
	} else {
		err = d.store.MarkCompleted(id, map[ArtifactKind]string{
			ArtifactSubtitle: res.SubtitlePath,
			ArtifactText:     res.TextPath,
		})
		if err == nil {
			log.Printf("[Dispatcher] job=%s engine=%s completed cost=%s", id, job.Engine, time.Since(start))
		}
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("[Dispatcher] job=%s deleted while running, result dropped", id)
			return
		}
		log.Printf("[Dispatcher] job=%s finalize failed err=%v", id, err)
		return
	}
	d.emit(id)
}

// execute resolves the backend and runs it, converting panics into errors.
func (d *Dispatcher) execute(ctx context.Context, job Job) (res engine.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] job=%s backend panic: %v\n%s", job.ID, r, debug.Stack())
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	backend, err := d.registry.Get(ctx, job.Engine, job.Model)
	if err != nil {
		return engine.Result{}, err
	}

	return backend.Transcribe(ctx, engine.Request{
		SourcePath: job.SourcePath,
		Language:   job.Language,
		Model:      job.Model,
		OutputDir:  d.outputDir,
	}, d.sinkFor(job.ID))
}

func (d *Dispatcher) verifyOutputs(res engine.Result) error {
	if res.SubtitlePath == "" {
		return errSubtitleMissing
	}
	if _, err := d.stat(res.SubtitlePath); err != nil {
		return errSubtitleMissing
	}
	if res.TextPath == "" {
		return errTextMissing
	}
	if _, err := d.stat(res.TextPath); err != nil {
		return errTextMissing
	}
	return nil
}

// sinkFor binds a progress sink to one job. Reports for a deleted job are dropped.
func (d *Dispatcher) sinkFor(id string) engine.ProgressSink {
	return engine.ProgressFunc(func(percent int, phase string) {
		if err := d.store.SetProgress(id, percent, phase); err != nil {
			return
		}
		log.Printf("[Dispatcher] job=%s %s - %d%%", id, phase, percent)
	})
}

func (d *Dispatcher) emit(id string) {
	job, err := d.store.Get(id)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.notifier.Notify(ctx, EventFor(job)); err != nil {
		log.Printf("[Dispatcher] job=%s notify failed err=%v", id, err)
	}
}

func failureMessage(engineName string, err error) string {
	switch {
	case errors.Is(err, engine.ErrCancelled):
		return cancelledMessage
	case errors.Is(err, engine.ErrUnknownBackend):
		return fmt.Sprintf("Unknown transcription engine: %s", engineName)
	case errors.Is(err, errSubtitleMissing), errors.Is(err, errTextMissing):
		return err.Error()
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	if engineName == "" {
		return msg
	}
	return fmt.Sprintf("%s transcription failed: %s", engineName, msg)
}

// EventFor converts a job snapshot into a lifecycle event.
func EventFor(j Job) events.Event {
	e := events.Event{
		JobID:      j.ID,
		Status:     string(j.Status),
		Engine:     j.Engine,
		Language:   j.Language,
		Model:      j.Model,
		SourcePath: j.SourcePath,
		Progress:   j.Progress,
		Cancelled:  j.Cancelled,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
		EmittedAt:  time.Now().UTC(),
	}
	if j.Error != nil {
		e.Error = *j.Error
	}
	if len(j.Outputs) > 0 {
		e.Outputs = make(map[string]string, len(j.Outputs))
		for k, v := range j.Outputs {
			e.Outputs[string(k)] = v
		}
	}
	return e
}
