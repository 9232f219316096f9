package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/suPer8Hu/transcriber/internal/engine"
)

var ErrUnknownEngine = errors.New("unknown engine")

// SubmitRequest describes an upload that has already been stored on disk.
type SubmitRequest struct {
	SourcePath   string
	OriginalName string
	MediaType    string
	Engine       string
	Language     string
	Model        string
}

// Service ties the store, dispatcher and sweeper together for the HTTP layer.
type Service struct {
	store      *Store
	registry   *engine.Registry
	dispatcher *Dispatcher
	sweeper    *Sweeper

	remove func(name string) error
}

func NewService(store *Store, registry *engine.Registry, dispatcher *Dispatcher, sweeper *Sweeper) *Service {
	return &Service{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		remove:     os.Remove,
	}
}

// KnownEngine reports whether a backend is registered under name.
func (s *Service) KnownEngine(name string) bool {
	return s.registry.Has(name)
}

// Engines lists the registered backend names.
func (s *Service) Engines() []string {
	return s.registry.Names()
}

// Submit creates a pending job and hands it to the dispatcher. A request
// whose context is already done creates nothing.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if !s.registry.Has(req.Engine) {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownEngine, req.Engine)
	}

	job, err := s.store.Create(req.SourcePath, req.Engine, req.Language,
		WithModel(req.Model),
		WithOriginalName(req.OriginalName),
		WithMediaType(req.MediaType),
	)
	if err != nil {
		return Job{}, err
	}

	s.dispatcher.Dispatch(job.ID)
	return job, nil
}

func (s *Service) Get(id string) (Job, error) {
	return s.store.Get(id)
}

func (s *Service) List() []Job {
	return s.store.List()
}

// Delete removes the job first, so no later lookup can see dangling paths,
// then removes its files. File errors are logged and skipped.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job, ok := s.store.Delete(id)
	if !ok {
		return ErrNotFound
	}

	for _, path := range job.Files() {
		if err := s.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[Service] delete job=%s file=%s err=%v", id, path, err)
		}
	}
	return nil
}

// Cleanup runs one retention sweep.
func (s *Service) Cleanup(ctx context.Context) (SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}
