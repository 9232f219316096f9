package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suPer8Hu/transcriber/internal/common"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

type entry struct {
	mu  sync.Mutex
	seq uint64
	job Job
}

// Store is the in-memory registry of jobs. The key space is guarded by mu;
// each record carries its own lock for field updates. Updates hold mu for
// reading, so a Delete can never interleave with a write to the same record.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	nextSeq uint64

	now   func() time.Time
	newID func() (string, error)
}

func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*entry),
		now:   time.Now,
		newID: common.NewULID,
	}
}

// CreateOption sets optional fields on a new job.
type CreateOption func(*Job)

func WithModel(model string) CreateOption {
	return func(j *Job) { j.Model = model }
}

func WithOriginalName(name string) CreateOption {
	return func(j *Job) { j.OriginalName = name }
}

func WithMediaType(mediaType string) CreateOption {
	return func(j *Job) { j.MediaType = mediaType }
}

// Create registers a new pending job and returns its snapshot.
func (s *Store) Create(sourcePath, engine, language string, opts ...CreateOption) (Job, error) {
	id, err := s.newID()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}

	j := Job{
		ID:         id,
		SourcePath: sourcePath,
		Engine:     engine,
		Language:   language,
		Status:     StatusPending,
		CreatedAt:  s.now(),
		Outputs:    map[ArtifactKind]string{},
	}
	for _, opt := range opts {
		opt(&j)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[id]; dup {
		return Job{}, fmt.Errorf("duplicate job id %s", id)
	}
	s.nextSeq++
	s.jobs[id] = &entry{seq: s.nextSeq, job: j}
	return j.clone(), nil
}

func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.clone(), nil
}

// List returns snapshots of all jobs in insertion order.
func (s *Store) List() []Job {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(a, b int) bool { return entries[a].seq < entries[b].seq })

	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.job.clone())
		e.mu.Unlock()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Update applies fn to the live record atomically. If fn returns an error
// the record is left untouched.
func (s *Store) Update(id string, fn func(*Job) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.job.clone()
	if err := fn(&draft); err != nil {
		return err
	}
	draft.ID = e.job.ID
	e.job = draft
	return nil
}

// Delete removes a job and returns its final snapshot.
func (s *Store) Delete(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	delete(s.jobs, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.clone(), true
}

// MarkProcessing moves a pending job to processing.
func (s *Store) MarkProcessing(id string) error {
	return s.Update(id, func(j *Job) error {
		if !canTransition(j.Status, StatusProcessing) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusProcessing)
		}
		j.Status = StatusProcessing
		j.Progress = 0
		return nil
	})
}

// SetProgress records a progress report for a processing job. Reports for
// jobs in any other status, and reports lower than the current value, are ignored.
func (s *Store) SetProgress(id string, percent int, phase string) error {
	percent = min(max(percent, 0), 100)
	return s.Update(id, func(j *Job) error {
		if j.Status != StatusProcessing {
			return nil
		}
		if percent > j.Progress {
			j.Progress = percent
		}
		if phase != "" {
			j.Phase = phase
		}
		return nil
	})
}

// MarkCompleted finishes a processing job with its output files.
func (s *Store) MarkCompleted(id string, outputs map[ArtifactKind]string) error {
	if len(outputs) == 0 {
		return fmt.Errorf("%w: completed without outputs", ErrInvalidTransition)
	}
	return s.Update(id, func(j *Job) error {
		if !canTransition(j.Status, StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusCompleted)
		}
		now := s.now()
		j.Status = StatusCompleted
		j.Progress = 100
		j.FinishedAt = &now
		j.Error = nil
		j.Outputs = make(map[ArtifactKind]string, len(outputs))
		for k, v := range outputs {
			j.Outputs[k] = v
		}
		return nil
	})
}

// MarkFailed finishes a processing job with an error message.
func (s *Store) MarkFailed(id string, msg string, cancelled bool) error {
	return s.Update(id, func(j *Job) error {
		if !canTransition(j.Status, StatusFailed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusFailed)
		}
		now := s.now()
		j.Status = StatusFailed
		j.FinishedAt = &now
		j.Error = &msg
		j.Cancelled = cancelled
		j.Outputs = map[ArtifactKind]string{}
		return nil
	})
}
