package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultMaxAge is how long uploads, outputs and finished jobs are kept.
const DefaultMaxAge = 24 * time.Hour

type SweepResult struct {
	FilesRemoved int `json:"files_removed"`
	JobsRemoved  int `json:"jobs_removed"`
}

// Sweeper deletes expired files from the upload and output directories and
// expired finished jobs from the store. A negative MaxAge keeps everything.
type Sweeper struct {
	store  *Store
	dirs   []string
	MaxAge time.Duration

	now    func() time.Time
	remove func(name string) error
}

func NewSweeper(store *Store, maxAge time.Duration, dirs ...string) *Sweeper {
	return &Sweeper{
		store:  store,
		dirs:   dirs,
		MaxAge: maxAge,
		now:    time.Now,
		remove: os.Remove,
	}
}

// Sweep runs one pass. Failures on a single file or directory are logged and
// skipped; the job pass always runs. Directory errors are joined into err.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	var errs []error
	now := s.now()

	for _, dir := range s.dirs {
		n, err := s.sweepDir(ctx, dir, now)
		res.FilesRemoved += n
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			log.Printf("[Sweeper] skip dir=%s err=%v", dir, err)
			errs = append(errs, err)
		}
	}

	for _, j := range s.store.List() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !j.Status.Terminal() || j.FinishedAt == nil || !s.expired(*j.FinishedAt, now) {
			continue
		}
		if _, ok := s.store.Delete(j.ID); ok {
			res.JobsRemoved++
		}
	}

	return res, errors.Join(errs...)
}

func (s *Sweeper) sweepDir(ctx context.Context, dir string, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	removed := 0
	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if ent.IsDir() {
			continue
		}
		path := filepath.Join(dir, ent.Name())

		info, err := ent.Info()
		if err != nil {
			log.Printf("[Sweeper] stat %s err=%v", path, err)
			continue
		}
		if !s.expired(info.ModTime(), now) {
			continue
		}
		if err := s.remove(path); err != nil {
			log.Printf("[Sweeper] remove %s err=%v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Sweeper) expired(t, now time.Time) bool {
	if s.MaxAge < 0 {
		return false
	}
	return now.Sub(t) >= s.MaxAge
}

// Start runs Sweep on a cron schedule such as "@every 1h". The returned
// function stops the schedule and waits for a running pass to finish.
func (s *Sweeper) Start(spec string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		res, err := s.Sweep(context.Background())
		if err != nil {
			log.Printf("[Sweeper] scheduled sweep failed files=%d jobs=%d err=%v", res.FilesRemoved, res.JobsRemoved, err)
			return
		}
		log.Printf("[Sweeper] scheduled sweep files=%d jobs=%d cost=%s", res.FilesRemoved, res.JobsRemoved, time.Since(start))
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", spec, err)
	}
	c.Start()

	return func() { <-c.Stop().Done() }, nil
}
