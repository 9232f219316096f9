package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/suPer8Hu/transcriber/internal/engine"
)

func newTestService(t *testing.T) (*Service, *Dispatcher, string, string) {
	t.Helper()
	uploads, outputs := t.TempDir(), t.TempDir()
	store := NewStore()
	reg := engine.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (engine.Backend, error) {
		return &funcBackend{name: "fake", fn: writingBackend}, nil
	})
	d := NewDispatcher(store, reg, DispatcherConfig{OutputDir: outputs})
	sw := NewSweeper(store, DefaultMaxAge, uploads, outputs)
	return NewService(store, reg, d, sw), d, uploads, outputs
}

func TestServiceSubmit_UnknownEngineCreatesNothing(t *testing.T) {
	svc, _, uploads, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), SubmitRequest{SourcePath: filepath.Join(uploads, "a.wav"), Engine: "bogus"})
	if !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("err = %v, want ErrUnknownEngine", err)
	}
	if len(svc.List()) != 0 {
		t.Fatal("no job may be created for an unknown engine")
	}
}

func TestServiceSubmitDelete_RemovesRecordAndFiles(t *testing.T) {
	svc, d, uploads, _ := newTestService(t)
	src := filepath.Join(uploads, "abc_talk.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	job, err := svc.Submit(context.Background(), SubmitRequest{SourcePath: src, Engine: "fake", Language: "en", Model: "base"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	d.Wait()

	done, err := svc.Get(job.ID)
	if err != nil || done.Status != StatusCompleted {
		t.Fatalf("job = %+v err=%v", done, err)
	}

	if err := svc.Delete(context.Background(), job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, p := range done.Files() {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s should be removed, stat err=%v", p, err)
		}
	}
	if _, err := svc.Get(job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
	if err := svc.Delete(context.Background(), job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestServiceCleanup(t *testing.T) {
	svc, _, uploads, _ := newTestService(t)
	writeAged(t, filepath.Join(uploads, "a.wav"), 0)
	svc.sweeper.MaxAge = 0

	res, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.FilesRemoved != 1 {
		t.Fatalf("files removed = %d, want 1", res.FilesRemoved)
	}
}

func TestServiceSubmit_CancelledContextCreatesNothing(t *testing.T) {
	svc, _, uploads, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, SubmitRequest{SourcePath: filepath.Join(uploads, "a.wav"), Engine: "fake"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(svc.List()) != 0 {
		t.Fatal("no job may be created for a cancelled request")
	}
}
