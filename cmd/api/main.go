package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/transcriber/internal/archive"
	"github.com/suPer8Hu/transcriber/internal/config"
	"github.com/suPer8Hu/transcriber/internal/db"
	"github.com/suPer8Hu/transcriber/internal/engine"
	"github.com/suPer8Hu/transcriber/internal/events"
	"github.com/suPer8Hu/transcriber/internal/httpapi"
	"github.com/suPer8Hu/transcriber/internal/httpapi/handlers"
	"github.com/suPer8Hu/transcriber/internal/jobs"
	"github.com/suPer8Hu/transcriber/internal/store/rabbitmq"
	"github.com/suPer8Hu/transcriber/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create dir %s: %v", dir, err)
		}
	}

	// Backend registry (route by job.Engine + job.Model)
	reg := engine.NewRegistry()
	reg.Register(engine.NameAutosub, func(ctx context.Context, model string) (engine.Backend, error) {
		_ = ctx
		return engine.NewAutosub(cfg.AutosubPath), nil
	})
	reg.Register(engine.NameWhisper, func(ctx context.Context, model string) (engine.Backend, error) {
		_ = ctx
		if model == "" {
			model = cfg.DefaultModel
		}
		return engine.NewWhisper(cfg.WhisperBaseURL, model), nil
	})
	if !reg.Has(cfg.DefaultEngine) {
		log.Fatalf("unsupported DEFAULT_ENGINE=%q", cfg.DefaultEngine)
	}

	notifiers := events.Multi{events.Logging{}}
	var closers []func() error

	var history *archive.Repo
	if cfg.DBDSN != "" {
		gdb := db.Connect(cfg.DBDSN)
		history = archive.NewRepo(gdb)
		if err := history.Migrate(context.Background()); err != nil {
			log.Fatalf("archive migrate: %v", err)
		}
		notifiers = append(notifiers, archive.NewRecorder(history))
	}

	if cfg.Notifies("redis") {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rds.Ping(pingCtx); err != nil {
			log.Printf("[Main] redis ping failed addr=%s err=%v", cfg.RedisAddr, err)
		}
		cancel()
		notifiers = append(notifiers, rds)
		closers = append(closers, rds.Close)
	}

	if cfg.Notifies("rabbitmq") {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit publisher: %v", err)
		}
		// the archive worker only cares about finished jobs
		notifiers = append(notifiers, events.TerminalOnly{Next: pub})
		closers = append(closers, pub.Close)
	}

	store := jobs.NewStore()
	dispatcher := jobs.NewDispatcher(store, reg, jobs.DispatcherConfig{
		OutputDir:     cfg.OutputDir,
		MaxConcurrent: cfg.MaxConcurrentJobs,
		Notifier:      notifiers,
	})
	sweeper := jobs.NewSweeper(store, cfg.RetentionMaxAge, cfg.UploadDir, cfg.OutputDir)

	stopSweeper := func() {}
	if cfg.CleanupSchedule != "" {
		stop, err := sweeper.Start(cfg.CleanupSchedule)
		if err != nil {
			log.Fatalf("sweeper: %v", err)
		}
		stopSweeper = stop
	}

	svc := jobs.NewService(store, reg, dispatcher, sweeper)
	r := httpapi.NewRouter(handlers.NewHandler(cfg, svc, history))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening addr=%s engines=%v default=%s", cfg.HTTPAddr, reg.Names(), cfg.DefaultEngine)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	stopSweeper()

	// running backends are not interrupted; give them until the deadline
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("shutdown deadline reached with jobs still running")
	}

	for _, c := range closers {
		if err := c(); err != nil {
			log.Printf("close: %v", err)
		}
	}
	log.Println("server exited properly")
}
