package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/transcriber/internal/archive"
	"github.com/suPer8Hu/transcriber/internal/config"
	"github.com/suPer8Hu/transcriber/internal/db"
	"github.com/suPer8Hu/transcriber/internal/store/rabbitmq"
)

const (
	maxAttempts = 3
	retryDelay  = 10 * time.Second
)

// The worker drains job events published by the api and archives finished jobs.
func main() {
	cfg := config.Load()
	if cfg.DBDSN == "" {
		log.Fatalf("DB_DSN is required for the archive worker")
	}

	gdb := db.Connect(cfg.DBDSN)
	repo := archive.NewRepo(gdb)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("archive migrate: %v", err)
	}
	recorder := archive.NewRecorder(repo)

	// declares main/retry/dlq and is reused for retries
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// strict concurrency control
	concurrency := cfg.WorkerConcurrency

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				handleDelivery(ctx, workerID, recorder, pub, d)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				close(deliveries)
				wg.Wait()
				return
			}
			deliveries <- d
		}
	}
}

func handleDelivery(ctx context.Context, workerID int, recorder *archive.Recorder, pub *rabbitmq.Publisher, d amqp.Delivery) {
	start := time.Now()
	err := recorder.HandleMessage(ctx, d.Body)
	if err == nil {
		if err := d.Ack(false); err != nil {
			log.Printf("worker=%d ack failed err=%v", workerID, err)
		}
		if cost := time.Since(start); cost > 500*time.Millisecond {
			log.Printf("archive_timing worker=%d cost=%s", workerID, cost)
		}
		return
	}

	if errors.Is(err, archive.ErrBadMessage) {
		log.Printf("worker=%d bad message: %v", workerID, err)
		_ = d.Nack(false, false) // -> dlq
		return
	}

	attempt := rabbitmq.Attempt(d.Headers) + 1
	if attempt >= maxAttempts {
		log.Printf("worker=%d archive failed attempt=%d cost=%s err=%v, dead-lettering", workerID, attempt, time.Since(start), err)
		_ = d.Nack(false, false)
		return
	}

	if rerr := pub.Retry(ctx, d.Body, attempt, retryDelay*time.Duration(attempt)); rerr != nil {
		log.Printf("worker=%d retry publish failed err=%v", workerID, rerr)
		_ = d.Nack(false, true)
		return
	}
	log.Printf("worker=%d archive failed attempt=%d cost=%s err=%v, retrying", workerID, attempt, time.Since(start), err)
	_ = d.Ack(false)
}
