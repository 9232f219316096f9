package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/transcriber/internal/events"
)

const statusTTL = 24 * time.Hour

// Store publishes job events on a pub/sub channel and keeps the latest
// event per job under transcribe:job:<id>.
type Store struct {
	rdb     *redis.Client
	channel string
	ttl     time.Duration
}

func New(addr, password string, db int, channel string) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(rdb, channel)
}

func NewWithClient(rdb *redis.Client, channel string) *Store {
	return &Store{rdb: rdb, channel: channel, ttl: statusTTL}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func statusKey(jobID string) string {
	return "transcribe:job:" + jobID
}

// Notify satisfies events.Notifier.
func (s *Store) Notify(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, statusKey(e.JobID), body, s.ttl)
	pipe.Publish(ctx, s.channel, body)
	_, err = pipe.Exec(ctx)
	return err
}

// LatestStatus returns the last event stored for jobID; redis.Nil when none.
func (s *Store) LatestStatus(ctx context.Context, jobID string) (events.Event, error) {
	var e events.Event
	raw, err := s.rdb.Get(ctx, statusKey(jobID)).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(raw, &e)
	return e, err
}
