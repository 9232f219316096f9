package redisstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/transcriber/internal/events"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)

	st := NewWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}), "transcribe:jobs")
	t.Cleanup(func() { _ = st.Close() })
	return st, s
}

func TestNotify_StoresLatestStatusWithTTL(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	if err := st.Notify(ctx, events.Event{JobID: "01J", Status: "processing", Progress: 10}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := st.Notify(ctx, events.Event{JobID: "01J", Status: "completed", Progress: 100}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	got, err := st.LatestStatus(ctx, "01J")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Status != "completed" || got.Progress != 100 {
		t.Fatalf("latest = %+v, want completed/100", got)
	}
	if ttl := mr.TTL(statusKey("01J")); ttl != statusTTL {
		t.Fatalf("ttl = %v, want %v", ttl, statusTTL)
	}
}

func TestLatestStatus_Missing(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.LatestStatus(context.Background(), "nope"); !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestNotify_Publishes(t *testing.T) {
	st, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := st.rdb.Subscribe(ctx, "transcribe:jobs")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := st.Notify(ctx, events.Event{JobID: "01K", Status: "failed", Error: "boom"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Channel != "transcribe:jobs" {
		t.Fatalf("channel = %q", msg.Channel)
	}
	if want := `"job_id":"01K"`; !strings.Contains(msg.Payload, want) {
		t.Fatalf("payload %q missing %s", msg.Payload, want)
	}
}
