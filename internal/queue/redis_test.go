package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Test helper: get Redis URL from env or default
func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379/0"
}

// Test helper: check if Redis is available
func isRedisAvailable() bool {
	opts, err := redis.ParseURL(getRedisURL())
	if err != nil {
		return false
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx).Err() == nil
}

// newTestRedisQueue creates a queue on a unique stream prefix and removes its keys afterwards
func newTestRedisQueue(t *testing.T, cfg RedisConfig) *RedisQueue {
	t.Helper()
	if !isRedisAvailable() {
		t.Skip("Redis not available")
	}

	cfg.URL = getRedisURL()
	cfg.Stream = fmt.Sprintf("trendscope-test-%d", time.Now().UnixNano())

	q, err := NewRedisQueue(cfg)
	if err != nil {
		t.Fatalf("Failed to create Redis queue: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := q.client.Keys(context.Background(), cfg.Stream+":*").Result()
		if len(keys) > 0 {
			q.client.Del(context.Background(), keys...)
		}
		_ = q.Close()
	})
	return q
}

func TestNewRedisQueue_Defaults(t *testing.T) {
	q := newTestRedisQueue(t, RedisConfig{})

	if q.config.Group != "trendscope-group" {
		t.Errorf("expected default group, got %q", q.config.Group)
	}
	if q.config.Consumer == "" {
		t.Error("expected consumer name to default to hostname")
	}
	if q.config.MaxDeliver != DefaultMaxDeliver {
		t.Errorf("expected MaxDeliver %d, got %d", DefaultMaxDeliver, q.config.MaxDeliver)
	}
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := NewRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1/0"})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	q := newTestRedisQueue(t, RedisConfig{})

	received := make(chan *Message, 1)
	err := q.Subscribe("jobs", func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := q.Publish(context.Background(), "jobs", []byte("job-1")); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Data) != "job-1" || msg.Attempt != 1 || msg.Subject != "jobs" {
			t.Errorf("unexpected message %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRedisQueue_ClaimsUnacknowledgedEntries(t *testing.T) {
	q := newTestRedisQueue(t, RedisConfig{AckWait: 200 * time.Millisecond})

	attempts := make(chan int, 10)
	err := q.Subscribe("jobs", func(ctx context.Context, msg *Message) error {
		attempts <- msg.Attempt
		if msg.Attempt == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	_ = q.Publish(context.Background(), "jobs", []byte("job"))

	for want := 1; want <= 2; want++ {
		select {
		case got := <-attempts:
			if got != want {
				t.Errorf("expected attempt %d, got %d", want, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for attempt %d", want)
		}
	}
}

func TestRedisQueue_SubscribeErrors(t *testing.T) {
	q := newTestRedisQueue(t, RedisConfig{})

	handler := func(ctx context.Context, msg *Message) error { return nil }
	if err := q.Subscribe("jobs", handler); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := q.Subscribe("jobs", handler); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}
	if err := q.Unsubscribe("other"); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("expected ErrNotSubscribed, got %v", err)
	}
}
