package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL        string        // Redis URL (e.g., redis://localhost:6379)
	Password   string        // Optional password
	DB         int           // Database number (default: 0)
	Stream     string        // Stream prefix (default: "trendscope")
	Group      string        // Consumer group name (default: "trendscope-group")
	Consumer   string        // Consumer name (default: hostname)
	MaxDeliver int           // Delivery attempts per entry (default: 3)
	AckWait    time.Duration // Idle time before a pending entry is claimed again (default: 30s)
}

// RedisQueue implements Queue interface using Redis Streams consumer groups
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newRedisQueue creates a new Redis Streams queue instance
func newRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Plain host:port
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "trendscope"
	}
	if cfg.Group == "" {
		cfg.Group = "trendscope-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = DefaultMaxDeliver
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = DefaultAckWait
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

// Publish appends a message to the stream of subject
func (q *RedisQueue) Publish(ctx context.Context, subject string, data []byte) error {
	stream := q.streamName(subject)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", stream, err)
	}

	return nil
}

// Subscribe reads the stream of subject through the consumer group
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	stream := q.streamName(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.readStream(ctx, subject, stream, handler)
	}()

	q.subscriptions[subject] = cancel
	return nil
}

// readStream reads new entries and, between reads, reclaims entries whose
// consumer did not acknowledge them within AckWait
func (q *RedisQueue) readStream(ctx context.Context, subject, stream string, handler MessageHandler) {
	lastClaim := time.Now()

	for {
		if ctx.Err() != nil {
			return
		}

		if time.Since(lastClaim) >= q.config.AckWait {
			q.claimStale(ctx, subject, stream, handler)
			lastClaim = time.Now()
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, s := range streams {
			for _, entry := range s.Messages {
				q.process(ctx, subject, stream, entry, 1, handler)
			}
		}
	}
}

// claimStale takes over idle pending entries. Entries already delivered
// MaxDeliver times are acknowledged and dropped.
func (q *RedisQueue) claimStale(ctx context.Context, subject, stream string, handler MessageHandler) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  q.config.Group,
		Idle:   q.config.AckWait,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return
	}

	for _, p := range pending {
		if p.RetryCount >= int64(q.config.MaxDeliver) {
			q.client.XAck(ctx, stream, q.config.Group, p.ID)
			continue
		}

		entries, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			MinIdle:  q.config.AckWait,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			continue
		}

		for _, entry := range entries {
			q.process(ctx, subject, stream, entry, int(p.RetryCount)+1, handler)
		}
	}
}

// process runs handler on one entry and acknowledges it on success
func (q *RedisQueue) process(ctx context.Context, subject, stream string, entry redis.XMessage, attempt int, handler MessageHandler) {
	data, ok := entry.Values["data"].(string)
	if !ok {
		q.client.XAck(ctx, stream, q.config.Group, entry.ID)
		return
	}

	if err := handler(ctx, &Message{Subject: subject, Data: []byte(data), Attempt: attempt}); err != nil {
		// Left pending, claimed again after AckWait
		return
	}

	q.client.XAck(ctx, stream, q.config.Group, entry.ID)
}

// Unsubscribe unsubscribes from a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all readers and closes the Redis connection
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}
