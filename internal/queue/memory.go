package queue

import (
	"context"
	"fmt"
	"sync"
)

// memoryCapacity is the buffer size of every in-memory subject
const memoryCapacity = 10000

type memoryEnvelope struct {
	data    []byte
	attempt int
}

// MemoryQueue implements Queue interface using in-memory channels.
// It is used in tests and single-process deployments without a broker.
type MemoryQueue struct {
	channels      map[string]chan memoryEnvelope
	subscriptions map[string]context.CancelFunc
	maxDeliver    int
	closed        bool
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// newMemoryQueue creates a new in-memory queue instance
func newMemoryQueue(maxDeliver int) *MemoryQueue {
	if maxDeliver <= 0 {
		maxDeliver = DefaultMaxDeliver
	}
	return &MemoryQueue{
		channels:      make(map[string]chan memoryEnvelope),
		subscriptions: make(map[string]context.CancelFunc),
		maxDeliver:    maxDeliver,
	}
}

// channel returns the channel of subject, creating it on first use
func (q *MemoryQueue) channel(subject string) (chan memoryEnvelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("memory queue is closed")
	}

	ch, exists := q.channels[subject]
	if !exists {
		ch = make(chan memoryEnvelope, memoryCapacity)
		q.channels[subject] = ch
	}
	return ch, nil
}

// Publish publishes a message to an in-memory channel
func (q *MemoryQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := q.channel(subject)
	if err != nil {
		return err
	}

	// Copy so the caller may reuse its buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	select {
	case ch <- memoryEnvelope{data: dataCopy, attempt: 1}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// Subscribe consumes subject in a background goroutine. A failed message is put
// back at the end of the channel until it has been delivered maxDeliver times.
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	ch, err := q.channel(subject)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-ch:
				msg := &Message{Subject: subject, Data: env.data, Attempt: env.attempt}
				if err := handler(ctx, msg); err != nil && env.attempt < q.maxDeliver {
					env.attempt++
					select {
					case ch <- env:
					default:
					}
				}
			}
		}
	}()

	return nil
}

// Unsubscribe unsubscribes from a channel
func (q *MemoryQueue) Unsubscribe(subject string) error {
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

// Close stops all subscriptions and waits for in-flight handlers to return
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// PendingCount returns the number of undelivered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
