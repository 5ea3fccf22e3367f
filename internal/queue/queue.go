// Package queue moves analysis jobs and results between the analyzer and its clients.
// Every backend gives work-queue semantics: subscribers sharing a group split the
// messages of a subject, and a message whose handler fails is delivered again up to
// MaxDeliver times.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadySubscribed is returned when subscribing twice to one subject
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrNotSubscribed is returned when unsubscribing from an unknown subject
	ErrNotSubscribed = errors.New("not subscribed")
)

// Delivery defaults shared by all backends
const (
	DefaultMaxDeliver = 3
	DefaultAckWait    = 30 * time.Second
)

// Message is one delivered message
type Message struct {
	Subject string
	Data    []byte

	// Attempt is the 1-based delivery attempt, 0 when the backend cannot tell
	Attempt int
}

// MessageHandler handles incoming messages. Returning an error leaves the message
// unacknowledged so that it is redelivered.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// sanitizeName replaces characters that are invalid in stream, consumer and group
// names. Only A-Z, a-z, 0-9, dash and underscore are kept.
func sanitizeName(subject string) string {
	result := make([]byte, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
