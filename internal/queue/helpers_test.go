package queue

import "github.com/nats-io/nats.go"

// Test-only constructors for the unexported backends

func NewNATSQueue(url string) (*NATSQueue, error) {
	return newNATSQueue(NATSConfig{URL: url})
}

func NewNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig) (*NATSQueue, error) {
	return newNATSQueueWithConn(conn, cfg)
}

func NewRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	return newRedisQueue(cfg)
}

func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	return newKafkaQueue(cfg)
}

func NewMemoryQueue() *MemoryQueue {
	return newMemoryQueue(DefaultMaxDeliver)
}
