package utils

import "time"

// Version is reported by the health endpoint and the startup log
const Version = "1.0.0"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and worker
	ShutdownTimeout = 10 * time.Second
)

// Result cache and queue timeouts
const (
	// CacheOperationTimeout bounds a single cache lookup or store
	CacheOperationTimeout = 2 * time.Second

	// PublishTimeout bounds publishing one analysis event or job result
	PublishTimeout = 5 * time.Second
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// Cache Type Constants
// =============================================================================

// CacheType represents the result cache backend
type CacheType string

const (
	// CacheTypeMemory keeps results in process (default)
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis stores compressed results in Redis
	CacheTypeRedis CacheType = "redis"

	// CacheTypeSQLite stores compressed results in a local SQLite file
	CacheTypeSQLite CacheType = "sqlite"

	// CacheTypeNone disables result caching
	CacheTypeNone CacheType = "none"
)
