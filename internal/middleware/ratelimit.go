package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/models"
)

// DefaultIdleTimeout is how long an idle client keeps its limiter
const DefaultIdleTimeout = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket each
type RateLimiter struct {
	logger      *logging.Logger
	rps         rate.Limit
	burst       int
	idleTimeout time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given
// burst to every client IP
func NewRateLimiter(logger *logging.Logger, rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		logger:      logger,
		rps:         rate.Limit(rps),
		burst:       burst,
		idleTimeout: DefaultIdleTimeout,
		visitors:    make(map[string]*visitor),
		lastSweep:   time.Now(),
		now:         time.Now,
	}
}

// limiterFor returns the limiter of ip and drops clients idle for longer than
// idleTimeout, at most once per idleTimeout
func (r *RateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) > r.idleTimeout {
		for key, v := range r.visitors {
			if now.Sub(v.lastSeen) > r.idleTimeout {
				delete(r.visitors, key)
			}
		}
		r.lastSweep = now
	}

	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Visitors returns the number of tracked clients
func (r *RateLimiter) Visitors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Handler returns the Fiber middleware. Rejected requests get 429 with a Retry-After
// hint.
func (r *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limiter := r.limiterFor(c.IP())

		reservation := limiter.ReserveN(r.now(), 1)
		if !reservation.OK() {
			return r.reject(c, time.Second)
		}
		if delay := reservation.DelayFrom(r.now()); delay > 0 {
			reservation.CancelAt(r.now())
			return r.reject(c, delay)
		}

		return c.Next()
	}
}

func (r *RateLimiter) reject(c *fiber.Ctx, retryAfter time.Duration) error {
	seconds := int(retryAfter.Seconds())
	if retryAfter > time.Duration(seconds)*time.Second {
		seconds++
	}

	r.logger.Warn("Rate limit exceeded",
		"path", c.Path(),
		"ip", c.IP(),
		"retry_after", retryAfter,
	)

	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "RATE_LIMITED",
			Message: "Too many requests",
			Path:    c.Path(),
		},
	})
}
