package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rednote/config"
	"github.com/use-agent/rednote/models"
	"golang.org/x/time/rate"
)

// idleLimiter is how long a caller's bucket survives without requests.
const idleLimiter = time.Hour

// limiterSet holds one token bucket per caller.
type limiterSet struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func (s *limiterSet) get(identity string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[identity]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[identity] = b
	}
	b.lastSeen = now
	return b.Limiter
}

func (s *limiterSet) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.buckets {
		if now.Sub(b.lastSeen) > idleLimiter {
			delete(s.buckets, id)
		}
	}
}

// RateLimit throttles each caller, identified by API key when Auth ran
// first and by client IP otherwise. Rejected requests get 429 with a
// Retry-After hint.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	set := &limiterSet{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
	}

	go func() {
		for now := range time.Tick(5 * time.Minute) {
			set.sweep(now)
		}
	}()

	return func(c *gin.Context) {
		identity := c.GetString(apiKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		now := time.Now()
		r := set.get(identity, now).ReserveN(now, 1)
		if !r.OK() {
			tooMany(c, 0)
			return
		}
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			tooMany(c, delay)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int(math.Ceil(retryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
		models.ErrCodeRateLimited, "rate limit exceeded, please slow down",
	))
}
