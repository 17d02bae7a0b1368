package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// idleLimiterTTL drops limiters for clients that have gone quiet.
const idleLimiterTTL = 15 * time.Minute

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	logger   zerolog.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst for each of at most maxClients tracked clients.
func NewRateLimiter(rps float64, burst, maxClients int, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: lru.NewLRU[string, *rate.Limiter](maxClients, nil, idleLimiterTTL),
		rate:     rate.Limit(rps),
		burst:    burst,
		logger:   logger,
	}
}

func (l *RateLimiter) getLimiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters.Get(client); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters.Add(client, limiter)
	return limiter
}

// Allow reports whether client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	return l.getLimiter(client).Allow()
}

// Handler returns the gin handler.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if !l.Allow(client) {
			l.logger.Warn().Str("client_ip", client).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			abort(c, errRateLimited)
			return
		}
		c.Next()
	}
}
