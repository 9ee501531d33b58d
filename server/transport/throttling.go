package transport

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL     = 10 * time.Minute
	limiterSweepPeriod = time.Minute
)

// Throttling limits generation requests per client IP using RPS and RPM token buckets.
// Limits are re-read from the config on every request; when they change, existing
// buckets are discarded.
type Throttling struct {
	logger *zap.Logger
	config config.IConfig
	now    func() time.Time

	mu        sync.Mutex
	limits    config.ThrottleLimits
	clients   map[string]*limiterPair
	lastSweep time.Time
}

// limiterPair holds the RPS and RPM limiters for one client. A nil limiter means no limit.
type limiterPair struct {
	rpsLimiter *rate.Limiter
	rpmLimiter *rate.Limiter
	lastSeen   time.Time
}

// NewThrottling creates a throttling middleware backed by cfg.
func NewThrottling(cfg config.IConfig, logger *zap.Logger) *Throttling {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttling{
		logger:  logger.Named("throttling"),
		config:  cfg,
		now:     time.Now,
		clients: make(map[string]*limiterPair),
	}
}

func newLimiterPair(limits config.ThrottleLimits) *limiterPair {
	pair := &limiterPair{}
	if limits.RPM > 0 {
		pair.rpmLimiter = rate.NewLimiter(rate.Limit(limits.RPM)/60.0, limits.RPM)
	}
	if limits.RPS > 0 {
		pair.rpsLimiter = rate.NewLimiter(rate.Limit(limits.RPS), limits.RPS)
	}
	return pair
}

// Allow reports whether client may make another request now.
func (t *Throttling) Allow(client string) error {
	limits, err := t.config.ThrottleLimits()
	if err != nil {
		t.logger.Warn("Failed to read throttle limits, not throttling", zap.Error(err))
		return nil
	}
	if limits.RPS <= 0 && limits.RPM <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if limits != t.limits {
		t.logger.Info("Throttle limits changed", zap.Int("rps", limits.RPS), zap.Int("rpm", limits.RPM))
		t.limits = limits
		t.clients = make(map[string]*limiterPair)
	}
	if now.Sub(t.lastSweep) >= limiterSweepPeriod {
		t.sweep(now)
	}

	pair, ok := t.clients[client]
	if !ok {
		pair = newLimiterPair(limits)
		t.clients[client] = pair
	}
	pair.lastSeen = now

	if pair.rpmLimiter != nil && !pair.rpmLimiter.AllowN(now, 1) {
		return fmt.Errorf("RPM throttling limit exceeded (%d)", limits.RPM)
	}
	if pair.rpsLimiter != nil && !pair.rpsLimiter.AllowN(now, 1) {
		return fmt.Errorf("RPS throttling limit exceeded (%d)", limits.RPS)
	}
	return nil
}

// sweep drops limiters of clients idle for longer than limiterIdleTTL. t.mu must be held.
func (t *Throttling) sweep(now time.Time) {
	t.lastSweep = now
	for client, pair := range t.clients {
		if now.Sub(pair.lastSeen) > limiterIdleTTL {
			delete(t.clients, client)
		}
	}
}

// Limit rejects requests over the configured limits with 429.
func (t *Throttling) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if err := t.Allow(client); err != nil {
			t.logger.Warn("Request throttled", zap.String("client", client), zap.Error(err))
			w.Header().Set("Retry-After", "1")
			WriteJSONError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
