package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/relabs-tech/carlot/core/logger"
)

// limiters idle for longer than limiterIdle are purged once there are more than maxLimiters
const (
	maxLimiters = 10000
	limiterIdle = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter limits requests per client address
type rateLimiter struct {
	name     string
	rate     rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

func newRateLimiter(name string, r rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		name:     name,
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

// allow returns true if the client may proceed. Otherwise it returns the time the
// client should wait.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cl, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.purge(now)
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	if cl.limiter.AllowN(now, 1) {
		return true, 0
	}
	reservation := cl.limiter.ReserveN(now, 1)
	defer reservation.CancelAt(now)
	return false, reservation.DelayFrom(now)
}

func (rl *rateLimiter) purge(now time.Time) {
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdle {
			delete(rl.limiters, key)
		}
	}
}

// clientAddress returns the address of the client. X-Forwarded-For is only honoured
// with trustProxy, its last entry is the one added by the load balancer.
func (a *API) clientAddress(r *http.Request) string {
	if a.trustProxy {
		if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
			entries := strings.Split(forwarded[len(forwarded)-1], ",")
			if last := strings.TrimSpace(entries[len(entries)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limit wraps handler with the rate limiter. Rejected requests get http.StatusTooManyRequests.
func (a *API) limit(rl *rateLimiter, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := a.clientAddress(r)
		ok, wait := rl.allow(key)
		if !ok {
			a.metrics.rateLimited.WithLabelValues(rl.name).Inc()
			logger.FromContext(r.Context()).Warnln("rate limit", rl.name, "exceeded for", key)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		handler(w, r)
	}
}
