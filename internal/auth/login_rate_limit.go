package auth

import (
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"user-portal/internal/httpresponse"
	"user-portal/internal/observability"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// LoginRateLimiter throttles login requests per client IP with a token
// bucket refilled at maxHits per window.
type LoginRateLimiter struct {
	clientIP  func(*http.Request) string
	maxHits   int
	window    time.Duration
	byIP      *xsync.MapOf[string, *ipLimiter]
	maxMemory int
	now       func() time.Time
}

// NewLoginRateLimiter keys buckets by clientIP, which defaults to the
// direct peer address.
func NewLoginRateLimiter(maxHits int, window time.Duration, clientIP func(*http.Request) string) *LoginRateLimiter {
	if clientIP == nil {
		clientIP = observability.ClientIP
	}
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		clientIP:  clientIP,
		maxHits:   maxHits,
		window:    window,
		byIP:      xsync.NewMapOf[string, *ipLimiter](),
		maxMemory: 5000,
		now:       time.Now,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.allow(l.clientIP(r), l.now())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			httpresponse.Error(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	entry, _ := l.byIP.LoadOrCompute(ip, func() *ipLimiter {
		return &ipLimiter{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.maxHits)), l.maxHits)}
	})
	entry.lastSeen.Store(now.UnixNano())

	reservation := entry.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		if delay < time.Second {
			delay = time.Second
		}
		l.prune(now)
		return false, delay
	}

	l.prune(now)
	return true, 0
}

func (l *LoginRateLimiter) prune(now time.Time) {
	if l.byIP.Size() <= l.maxMemory {
		return
	}

	threshold := now.Add(-l.window).UnixNano()
	l.byIP.Range(func(ip string, entry *ipLimiter) bool {
		if entry.lastSeen.Load() < threshold {
			l.byIP.Delete(ip)
		}
		return true
	})
}
