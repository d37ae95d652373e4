package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/salvioris-chat/pkg/clientip"
)

// Per-IP limiters with TTL cleanup. History gets a generous budget so rapid
// conversation switching never trips it; uploads are tighter since each one
// moves megabytes.

const (
	limiterCleanupEvery = 5 * time.Minute
	limiterEntryTTL     = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

type ipRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	started bool
}

func newIPRateLimiter(rps rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		entries: make(map[string]*limiterEntry),
		rps:     rps,
		burst:   burst,
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (l *ipRateLimiter) startCleanupOnce() {
	if l.started {
		return
	}
	l.started = true
	go func() {
		ticker := time.NewTicker(limiterCleanupEvery)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := time.Now()
			for k, e := range l.entries {
				if now.Sub(e.lastUse) > limiterEntryTTL {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}()
}

func (l *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		if !l.get(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many requests. Please slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

var (
	// 30/min burst 20: conversation switching loads history per peer.
	historyLimiter = newIPRateLimiter(0.5, 20)
	// 6/min burst 3: one attachment slot per client anyway.
	uploadLimiter = newIPRateLimiter(0.1, 3)
	// 12/min burst 6: signin/signup brute-force guard.
	authLimiter = newIPRateLimiter(0.2, 6)
	// 10/min burst 5: reconnect storms on the gateway handshake.
	wsLimiter = newIPRateLimiter(0.17, 5)
)

// HistoryRateLimit limits conversation-history fetches per IP.
func HistoryRateLimit(next http.Handler) http.Handler { return historyLimiter.middleware(next) }

// UploadRateLimit limits attachment uploads per IP.
func UploadRateLimit(next http.Handler) http.Handler { return uploadLimiter.middleware(next) }

// AuthRateLimit limits signup/signin attempts per IP.
func AuthRateLimit(next http.Handler) http.Handler { return authLimiter.middleware(next) }

// WSHandshakeRateLimit limits WebSocket handshakes per IP.
func WSHandshakeRateLimit(next http.Handler) http.Handler { return wsLimiter.middleware(next) }
