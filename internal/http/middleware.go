package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/abeldaneesh/TMS-sub000/internal/application"
)

const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

// IdentityConfig configures RequireIdentity. An empty GatewayKeyHash trusts the
// identity headers without a gateway key.
type IdentityConfig struct {
	GatewayKeyHash string
}

// RequireIdentity builds the principal from the gateway's identity headers.
// When a gateway key hash is configured the bearer token must match it.
func RequireIdentity(cfg IdentityConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	hash := []byte(strings.TrimSpace(cfg.GatewayKeyHash))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) > 0 {
				key := bearerToken(r)
				if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
					responder.writeError(r.Context(), w, http.StatusUnauthorized, codeUnauthorized, errInvalidGatewayKey)
					return
				}
			}

			principal := application.Principal{
				UserID: strings.TrimSpace(r.Header.Get(headerUserID)),
				Role:   application.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(headerRole)))),
			}
			if principal.UserID == "" || !principal.Role.Valid() {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, codeUnauthorized, errMissingIdentity)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := LoggerFromContext(ctx); logger != nil {
				ctx = ContextWithLogger(ctx, logger.With("principal_id", principal.UserID, "role", string(principal.Role)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

// ScanLimiter hands out one token bucket per participant.
type ScanLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewScanLimiter allows perSecond scans per participant with the given burst.
func NewScanLimiter(perSecond float64, burst int) *ScanLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ScanLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow consumes one token from key's bucket.
func (l *ScanLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		l.sweep(now)
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ScanLimiter) sweep(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
}

// LimitScans rejects callers that exceed their scan budget with 429.
func LimitScans(limiter *ScanLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if principal, ok := PrincipalFromContext(r.Context()); ok && principal.UserID != "" {
				key = principal.UserID
			}
			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", "1")
				responder.writeError(r.Context(), w, http.StatusTooManyRequests, codeRateLimited, errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
