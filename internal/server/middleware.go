package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/dhcplens/internal/version"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhcplens_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dhcplens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

type middleware func(http.Handler) http.Handler

// wrap nests mw around h back to front, so the first entry sees the
// request first.
func wrap(h http.Handler, mw ...middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

type ctxKeyRequestID struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// tagRequests assigns each request an ID for log correlation, honoring
// an X-Request-ID already set by an upstream proxy.
func tagRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument covers every request with panic recovery, the access log,
// and the Prometheus request counters. Quiet paths are metered but kept
// out of the log.
func instrument(logger *zap.Logger, quiet []string) middleware {
	quietSet := pathSet(quiet)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					logger.Error("panic in handler",
						zap.Any("panic", p),
						zap.String("path", r.URL.Path),
						zap.String("request_id", requestIDFrom(r.Context())),
					)
					InternalError(rec, "an unexpected error occurred", r.URL.Path)
				}

				elapsed := time.Since(start)
				httpRequestsTotal.WithLabelValues(
					r.Method, r.URL.Path, strconv.Itoa(rec.Status()),
				).Inc()
				httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())

				if !quietSet[r.URL.Path] {
					logger.Info("http request",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Int("status", rec.Status()),
						zap.Duration("duration", elapsed),
						zap.String("remote", r.RemoteAddr),
						zap.String("request_id", requestIDFrom(r.Context())),
					)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// apiHeaders marks every response as machine output: no content
// sniffing, and the server version for client-side diagnostics.
func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-DHCPLens-Version", version.Short())
		next.ServeHTTP(w, r)
	})
}

// throttle applies a per-client token bucket to every path not in skip.
func throttle(rps float64, burst int, skip []string) middleware {
	limiter := newVisitorLimiter(rate.Limit(rps), burst)
	skipSet := pathSet(skip)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.allow(clientIP(r)) {
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	visitorIdleAfter  = 10 * time.Minute
	visitorSweepEvery = time.Minute
)

// visitorLimiter hands out one token bucket per client IP. Buckets idle
// past visitorIdleAfter are swept at most once per visitorSweepEvery,
// so the map stays bounded by the set of recently active clients.
type visitorLimiter struct {
	mu      sync.Mutex
	buckets map[string]*visitor
	limit   rate.Limit
	burst   int
	swept   time.Time
}

type visitor struct {
	bucket *rate.Limiter
	seen   time.Time
}

func newVisitorLimiter(limit rate.Limit, burst int) *visitorLimiter {
	return &visitorLimiter{
		buckets: make(map[string]*visitor),
		limit:   limit,
		burst:   burst,
		swept:   time.Now(),
	}
}

func (vl *visitorLimiter) allow(ip string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	now := time.Now()
	if now.Sub(vl.swept) > visitorSweepEvery {
		for addr, v := range vl.buckets {
			if now.Sub(v.seen) > visitorIdleAfter {
				delete(vl.buckets, addr)
			}
		}
		vl.swept = now
	}

	v, ok := vl.buckets[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(vl.limit, vl.burst)}
		vl.buckets[ip] = v
	}
	v.seen = now
	return v.bucket.Allow()
}

// clientIP prefers the first X-Forwarded-For hop and falls back to the
// socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the status code written by a handler. The
// first WriteHeader wins; an unwritten response counts as 200.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.code == 0 {
		r.code = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Status() int {
	if r.code == 0 {
		return http.StatusOK
	}
	return r.code
}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}
