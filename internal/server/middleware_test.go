package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTagRequests(t *testing.T) {
	var seen string
	h := tagRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", http.NoBody))
	if seen == "" {
		t.Fatal("no request ID reached the handler context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header ID %q != context ID %q", got, seen)
	}

	req := httptest.NewRequest("GET", "/x", http.NoBody)
	req.Header.Set("X-Request-ID", "upstream-7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != "upstream-7" {
		t.Errorf("context ID = %q, want proxy-supplied ID", seen)
	}
	if got := w.Header().Get("X-Request-ID"); got != "upstream-7" {
		t.Errorf("header ID = %q, want proxy-supplied ID", got)
	}
}

func TestInstrument_recoversPanics(t *testing.T) {
	h := instrument(zap.NewNop(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestInstrument_passesStatusThrough(t *testing.T) {
	h := instrument(zap.NewNop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/x", http.NoBody))
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestAPIHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	apiHeaders(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/x", http.NoBody))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if w.Header().Get("X-DHCPLens-Version") == "" {
		t.Error("missing X-DHCPLens-Version header")
	}
}

func TestThrottle_perClientBurst(t *testing.T) {
	h := throttle(1, 1, nil)(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/x", http.NoBody)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:1000"); code != http.StatusOK {
		t.Fatalf("first request: status = %d", code)
	}
	if code := send("10.0.0.1:1000"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted: status = %d, want 429", code)
	}
	// Buckets are per client, not global.
	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("other client: status = %d, want 200", code)
	}
}

func TestThrottle_skipPaths(t *testing.T) {
	h := throttle(0.001, 1, []string{"/healthz"})(okHandler())

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	req.RemoteAddr = "10.0.0.3:1000"
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d to skipped path: status = %d", i, w.Code)
		}
	}
}

func TestVisitorLimiter_sweepDropsIdleBuckets(t *testing.T) {
	vl := newVisitorLimiter(rate.Limit(1), 1)
	vl.allow("10.0.0.1")

	vl.buckets["10.0.0.1"].seen = time.Now().Add(-time.Hour)
	vl.swept = time.Now().Add(-2 * visitorSweepEvery)

	vl.allow("10.0.0.2")
	if _, ok := vl.buckets["10.0.0.1"]; ok {
		t.Error("idle bucket survived the sweep")
	}
	if _, ok := vl.buckets["10.0.0.2"]; !ok {
		t.Error("active bucket swept")
	}
}

func TestWrap_order(t *testing.T) {
	var order []string
	tag := func(name string) middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", http.NoBody))

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.RemoteAddr = "192.168.1.100:12345"
	if ip := clientIP(req); ip != "192.168.1.100" {
		t.Errorf("clientIP = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	if ip := clientIP(req); ip != "203.0.113.50" {
		t.Errorf("clientIP = %q, want first forwarded hop", ip)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if rec.Status() != http.StatusOK {
		t.Errorf("unwritten Status() = %d, want 200", rec.Status())
	}

	rec = &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusNotFound)
	if rec.Status() != http.StatusCreated {
		t.Errorf("Status() = %d, first write should win", rec.Status())
	}
}
