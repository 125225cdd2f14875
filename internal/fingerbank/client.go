package fingerbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/HerbHall/dhcplens/internal/config"
	"go.uber.org/zap"
)

// authFailureLimit is the number of consecutive 401/403 responses after
// which the client disables itself for the rest of the run. A bad key
// fails for every device; retrying a doomed call per device only burns
// the rate budget.
const authFailureLimit = 3

// Client calls the interrogate endpoint with local rate limiting and
// retry handling. Safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxRetries  int
	backoffBase time.Duration
	limiter     *windowLimiter
	spacing     *rate.Limiter
	logger      *zap.Logger

	mu           sync.Mutex
	authFailures int
	disabled     bool

	successful  int64
	failed      int64
	rateLimited int64
}

// Stats is a snapshot of the client's request counters.
type Stats struct {
	Successful  int64        `json:"successful"`
	Failed      int64        `json:"failed"`
	RateLimited int64        `json:"rate_limited"`
	Window      WindowStatus `json:"window"`
}

// NewClient builds a Client from configuration. A nil logger is replaced
// with a no-op one. The returned client reports Configured()==false when
// no API key is set; callers should then skip the external stage.
func NewClient(cfg config.FingerbankConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		limiter:     newWindowLimiter(cfg.RequestsPerHour, cfg.RequestsPerDay),
		logger:      logger.Named("fingerbank"),
	}
	if cfg.MinInterval > 0 {
		c.spacing = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// RateLimitStatus exposes the current window usage.
func (c *Client) RateLimitStatus() WindowStatus { return c.limiter.Status() }

// Stats returns the request counters and window usage.
func (c *Client) Stats() Stats {
	return Stats{
		Successful:  atomic.LoadInt64(&c.successful),
		Failed:      atomic.LoadInt64(&c.failed),
		RateLimited: atomic.LoadInt64(&c.rateLimited),
		Window:      c.limiter.Status(),
	}
}

// Classify sends one interrogate request. Refusals are local and typed:
// ErrRateLimited when a window is at its ceiling (no network call is
// made), ErrAuthDisabled once repeated auth failures have disabled the
// client. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff; other 4xx surface immediately.
func (c *Client) Classify(ctx context.Context, req Request) (*Classification, error) {
	if c.authDisabled() {
		return nil, ErrAuthDisabled
	}
	// Reserve the window slot before any waiting: check-then-record as
	// two steps would let concurrent callers share the last slot.
	release, ok := c.limiter.TryAcquire()
	if !ok {
		atomic.AddInt64(&c.rateLimited, 1)
		requestsTotal.WithLabelValues(outcomeRateLimited).Inc()
		return nil, ErrRateLimited
	}
	if c.spacing != nil {
		if err := c.spacing.Wait(ctx); err != nil {
			// Never dispatched; give the slot back.
			release()
			return nil, err
		}
	}
	// The call is dispatched from here on; the reservation counts against
	// the windows regardless of outcome.

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			c.logger.Warn("retrying after transient failure",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		cls, err := c.interrogate(ctx, req)
		if err == nil {
			c.resetAuthFailures()
			atomic.AddInt64(&c.successful, 1)
			requestsTotal.WithLabelValues(outcomeSuccess).Inc()
			return cls, nil
		}
		lastErr = err

		if apiErr, ok := err.(*APIError); ok {
			if apiErr.AuthFailure() {
				c.recordAuthFailure()
				atomic.AddInt64(&c.failed, 1)
				requestsTotal.WithLabelValues(outcomeAuthFailed).Inc()
				return nil, err
			}
			if !apiErr.Retryable() {
				atomic.AddInt64(&c.failed, 1)
				requestsTotal.WithLabelValues(outcomeFailed).Inc()
				return nil, err
			}
		}
		// Network error or retryable status: loop for another attempt.
	}

	atomic.AddInt64(&c.failed, 1)
	requestsTotal.WithLabelValues(outcomeFailed).Inc()
	return nil, fmt.Errorf("fingerbank: %d attempts failed: %w", c.maxRetries, lastErr)
}

func (c *Client) interrogate(ctx context.Context, req Request) (*Classification, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	if req.DHCPFingerprint != "" {
		params.Set("dhcp_fingerprint", req.DHCPFingerprint)
	}
	if req.DHCPVendorClass != "" {
		params.Set("dhcp_vendor_class", req.DHCPVendorClass)
	}
	if req.Hostname != "" {
		params.Set("hostname", req.Hostname)
	}
	if req.ClientFQDN != "" {
		params.Set("fqdn", req.ClientFQDN)
	}

	endpoint := c.baseURL + "/combinations/interrogate?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http get interrogate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var wire interrogateResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return wire.normalize(), nil
}

func (c *Client) authDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

func (c *Client) recordAuthFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authFailures++
	if c.authFailures >= authFailureLimit && !c.disabled {
		c.disabled = true
		c.logger.Error("disabling external classification for this run",
			zap.Int("consecutive_auth_failures", c.authFailures),
		)
	}
}

func (c *Client) resetAuthFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authFailures = 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
