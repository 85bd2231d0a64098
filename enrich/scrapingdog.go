// Package enrich looks profiles up through the Scrapingdog LinkedIn API.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Scrapingdog LinkedIn endpoint
const DefaultBaseURL = "https://api.scrapingdog.com/linkedin"

// maxBody caps how much of a response is kept
const maxBody = 8 << 20

// Result is either the raw JSON payload returned for a profile or a
// description of why the lookup failed.
type Result struct {
	Payload    json.RawMessage `json:"payload,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Failure    string          `json:"failure,omitempty"`
}

// OK reports whether the lookup produced a payload.
func (r Result) OK() bool {
	return r.Failure == "" && len(r.Payload) > 0
}

// String renders the payload, or the failure message when there is none.
func (r Result) String() string {
	if r.OK() {
		return string(r.Payload)
	}
	return r.Failure
}

func failed(status int, format string, args ...any) Result {
	return Result{StatusCode: status, Failure: fmt.Sprintf(format, args...)}
}

// Client fetches enrichment data for a profile identifier
type Client interface {
	// Lookup never returns an error: failures are carried in the Result so
	// one bad profile does not stop the run.
	Lookup(ctx context.Context, profileID string) Result
}

// Option configures the client
type Option func(*httpClient)

// WithBaseURL points the client at another endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. A zero limit disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Scrapingdog client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, profileID string) Result {
	if profileID == "" {
		return failed(0, "Request skipped: empty profile identifier")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return failed(0, "Request aborted: %v", err)
		}
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("type", "profile")
	params.Set("linkId", profileID)
	params.Set("private", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return failed(0, "Request could not be built: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Warn("enrich: request failed", zap.String("profile_id", profileID), zap.Error(err))
		return failed(0, "Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		zap.L().Warn("enrich: unexpected status",
			zap.String("profile_id", profileID),
			zap.Int("status", resp.StatusCode),
		)
		return failed(resp.StatusCode, "Request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return failed(resp.StatusCode, "Response could not be read: %v", err)
	}
	if !json.Valid(body) {
		return failed(resp.StatusCode, "Response is not valid JSON")
	}

	return Result{Payload: json.RawMessage(body), StatusCode: resp.StatusCode}
}
