// Package fetch retrieves image bytes over plain HTTP(S).
package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/imgharvest/imgharvest/internal/logger"
)

// ErrFetch wraps any transport or status failure for a single URL. There is
// no retry at this layer; one attempt per URL.
var ErrFetch = errors.New("fetch: request failed")

// Config holds fetcher configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration

	// Transport overrides the HTTP transport. Used by tests.
	Transport http.RoundTripper
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Timeout:   10 * time.Second,
	}
}

// Browser-like request headers sent with every download. Accept-Encoding is
// left to the transport so the body arrives decoded.
var browserHeaders = map[string]string{
	"Accept":                    "image/webp,image/apng,image/*,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Fetcher downloads a single URL per call using Colly.
type Fetcher struct {
	config Config
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Fetcher{config: cfg}
}

// Fetch issues one GET for targetURL and returns the raw body. Any non-success
// status or transport error is reported as ErrFetch.
func (f *Fetcher) Fetch(targetURL string) ([]byte, error) {
	logger.Debug("fetch starting", "url", targetURL)

	// Fresh collector per request, matching one-shot semantics.
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.config.Timeout)
	if f.config.Transport != nil {
		c.WithTransport(f.config.Transport)
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders {
			r.Headers.Set(k, v)
		}
	})

	var body []byte
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		logger.Debug("fetch response", "url", targetURL, "status", r.StatusCode, "bytes", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("%w: status %d: %v", ErrFetch, status, err)
		logger.Debug("fetch error", "url", targetURL, "status", status, "error", err)
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	return body, nil
}
