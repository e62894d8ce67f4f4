// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MaxResponseSize bounds full-body responses (10MB).
const MaxResponseSize = 10 * 1024 * 1024

// Limits throttles outgoing provider requests. Zero RequestsPerMinute
// disables throttling.
type Limits struct {
	RequestsPerMinute int
	Burst             int
}

// =============================================================================
// HTTP DOER
// =============================================================================

// HTTPDoer is the HTTP client shared by every adapter. It waits on the rate
// limiter before each request and logs method, host, status and duration
// at debug level. Headers and bodies are never logged.
type HTTPDoer struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewHTTPDoer creates a doer. Streaming responses are bounded by the
// request context, so the client itself has no overall timeout.
func NewHTTPDoer(limits Limits, logger zerolog.Logger) *HTTPDoer {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 90 * time.Second,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	d := &HTTPDoer{
		client: &http.Client{Transport: transport},
		logger: logger,
	}
	if limits.RequestsPerMinute > 0 {
		burst := limits.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(limits.RequestsPerMinute)), burst)
	}
	return d
}

// WithClient replaces the underlying client. Tests use it with httptest.
func (d *HTTPDoer) WithClient(c *http.Client) *HTTPDoer {
	d.client = c
	return d
}

// Do sends req once. Failed requests are never retried.
func (d *HTTPDoer) Do(req *http.Request) (*http.Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	event := d.logger.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("provider request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("provider request")
	return resp, nil
}

// ReadBody reads a full response body up to MaxResponseSize.
func ReadBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
