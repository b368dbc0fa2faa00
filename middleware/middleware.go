// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is kept for logs
const maxErrorBody = 512

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// WithLogging wraps a transport with request logging
func WithLogging(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		logger.Debug("request started",
			"method", r.Method,
			"url", r.URL.Redacted(),
		)

		resp, err := next.RoundTrip(r)

		duration := time.Since(start)
		if err != nil {
			logger.Debug("request failed",
				"method", r.Method,
				"url", r.URL.Redacted(),
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return nil, err
		}

		logger.Debug("request completed",
			"method", r.Method,
			"url", r.URL.Redacted(),
			"status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
		return resp, nil
	})
}

// DecodeJSON parses the response body into the given value and closes it
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// ErrorBody reads a short, single-line excerpt of a failed response and closes it
func ErrorBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.Join(strings.Fields(string(b)), " ")
}

// NewJSONRequest builds a request with a JSON body
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
