// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithLogging(t *testing.T) {
	// Create a simple server that returns OK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}))
	defer server.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := &http.Client{Transport: WithLogging(http.DefaultTransport, logger)}
	resp, err := client.Get(server.URL + "/test-path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	// Verify response was passed through
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "success" {
		t.Errorf("Expected body 'success', got '%s'", body)
	}

	out := logs.String()
	for _, s := range []string{"request started", "request completed", "/test-path", "status=200", "duration_ms="} {
		if !strings.Contains(out, s) {
			t.Errorf("expected log output to contain %q, got %q", s, out)
		}
	}
}

func TestWithLogging_PreservesResponse(t *testing.T) {
	// Test that logging doesn't interfere with various response codes
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"OK", http.StatusOK, "ok"},
		{"TooManyRequests", http.StatusTooManyRequests, `{"error":"slow down"}`},
		{"BadGateway", http.StatusBadGateway, "upstream down"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: tc.statusCode,
					Body:       io.NopCloser(strings.NewReader(tc.body)),
					Request:    r,
				}, nil
			})

			rt := WithLogging(next, slog.New(slog.NewTextHandler(io.Discard, nil)))
			req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)

			resp, err := rt.RoundTrip(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != tc.body {
				t.Errorf("Expected body %q, got %q", tc.body, body)
			}
		})
	}
}

func TestWithLogging_PassesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, boom
	})

	rt := WithLogging(next, nil)
	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://example.test/", nil))
	if !errors.Is(err, boom) {
		t.Errorf("expected transport error to pass through, got %v", err)
	}
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "http://example.test/query",
		map[string]any{"query": map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"query":{}}` {
		t.Errorf("unexpected body %s", body)
	}
	if req.GetBody == nil {
		t.Error("request body must be replayable for retries")
	}
}

func TestNewJSONRequest_Unencodable(t *testing.T) {
	_, err := NewJSONRequest(context.Background(), http.MethodPost, "http://example.test/", make(chan int))
	if err == nil {
		t.Error("expected error for unencodable body")
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"docs":[{"id":"a"}],"hasNextPage":false}`, false},
		{"truncated", `{"docs":[`, true},
		{"html", `<html>bad gateway</html>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Body: io.NopCloser(strings.NewReader(tt.body))}

			var v struct {
				Docs        []map[string]any `json:"docs"`
				HasNextPage bool             `json:"hasNextPage"`
			}
			err := DecodeJSON(resp, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && len(v.Docs) != 1 {
				t.Errorf("expected 1 doc, got %d", len(v.Docs))
			}
		})
	}
}

func TestErrorBody(t *testing.T) {
	long := strings.Repeat("x", 2*maxErrorBody)
	resp := &http.Response{Body: io.NopCloser(strings.NewReader("bad\n  request\t" + long))}

	got := ErrorBody(resp)
	if !strings.HasPrefix(got, "bad request x") {
		t.Errorf("expected whitespace to be collapsed, got %q", got[:20])
	}
	if len(got) > maxErrorBody {
		t.Errorf("expected body to be capped at %d bytes, got %d", maxErrorBody, len(got))
	}
}
