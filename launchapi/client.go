// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package launchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/danielhkuo/launch-ingester/middleware"
)

// Defaults match the upstream query endpoint's own limits
const (
	DefaultPageSize      = 50
	DefaultMaxPages      = 1000
	DefaultMaxAttempts   = 5
	DefaultRetryDelay    = time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	DefaultTimeout       = 30 * time.Second
)

// TimestampLayout is the format the API uses for date_utc
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Client struct {
	url           string
	httpClient    *http.Client
	logger        *slog.Logger
	pageSize      int
	maxPages      int
	maxAttempts   uint
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its transport is still wrapped
// with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// WithRetry sets the attempt cap and the backoff bounds for a single page.
func WithRetry(attempts uint, delay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.retryDelay = delay
		c.maxRetryDelay = maxDelay
	}
}

// New creates a client for the launches query endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		pageSize:      DefaultPageSize,
		maxPages:      DefaultMaxPages,
		maxAttempts:   DefaultMaxAttempts,
		retryDelay:    DefaultRetryDelay,
		maxRetryDelay: DefaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{Timeout: DefaultTimeout}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}
	hc.Transport = middleware.WithLogging(hc.Transport, c.logger)
	c.httpClient = hc

	if c.maxAttempts == 0 {
		c.maxAttempts = 1
	}
	return c
}

// Fetch returns every launch document the query matches, in API order.
// A nil since fetches the full history; otherwise only launches with
// date_utc strictly after since are requested.
func (c *Client) Fetch(ctx context.Context, since *time.Time) ([]json.RawMessage, error) {
	query := map[string]any{}
	if since != nil {
		bound := FormatTimestamp(*since)
		query["date_utc"] = map[string]string{"$gt": bound}
		c.logger.Info("querying launches", "since", bound)
	} else {
		c.logger.Info("querying all launches (backfill)")
	}

	var docs []json.RawMessage
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages", ErrTooManyPages, c.maxPages)
		}

		req := queryRequest{
			Query: query,
			Options: queryOptions{
				Page:     page,
				Limit:    c.pageSize,
				Sort:     map[string]string{"flight_number": "asc"},
				Populate: []string{"payloads"},
			},
		}

		c.logger.Info("fetching launch page", "page", page)
		resp, err := c.fetchPage(ctx, req)
		if err != nil {
			return nil, err
		}
		c.logger.Info("received launch page",
			"page", page,
			"docs", len(resp.Docs),
			"total_docs", resp.TotalDocs,
		)

		docs = append(docs, resp.Docs...)
		if !resp.HasNextPage {
			break
		}
	}

	c.logger.Info("finished fetching launches", "total", len(docs))
	return docs, nil
}

// fetchPage runs one page query under the retry policy.
func (c *Client) fetchPage(ctx context.Context, req queryRequest) (queryResponse, error) {
	var (
		page     queryResponse
		lastErr  error
		attempts uint
	)

	err := retry.Do(
		func() error {
			attempts++
			resp, err := c.query(ctx, req)
			if err != nil {
				lastErr = err
				return err
			}
			page = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(c.maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("launch query attempt failed",
				"page", req.Options.Page,
				"attempt", n+1,
				"max_attempts", c.maxAttempts,
				"error", err,
			)
		}),
	)
	if err == nil {
		return page, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return queryResponse{}, fmt.Errorf("query page %d: %w", req.Options.Page, ctxErr)
	}
	if lastErr == nil {
		return queryResponse{}, fmt.Errorf("query page %d: %w", req.Options.Page, err)
	}
	if IsTransient(lastErr) {
		return queryResponse{}, fmt.Errorf("query page %d failed after %d attempts: %w: %w",
			req.Options.Page, attempts, ErrRetriesExhausted, lastErr)
	}
	return queryResponse{}, fmt.Errorf("query page %d: %w", req.Options.Page, lastErr)
}

// query performs a single POST and classifies the failure.
func (c *Client) query(ctx context.Context, body queryRequest) (queryResponse, error) {
	req, err := middleware.NewJSONRequest(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return queryResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return queryResponse{}, ctx.Err()
		}
		return queryResponse{}, &TransientError{Page: body.Options.Page, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return queryResponse{}, &TransientError{
			Page:       body.Options.Page,
			StatusCode: resp.StatusCode,
			Err:        errors.New(middleware.ErrorBody(resp)),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return queryResponse{}, &StatusError{
			Page:       body.Options.Page,
			StatusCode: resp.StatusCode,
			Body:       middleware.ErrorBody(resp),
		}
	}

	var page queryResponse
	if err := middleware.DecodeJSON(resp, &page); err != nil {
		if isTransientRead(err) && ctx.Err() == nil {
			return queryResponse{}, &TransientError{Page: body.Options.Page, StatusCode: resp.StatusCode, Err: err}
		}
		return queryResponse{}, err
	}
	return page, nil
}

// FormatTimestamp renders t the way the API stores date_utc.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
