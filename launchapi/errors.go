// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package launchapi

import (
	"errors"
	"fmt"
	"io"
	"net"
)

var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrTooManyPages     = errors.New("too many pages")
)

// TransientError is a failure worth retrying: a network error, a timeout,
// HTTP 429 or a 5xx.
type TransientError struct {
	Page       int
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("page %d: transient HTTP %d: %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("page %d: transient network error: %v", e.Page, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// StatusError is a non-retryable HTTP response.
type StatusError struct {
	Page       int
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("page %d: HTTP %d: %s", e.Page, e.StatusCode, e.Body)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func isTransientRead(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
