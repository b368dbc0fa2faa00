// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP client middleware and JSON helpers.

# Request Logging

WithLogging wraps an http.RoundTripper and logs every outbound request at
DEBUG level:

	client := &http.Client{
		Transport: middleware.WithLogging(http.DefaultTransport, logger),
	}

Logged fields:

  - method: HTTP method
  - url: request URL with credentials redacted
  - status: response status code
  - duration_ms: round trip time

Transport errors are logged with the error and passed through unchanged.

# JSON Helpers

	req, err := middleware.NewJSONRequest(ctx, http.MethodPost, url, body)
	err := middleware.DecodeJSON(resp, &page)
	excerpt := middleware.ErrorBody(resp)

DecodeJSON and ErrorBody always close the response body.
*/
package middleware
