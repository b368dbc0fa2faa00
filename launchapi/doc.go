// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package launchapi fetches launch documents from the public launches query
endpoint (POST /v5/launches/query).

# Usage

	client := launchapi.New(cfg.APIURL,
		launchapi.WithLogger(logger),
		launchapi.WithPageSize(50),
	)
	docs, err := client.Fetch(ctx, watermark) // nil watermark: full history

With a watermark the query carries {"date_utc": {"$gt": watermark}}; without
one it is empty. Every query asks for payloads to be populated and sorts by
flight_number. Pages are followed until hasNextPage is false.

Documents are returned untouched. Validation and the upcoming filter are the
caller's job.

# Retries

Each page is retried independently with exponential backoff
(github.com/avast/retry-go) when the failure is transient:

  - connection errors and timeouts
  - HTTP 429 and 5xx
  - a body cut short mid-read

Any other status (400, 404...) or a body that is not JSON fails at once
with *StatusError or a decode error. When the attempt cap is reached the
error wraps both ErrRetriesExhausted and the last *TransientError.
*/
package launchapi
