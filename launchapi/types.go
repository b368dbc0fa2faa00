// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package launchapi

import "encoding/json"

// Request types

type queryRequest struct {
	Query   map[string]any `json:"query"`
	Options queryOptions   `json:"options"`
}

type queryOptions struct {
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Sort     map[string]string `json:"sort"`
	Populate []string          `json:"populate"`
}

// Response types

type queryResponse struct {
	Docs        []json.RawMessage `json:"docs"`
	TotalDocs   int               `json:"totalDocs"`
	Page        int               `json:"page"`
	TotalPages  int               `json:"totalPages"`
	HasNextPage bool              `json:"hasNextPage"`
}
