package model

import "encoding/json"

type PutKeyParams struct {
	Value json.RawMessage `json:"Value"`

	// Timeout is the expiration in seconds. Omitted means the backend default,
	// zero means no expiration.
	Timeout *float64 `json:"Timeout,omitempty"`

	// OnlyIfMissing stores the value only if the key does not exist.
	OnlyIfMissing bool `json:"OnlyIfMissing,omitempty"`
}

type PutKeyResponse struct {
	Stored bool `json:"Stored"`
}

type DeleteKeyResponse struct {
	Deleted bool `json:"Deleted"`
}

type GetKeyResponse struct {
	Value  any  `json:"Value"`
	Exists bool `json:"Exists"`
}

type CounterParams struct {
	Delta *int64 `json:"Delta,omitempty"`
}

type CounterResponse struct {
	Value int64 `json:"Value"`
}

type GetManyParams struct {
	Keys []string `json:"Keys"`
}

type GetManyResponse struct {
	Values map[string]any `json:"Values"`
}

type SetManyParams struct {
	Values  map[string]json.RawMessage `json:"Values"`
	Timeout *float64                   `json:"Timeout,omitempty"`
}

type SetManyResponse struct {
	Failed []string `json:"Failed"`
}

type DeleteManyParams struct {
	Keys []string `json:"Keys"`
}

type GetNodesResponse struct {
	Nodes []Node `json:"Nodes"`
}

type ErrorResponse struct {
	Error string `json:"Error"`
}
