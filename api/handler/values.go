package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maxpoletaev/memdisco/backend"
)

var errNoValue = errors.New("value is required")

// decodeValue decodes a JSON value keeping integers as integers, so that they
// can later be incremented.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, errNoValue
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}

	return convertNumbers(value), nil
}

func convertNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}

		f, _ := v.Float64()

		return f
	case map[string]any:
		for key, item := range v {
			v[key] = convertNumbers(item)
		}
	case []any:
		for i, item := range v {
			v[i] = convertNumbers(item)
		}
	}

	return value
}

func timeoutFromSeconds(secs *float64) time.Duration {
	if secs == nil {
		return backend.DefaultExpiration
	}

	if *secs == 0 {
		return backend.NoExpiration
	}

	timeout := time.Duration(*secs * float64(time.Second))

	// Any negative timeout means "already expired", but the sentinel value
	// must not be hit by accident.
	if timeout == backend.DefaultExpiration {
		timeout = -time.Second
	}

	return timeout
}
