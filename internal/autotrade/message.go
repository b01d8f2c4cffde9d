package autotrade

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidMessage is returned for trade messages outside the accepted schema.
var ErrInvalidMessage = errors.New("invalid trade message")

// TradeMessage is a flat JSON object whose values are strings, numbers or
// booleans, e.g. a 3Commas bot start/stop payload.
type TradeMessage map[string]any

// ParseTradeMessage decodes a stored trade message. Input must be exactly one
// JSON object with unique keys and scalar values; nested values, null, empty
// input and trailing data are rejected.
func ParseTradeMessage(s string) (TradeMessage, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidMessage)
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrInvalidMessage)
	}

	msg := TradeMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		key := tok.(string) // object keys are always strings
		if _, dup := msg[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidMessage, key)
		}

		val, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		switch v := val.(type) {
		case string, bool, json.Number:
			msg[key] = v
		case nil:
			return nil, fmt.Errorf("%w: null value for %q", ErrInvalidMessage, key)
		default:
			return nil, fmt.Errorf("%w: nested value for %q", ErrInvalidMessage, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidMessage)
	}
	if len(msg) == 0 {
		return nil, fmt.Errorf("%w: empty object", ErrInvalidMessage)
	}
	return msg, nil
}
