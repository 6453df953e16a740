package hospitalapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Known list envelope keys in lookup order.
var (
	listKeys = []string{"results"}
	slotKeys = []string{"available_slots", "results", "slots"}
)

// decodeList accepts a bare JSON array or an object wrapping the array under
// the first present key of keys. An object without any of the keys, or with
// a null value, decodes to an empty list.
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: failed to decode list: %v", ErrInvalidResponse, err)
		}
		return nonNil(items), nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: failed to decode envelope: %v", ErrInvalidResponse, err)
		}
		for _, key := range keys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				continue
			}
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidResponse, key, err)
			}
			return nonNil(items), nil
		}
		return []T{}, nil
	default:
		return nil, fmt.Errorf("%w: expected list, got %q", ErrInvalidResponse, body[:1])
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// decodeOneOrFirst accepts a single object or an array and returns the
// object or the array's first element. ok is false for an empty array or null.
func decodeOneOrFirst[T any](body []byte) (*T, bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, false, nil
	}
	if body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, false, fmt.Errorf("%w: failed to decode list: %v", ErrInvalidResponse, err)
		}
		if len(items) == 0 {
			return nil, false, nil
		}
		return &items[0], true, nil
	}
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode object: %v", ErrInvalidResponse, err)
	}
	return &item, true, nil
}
