package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a resource identifier that the hospital API may send either as a
// JSON number or as a JSON string. The zero value means "not set".
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

// MarshalJSON keeps numeric ids numeric on the wire.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Token is a queue token. The API sends it as a number, a string such as
// "A-042", or null.
type Token string

func (t Token) String() string {
	return string(t)
}

func (t Token) IsZero() bool {
	return t == ""
}

func (t *Token) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	*t = Token(s)
	return nil
}

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// scalarString renders a JSON string, number or null as a plain string.
func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(data))
	}
}
