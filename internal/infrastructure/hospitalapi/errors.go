package hospitalapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when no valid credentials are held and
	// the refresh token could not obtain new ones.
	ErrUnauthenticated = errors.New("hospitalapi: not authenticated")

	// ErrInternal is returned for client side failures (encoding, transport).
	ErrInternal = errors.New("hospitalapi client: internal error")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = errors.New("hospitalapi client: invalid response")
)

// APIError is a non-2xx answer from the hospital API. Message carries the
// server provided text so it can be shown to the user verbatim.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Message: serverMessage(status, body),
		Body:    body,
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// serverMessage picks detail, error or message, then the first field error
// in document order, and finally a generic "HTTP <status>".
func serverMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return fallback
	}

	var known struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &known); err != nil {
		return fallback
	}
	for _, raw := range []json.RawMessage{known.Detail, known.Error, known.Message} {
		if msg := firstText(raw); msg != "" {
			return msg
		}
	}

	if field, msg := firstFieldError(body); msg != "" {
		if field == "non_field_errors" {
			return msg
		}
		return field + ": " + msg
	}
	return fallback
}

// firstText returns a string value, or the first string of an array value.
func firstText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			if s := firstText(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFieldError(body []byte) (string, string) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", ""
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", ""
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", ""
		}
		if msg := firstText(raw); msg != "" {
			return key, msg
		}
	}
	return "", ""
}

func isUnauthorized(status int) bool {
	return status == http.StatusUnauthorized
}
