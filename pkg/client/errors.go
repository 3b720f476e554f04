package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/takutakahashi/storefront/pkg/utils"
)

var (
	// ErrAuthenticationExpired means the stored credentials can no longer be used
	// and the user has to log in again. The credential store has been cleared.
	ErrAuthenticationExpired = errors.New("authentication expired")

	// ErrNoRefreshCredential is returned when a request was rejected with 401 and
	// there was no refresh credential to recover with
	ErrNoRefreshCredential = fmt.Errorf("%w: no refresh credential", ErrAuthenticationExpired)

	// ErrRefreshFailed is returned to every caller of a failed refresh episode
	ErrRefreshFailed = fmt.Errorf("%w: refresh failed", ErrAuthenticationExpired)

	// ErrValidationFailed marks 4xx responses carrying field-level detail
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidCredentials marks a rejected login
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrValidationFailed)
)

// HTTPError is returned for non-2xx responses that are passed through to the caller
type HTTPError = utils.HTTPError

// ValidationError carries the backend's field-level messages verbatim
type ValidationError struct {
	StatusCode int
	// Detail is the backend's "detail" value, when present
	Detail []string
	// Fields maps a field name to its messages
	Fields map[string][]string
	// Body is the raw response body
	Body []byte

	kind error
}

// Error renders the messages the way the storefront register form shows them
func (e *ValidationError) Error() string {
	if len(e.Detail) > 0 {
		return strings.Join(e.Detail, ", ")
	}

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
		}
		return strings.Join(parts, " | ")
	}

	if e.kind != nil {
		return e.kind.Error()
	}
	return ErrValidationFailed.Error()
}

// Unwrap exposes the error kind for errors.Is
func (e *ValidationError) Unwrap() error {
	if e.kind == nil {
		return ErrValidationFailed
	}
	return e.kind
}

// newValidationError parses a DRF-style error body:
// {"detail": "..."} or {"detail": ["..."]} or {"field": ["msg", ...], "other": "msg"}
func newValidationError(statusCode int, body []byte, kind error) *ValidationError {
	verr := &ValidationError{
		StatusCode: statusCode,
		Fields:     make(map[string][]string),
		Body:       body,
		kind:       kind,
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			verr.Detail = []string{text}
		}
		return verr
	}

	for key, value := range raw {
		messages := decodeMessages(value)
		if len(messages) == 0 {
			continue
		}
		if key == "detail" {
			verr.Detail = messages
			continue
		}
		verr.Fields[key] = messages
	}

	return verr
}

// decodeMessages accepts a string or a list of strings
func decodeMessages(value json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}

	return nil
}
