package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrTimeout indicates the per-call deadline elapsed.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork indicates the transport failed before a response arrived.
	ErrNetwork = errors.New("network unreachable")
	// ErrMalformedResponse indicates a 2xx response missing a required field.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is a 4xx/5xx response with its message extracted from the
// body's conventional fields.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// classifyTransport converts a raw transport failure into the timeout
// or network kind. Nothing leaves this package unclassified.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// messageFromBody probes the conventional error fields of a failure body.
func messageFromBody(status int, body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil {
		for _, field := range []string{"message", "error", "detail"} {
			if v, ok := doc[field].(string); ok && v != "" {
				return v
			}
		}
	}
	return http.StatusText(status)
}

// UserMessage maps any transport-level failure to a single
// human-readable message. Unknown errors fall back to their own text.
func UserMessage(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.Status == http.StatusUnauthorized:
			return "Your credentials were not accepted. Please log in again."
		case statusErr.Status == http.StatusForbidden:
			return "You don't have permission to perform this action."
		case statusErr.Status == http.StatusNotFound:
			return "The requested resource was not found."
		case statusErr.Status >= 500:
			return "The Qveris service reported an error. Please try again later."
		default:
			return statusErr.Message
		}
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the Qveris service. Check your network connection."
	default:
		return err.Error()
	}
}
