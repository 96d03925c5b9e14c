package blip

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned when the API rejects the key.
var ErrUnauthorized = errors.New("401 unauthorized: check the key (without the 'Key ' prefix) and the bot it belongs to")

// StatusError reports a non-success HTTP status from the commands endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status: %s: %s", e.Status, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Unwrap lets errors.Is match ErrUnauthorized on a 401.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func isTransient(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Transient()
}
