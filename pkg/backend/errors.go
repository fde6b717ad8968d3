package backend

import (
	"errors"
	"fmt"
)

// ErrNetworkUnavailable is wrapped by every error caused by a transport failure:
// the backend could not be reached or the connection broke before a response arrived.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ErrNotFound is returned when a demo-mode update targets an id that does not exist.
var ErrNotFound = errors.New("not found")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Code)
}

// IsNotFound checks if an error means the requested entity does not exist.
// A 404 from a remote backend counts as not found as well.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	code, ok := StatusCode(err)
	return ok && code == 404
}

// IsNetworkUnavailable checks if an error was caused by a transport failure.
func IsNetworkUnavailable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

// StatusCode extracts the HTTP status from a *StatusError anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}
