package billing

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by clients used before Configure succeeds
var ErrNotConfigured = errors.New("billing client not configured")

// NetworkError indicates the billing service could not be reached
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("billing %s: network error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("billing %s: network error", e.Op)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err wraps a *NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
