package llm_client

import (
	"errors"
	"fmt"
)

var ErrNotInitialized = errors.New("llm_client: provider not initialized")

// ServiceError wraps a transport-level failure (timeout, rate limit, network)
// from a reasoning backend. These are retryable; structural problems with the
// returned payload are not ours to report and surface as schema errors in the
// contract layer instead.
type ServiceError struct {
	Backend string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
