package client

import (
	"fmt"
)

// TransportError is a failed request or a non-2xx reply other than an auth
// challenge. The stream was never started.
type TransportError struct {
	StatusCode int    // 0 when no response arrived
	Body       string // excerpt of the reply body
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthRequiredError means the backend rejected the credential. Send turns it
// into a login round trip and only returns it when no login collaborator is
// configured.
type AuthRequiredError struct {
	StatusCode int
	Reason     string
}

func (e *AuthRequiredError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication required (HTTP %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("authentication required (HTTP %d)", e.StatusCode)
}
