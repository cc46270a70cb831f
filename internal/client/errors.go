package client

import (
	"fmt"
	"time"
)

// UsageError is a problem with how the command was invoked: an unknown
// command, bad options or an invalid address.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ResponseError is a failure reported by the host.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string { return e.Message }

// TimeoutError means no response arrived within the command's timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for response from the terminal", e.Timeout)
}
