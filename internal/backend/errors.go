package backend

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrUnauthorized   = errors.New("backend rejected credentials")
	ErrUnavailable    = errors.New("order service unavailable")
	ErrMalformedReply = errors.New("malformed response from order service")
)

// RejectedError is a business rejection from the backend, e.g. stock changed
// or totals did not validate. Message is meant for the shopper.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected (%d): %s", e.StatusCode, e.Message)
}
