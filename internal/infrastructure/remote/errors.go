// Package remote contains the HTTP adapters for the storefront REST API:
// the cart service, the book catalog, orders and authentication.
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is the distinguished 401 signal. It means the caller's
// identity is no longer valid and the session must be torn down, which is a
// different condition from an ordinary failed call.
var ErrUnauthorized = errors.New("remote: unauthorized")

// ServiceError is a failed response from the storefront API
type ServiceError struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: service error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("remote: service error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrUnauthorized on 401 responses
func (e *ServiceError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err is the 401 protocol signal
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
