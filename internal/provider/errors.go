package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// FallbackMessage is shown when a failure carries no provider description.
const FallbackMessage = "Failed to connect."

// APIError is returned for any non-2xx provider response.
type APIError struct {
	Method      string
	Path        string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider error (%d) on %s %s: %s",
			e.StatusCode, e.Method, e.Path, e.Description)
	}
	return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path)
}

// IsAuthError reports whether err (or any error in its chain) is a 401
// from the provider, meaning the token is no longer accepted.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// UserMessage returns the provider's description of err when it has one,
// otherwise FallbackMessage.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Description != "" {
		return apiErr.Description
	}
	return FallbackMessage
}
