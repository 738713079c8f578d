package api

import (
	"fmt"

	"google.golang.org/api/googleapi"
)

// APIError is a failure that maps to a specific HTTP status
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ResolutionError aborts channel resolution when a search call is rejected
// with an explicit upstream message (quota, key restrictions).
type ResolutionError struct {
	Query string
	Err   *googleapi.Error
}

func (e *ResolutionError) Error() string {
	if e.Err.Message != "" {
		return e.Err.Message
	}
	return fmt.Sprintf("channel search for %q failed with status %d", e.Query, e.Err.Code)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
