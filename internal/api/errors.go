package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound marks a dataset, survey, year or route that does not exist upstream
var ErrNotFound = errors.New("resource does not exist upstream")

// StatusError is returned for any non-success HTTP status
type StatusError struct {
	Provider   string
	Route      string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status: %d %s", e.Provider, e.Route, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets errors.Is(err, ErrNotFound) match 400 and 404 responses
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}
