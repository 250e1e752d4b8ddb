package stats

import (
	"errors"
	"fmt"
)

// ErrEmptyRepository is matched by RepositoryError
var ErrEmptyRepository = errors.New("variable repository does not hold the requested codes")

// RepositoryError reports requested codes that are not loaded in the
// variable repository
type RepositoryError struct {
	Requested int
	Found     int
	Missing   []string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%v (requested=%d, found=%d, missing=%v): load their groups with GetVariablesByGroup or GetAllVariables first",
		ErrEmptyRepository, e.Requested, e.Found, e.Missing)
}

func (e *RepositoryError) Unwrap() error {
	return ErrEmptyRepository
}
