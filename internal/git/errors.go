package git

import (
	"errors"
	"fmt"
)

// ErrEmptyRepository is matched by errors.Is for any *EmptyRepositoryError.
var ErrEmptyRepository = errors.New("repository is empty")

// RepositoryError reports a failed git invocation or an unusable mirror directory.
type RepositoryError struct {
	Cause string
	Err   error
}

func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Cause, e.Err)
	}
	return e.Cause
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// EmptyRepositoryError is returned by log, show and rev-list on a mirror
// that holds no objects. Callers treat it as "no commits".
type EmptyRepositoryError struct {
	Repository string
}

func (e *EmptyRepositoryError) Error() string {
	return e.Repository + " is empty"
}

func (e *EmptyRepositoryError) Is(target error) bool {
	return target == ErrEmptyRepository
}

// ParseError is a fatal grammar violation in a log stream.
type ParseError struct {
	Line  int
	Cause string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s on line %d", e.Cause, e.Line)
}

// IsEmptyRepository reports whether err signals an empty mirror.
func IsEmptyRepository(err error) bool {
	return errors.Is(err, ErrEmptyRepository)
}
