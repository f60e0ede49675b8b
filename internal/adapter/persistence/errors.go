package persistence

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// sqlStateInsufficientPrivilege is raised for grant and row-level security rejections
const sqlStateInsufficientPrivilege = "42501"

// WriteError is returned when the store rejects a write for one entity type
type WriteError struct {
	Entity string
	Err    error
}

func (e *WriteError) Error() string {
	if e.IsPolicyViolation() {
		return fmt.Sprintf("failed to write %s: write rejected by access policy: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("failed to write %s: %v", e.Entity, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsPolicyViolation reports whether the store refused the write on access grounds
func (e *WriteError) IsPolicyViolation() bool {
	var pqErr *pq.Error
	return errors.As(e.Err, &pqErr) && pqErr.Code == sqlStateInsufficientPrivilege
}

// IsPolicyViolation reports whether err wraps a write refused on access grounds
func IsPolicyViolation(err error) bool {
	var writeErr *WriteError
	return errors.As(err, &writeErr) && writeErr.IsPolicyViolation()
}

func newWriteError(entity string, err error) error {
	return &WriteError{Entity: entity, Err: err}
}
