package service

import (
	"errors"
	"fmt"

	"github.com/nebari-dev/refstore/internal/versioning"
)

// ErrNotFound indicates the requested resource was not found.
var ErrNotFound = errors.New("not found")

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(format string, args ...interface{}) error {
	return &NotFoundError{What: fmt.Sprintf(format, args...)}
}

// ErrForbidden indicates the credential is scoped to a different app.
var ErrForbidden = errors.New("credential is not allowed to access this app")

// ValidationError represents a bad-request condition (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError represents a conflict condition (HTTP 409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// storeError maps version store errors onto the service taxonomy.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, versioning.ErrNotFound):
		return notFound("version")
	case errors.Is(err, versioning.ErrInvalidStatus):
		return &ValidationError{Message: "status must be one of draft, active, stable, deprecated"}
	case errors.Is(err, versioning.ErrVersionConflict):
		return &ConflictError{Message: "version was created concurrently, retry the request"}
	}
	return err
}
