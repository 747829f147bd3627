package versioning

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the parent entity or the addressed version does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoMatch means the entity exists but no version satisfies the tag.
	ErrNoMatch = errors.New("no version matches tag")

	// ErrVersionConflict is returned when concurrent creators kept colliding on
	// the same version number until the retry budget ran out.
	ErrVersionConflict = errors.New("version number conflict")

	// ErrInvalidStatus is returned when promoting to an unknown status.
	ErrInvalidStatus = errors.New("invalid status")
)

// IsUniqueViolation reports whether err is a unique-index violation on any
// supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// glebarez/sqlite only translates when TranslateError is set
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
