package database

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation    = "23505"
	exclusionViolation = "23P01"
)

// IsUniqueViolation reports whether the error is a Postgres unique constraint
// violation, the signal a concurrent writer already inserted the same key.
func IsUniqueViolation(err error) bool {
	return hasPQCode(err, uniqueViolation)
}

// IsExclusionViolation reports whether the error is a Postgres exclusion
// constraint violation, raised when overlapping ranges collide.
func IsExclusionViolation(err error) bool {
	return hasPQCode(err, exclusionViolation)
}

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
