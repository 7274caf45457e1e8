package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already registered")
)

const uniqueViolation = "23505"

// uniqueConstraint reports the violated constraint name when err is a
// Postgres unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func mapUserConflict(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	if strings.Contains(constraint, "email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
