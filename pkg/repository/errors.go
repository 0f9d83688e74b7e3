package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgInvalidTextValue = "22P02"
)

// Errors holds the domain errors a repository maps database failures onto.
// A nil field leaves the corresponding failure unmapped.
type Errors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// Map translates database errors to domain errors.
// sql.ErrNoRows maps to NotFound, unique violations (23505) to Duplicate,
// and check violations (23514) or malformed input values (22P02) to Invalid.
// Other errors are returned unchanged.
func (m Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && m.NotFound != nil {
		return m.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgUniqueViolation && m.Duplicate != nil:
		return m.Duplicate
	case (pgErr.Code == pgCheckViolation || pgErr.Code == pgInvalidTextValue) && m.Invalid != nil:
		return m.Invalid
	}

	return err
}
