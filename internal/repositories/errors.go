package repositories

import (
	"errors"

	"carwash-backend/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// classify maps driver errors onto caller-visible kinds. Anything else is
// returned unchanged and surfaces as a store error.
func classify(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound("%s not found", entity)
	case isUniqueViolation(err):
		return apperr.Conflict("%s already exists", entity)
	case isForeignKeyViolation(err):
		return apperr.Validation("%s references a missing record", entity)
	}
	return err
}

// nullIfEmpty stores "" as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// notFoundIfNone turns a zero-row UPDATE into a NotFound error.
func notFoundIfNone(tag pgconn.CommandTag, err error, entity string) error {
	if err != nil {
		return classify(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("%s not found", entity)
	}
	return nil
}
