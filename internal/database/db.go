package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
)

// MapPostgresError translates driver errors into the service's sentinel
// errors so handlers never branch on SQLSTATE codes.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23503", "23502": // foreign key / not null violations
			return models.ErrBadRequest
		}
	}

	return err
}
