package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConflict           = errors.New("conflict")
	ErrStaleVersion       = errors.New("session was modified by another request")
	ErrStorageDisabled    = errors.New("proof storage is not configured")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRegistrationClosed = errors.New("registration is closed")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNumericOutOfRange   = "22003"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
