package pgstore

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pgstore: failed to open db connection")
	ErrFailedToParseDBConfig    = errors.New("pgstore: failed to parse db config")
	ErrFailedToApplyMigrations  = errors.New("pgstore: failed to apply migrations")
	ErrHealthcheckFailed        = errors.New("pgstore: healthcheck failed, connection is not available")
	ErrDuplicateNotification    = errors.New("pgstore: notification already exists")
)

// IsNotFoundError detects pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects PostgreSQL unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
