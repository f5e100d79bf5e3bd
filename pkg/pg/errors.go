package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmptyConnectionString is returned when no connection string is
	// configured.
	ErrEmptyConnectionString = errors.New("postgres connection string is empty")

	// ErrFailedToParseConfig is returned when the connection string
	// cannot be parsed.
	ErrFailedToParseConfig = errors.New("failed to parse postgres config")

	// ErrFailedToConnect is returned when the pool cannot be
	// established after all retry attempts.
	ErrFailedToConnect = errors.New("failed to connect to postgres")

	// ErrHealthcheckFailed is returned when a ping against an open pool
	// fails.
	ErrHealthcheckFailed = errors.New("postgres healthcheck failed")
)

// IsNotFoundError reports whether err indicates an empty result set.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports whether err is a unique constraint
// violation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolationError reports whether err is a foreign key
// constraint violation.
func IsForeignKeyViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
