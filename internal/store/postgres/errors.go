package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/linkstash/internal/store"
)

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == "api_keys_key_hash_key" || pgErr.ConstraintName == "api_keys_pkey" {
			return fmt.Errorf("%w: %s", store.ErrAPIKeyExists, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", store.ErrAlreadyExists, pgErr.ConstraintName)

	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return fmt.Errorf("constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}
