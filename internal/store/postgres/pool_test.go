package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/linkstash/internal/store"
)

func TestPoolConfig_ApplyDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/db"}
	cfg.ApplyDefaults()

	require.Equal(t, int32(20), cfg.MaxConns)
	require.Equal(t, int32(5), cfg.MinConns)
	require.Equal(t, int32(3600), cfg.MaxConnLifetime)
	require.Equal(t, int32(1800), cfg.MaxConnIdleTime)
	require.Equal(t, int32(60), cfg.HealthCheckPeriod)
	require.Equal(t, int32(10), cfg.ConnectTimeout)
	require.Equal(t, uint(5), cfg.ConnectMaxTries)
	require.NoError(t, cfg.Validate())
}

func TestPoolConfig_Validate(t *testing.T) {
	require.Error(t, (&PoolConfig{}).Validate())
	require.Error(t, (&PoolConfig{ConnString: "postgres://x", MinConns: 10, MaxConns: 2}).Validate())
}

func TestNewPool_InvalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{ConnString: "postgres://user@localhost:notaport/db"})
	require.Error(t, err)
}

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "api key hash duplicate",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "api_keys_key_hash_key"},
			sentinel: store.ErrAPIKeyExists,
		},
		{
			name:     "other duplicate",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "links_pkey"},
			sentinel: store.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapPostgresError(tt.err), tt.sentinel)
		})
	}

	require.NoError(t, mapPostgresError(nil))

	plain := errors.New("plain")
	require.Equal(t, plain, mapPostgresError(plain))

	wrapped := mapPostgresError(&pgconn.PgError{Code: pgerrcode.AdminShutdown})
	require.ErrorContains(t, wrapped, "database server unavailable")
}

func TestStoreConfig(t *testing.T) {
	cfg := StoreConfig{}
	cfg.ApplyDefaults()
	require.Equal(t, 10*time.Second, cfg.QueryTimeout)
	require.NoError(t, cfg.Validate())

	require.Error(t, (&StoreConfig{QueryTimeout: 2 * time.Minute}).Validate())

	ctx, cancel := cfg.withTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	require.True(t, ok)

	ctx, cancel = StoreConfig{QueryTimeout: -1}.withTimeout(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	require.False(t, ok)
}
