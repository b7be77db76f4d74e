package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreConfig holds settings shared by the PostgreSQL stores.
// Pool configuration is handled separately via PoolConfig.
type StoreConfig struct {
	// QueryTimeout is the maximum time a query can run before timing out.
	// Default: 10 seconds
	// Set to a negative value to use context timeouts only.
	QueryTimeout time.Duration
}

// Validate checks that the configuration is valid.
func (c *StoreConfig) Validate() error {
	if c.QueryTimeout > time.Minute {
		return fmt.Errorf("query timeout must be at most 1m, got %s", c.QueryTimeout)
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *StoreConfig) ApplyDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

func (c StoreConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.QueryTimeout)
}

// Stores groups the PostgreSQL stores built over one pool.
type Stores struct {
	APIKeys *APIKeyStore
	Links   *LinkStore
	Groups  *GroupStore
}

// NewStores creates every PostgreSQL-backed store over pool.
func NewStores(pool *pgxpool.Pool, cfg StoreConfig) (*Stores, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Stores{
		APIKeys: NewAPIKeyStore(pool, cfg),
		Links:   NewLinkStore(pool, cfg),
		Groups:  NewGroupStore(pool, cfg),
	}, nil
}
