package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/store"
)

// APIKeyStore implements store.APIKeyStore using PostgreSQL.
type APIKeyStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewAPIKeyStore creates a new PostgreSQL-backed API key store.
func NewAPIKeyStore(pool *pgxpool.Pool, cfg StoreConfig) *APIKeyStore {
	cfg.ApplyDefaults()
	return &APIKeyStore{
		pool: pool,
		cfg:  cfg,
	}
}

// Create inserts a new API key. Only the hash of the secret is written.
func (s *APIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO api_keys (id, created_by, key_hash, prefix, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		key.ID,
		key.CreatedBy,
		key.KeyHash,
		key.Prefix,
		key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("key_id", key.ID.String()).
		Str("created_by", key.CreatedBy).
		Msg("Created api key")

	return nil
}

// GetByHash retrieves a non-revoked key by the hash of its secret.
func (s *APIKeyStore) GetByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, created_by, key_hash, prefix, created_at, deleted_at
		FROM api_keys
		WHERE key_hash = $1 AND deleted_at IS NULL
	`

	key, err := scanAPIKey(s.pool.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", mapPostgresError(err))
	}

	return key, nil
}

// ListByOwner returns the owner's non-revoked keys, newest first.
func (s *APIKeyStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.APIKey, int, error) {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM api_keys WHERE created_by = $1 AND deleted_at IS NULL
	`, owner).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count api keys: %w", mapPostgresError(err))
	}

	query := `
		SELECT id, created_by, key_hash, prefix, created_at, deleted_at
		FROM api_keys
		WHERE created_by = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, owner, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list api keys: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate api keys: %w", mapPostgresError(err))
	}

	return keys, total, nil
}

// Delete soft-deletes a key owned by owner.
func (s *APIKeyStore) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE api_keys
		SET deleted_at = now()
		WHERE id = $1 AND created_by = $2 AND deleted_at IS NULL
	`

	tag, err := s.pool.Exec(ctx, query, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAPIKeyNotFound
	}

	log.Debug().Str("key_id", id.String()).Str("created_by", owner).Msg("Revoked api key")

	return nil
}

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	err := row.Scan(
		&key.ID,
		&key.CreatedBy,
		&key.KeyHash,
		&key.Prefix,
		&key.CreatedAt,
		&key.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
