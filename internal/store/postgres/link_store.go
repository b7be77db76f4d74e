package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/store"
)

// LinkStore implements store.LinkStore using PostgreSQL.
type LinkStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewLinkStore creates a new PostgreSQL-backed link store.
func NewLinkStore(pool *pgxpool.Pool, cfg StoreConfig) *LinkStore {
	cfg.ApplyDefaults()
	return &LinkStore{pool: pool, cfg: cfg}
}

func (s *LinkStore) Create(ctx context.Context, link *models.Link) error {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO links (
			id, url, title, sensitive, created_by,
			date_created, modified_at, archived_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		link.ID,
		link.URL,
		link.Title,
		link.Sensitive,
		link.CreatedBy,
		link.DateCreated,
		link.ModifiedAt,
		link.ArchivedAt,
		link.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", mapPostgresError(err))
	}

	log.Debug().Str("link_id", link.ID.String()).Str("created_by", link.CreatedBy).Msg("Created link")

	return nil
}

func (s *LinkStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.Link, error) {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, url, title, sensitive, created_by,
			date_created, modified_at, archived_at, deleted_at
		FROM links
		WHERE created_by = $1 AND deleted_at IS NULL
		ORDER BY date_created ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, owner, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", mapPostgresError(err))
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Link, error) {
		var l models.Link
		err := row.Scan(
			&l.ID, &l.URL, &l.Title, &l.Sensitive, &l.CreatedBy,
			&l.DateCreated, &l.ModifiedAt, &l.ArchivedAt, &l.DeletedAt,
		)
		return &l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan links: %w", mapPostgresError(err))
	}

	return links, nil
}

// GroupStore implements store.GroupStore using PostgreSQL.
type GroupStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewGroupStore creates a new PostgreSQL-backed group store.
func NewGroupStore(pool *pgxpool.Pool, cfg StoreConfig) *GroupStore {
	cfg.ApplyDefaults()
	return &GroupStore{pool: pool, cfg: cfg}
}

func (s *GroupStore) Create(ctx context.Context, group *models.Group) error {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO groups (
			id, name, description, created_by,
			date_created, modified_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		group.ID,
		group.Name,
		group.Description,
		group.CreatedBy,
		group.DateCreated,
		group.ModifiedAt,
		group.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", mapPostgresError(err))
	}

	log.Debug().Str("group_id", group.ID.String()).Str("created_by", group.CreatedBy).Msg("Created group")

	return nil
}

func (s *GroupStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.Group, error) {
	ctx, cancel := s.cfg.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, created_by,
			date_created, modified_at, deleted_at
		FROM groups
		WHERE created_by = $1 AND deleted_at IS NULL
		ORDER BY date_created DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, owner, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", mapPostgresError(err))
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Group, error) {
		var g models.Group
		err := row.Scan(
			&g.ID, &g.Name, &g.Description, &g.CreatedBy,
			&g.DateCreated, &g.ModifiedAt, &g.DeletedAt,
		)
		return &g, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan groups: %w", mapPostgresError(err))
	}

	return groups, nil
}
