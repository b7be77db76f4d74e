package store

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/wolfeidau/linkstash/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrAPIKeyExists   = errors.New("api key already exists")
	ErrAlreadyExists  = errors.New("already exists")
)

// Page selects a window of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows skipped before the page starts. It
// saturates at math.MaxInt instead of overflowing.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	if p.Size > 0 && p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Normalize clamps the page into a usable range, falling back to defaultSize
// when no size is requested and capping it at maxSize.
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// APIKeyStore persists API keys and their owning identity.
type APIKeyStore interface {
	// Create stores a new key. The secret itself is never persisted, only its hash.
	Create(ctx context.Context, key *models.APIKey) error

	// GetByHash returns the live key whose secret hashes to hash.
	// Soft-deleted keys are reported as ErrAPIKeyNotFound.
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)

	// ListByOwner returns the owner's live keys, newest first, and the total count.
	ListByOwner(ctx context.Context, owner string, page Page) ([]*models.APIKey, int, error)

	// Delete soft-deletes a key owned by owner.
	Delete(ctx context.Context, owner string, id uuid.UUID) error
}

// LinkStore persists bookmarked links.
type LinkStore interface {
	Create(ctx context.Context, link *models.Link) error

	// ListByOwner returns the owner's live links, oldest first.
	ListByOwner(ctx context.Context, owner string, page Page) ([]*models.Link, error)
}

// GroupStore persists link groups.
type GroupStore interface {
	Create(ctx context.Context, group *models.Group) error

	// ListByOwner returns the owner's live groups, newest first.
	ListByOwner(ctx context.Context, owner string, page Page) ([]*models.Group, error)
}
