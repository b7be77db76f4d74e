package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/store"
)

// APIKeyStore implements store.APIKeyStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type APIKeyStore struct {
	mu sync.RWMutex

	keys       map[uuid.UUID]*models.APIKey // key_id -> APIKey
	keysByHash map[string]*models.APIKey    // key_hash -> APIKey
}

// NewAPIKeyStore creates a new in-memory API key store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys:       make(map[uuid.UUID]*models.APIKey),
		keysByHash: make(map[string]*models.APIKey),
	}
}

// Create stores a new API key in memory.
func (s *APIKeyStore) Create(ctx context.Context, key *models.APIKey) error {
	if key.KeyHash == "" || key.CreatedBy == "" {
		return errors.New("api key hash and owner are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key.ID]; exists {
		return store.ErrAPIKeyExists
	}
	if _, exists := s.keysByHash[key.KeyHash]; exists {
		return store.ErrAPIKeyExists
	}

	// Clone to avoid external modifications, dropping the plaintext secret
	clone := *key
	clone.Key = ""
	s.keys[clone.ID] = &clone
	s.keysByHash[clone.KeyHash] = &clone

	return nil
}

// GetByHash retrieves a non-revoked key by the hash of its secret.
func (s *APIKeyStore) GetByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, exists := s.keysByHash[hash]
	if !exists || key.IsRevoked() {
		return nil, store.ErrAPIKeyNotFound
	}

	// Clone to avoid external modifications
	clone := *key
	return &clone, nil
}

// ListByOwner returns the owner's non-revoked keys, newest first.
func (s *APIKeyStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.APIKey, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*models.APIKey
	for _, k := range s.keys {
		if k.CreatedBy != owner || k.IsRevoked() {
			continue
		}
		clone := *k
		owned = append(owned, &clone)
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return paginate(owned, page), len(owned), nil
}

// Delete soft-deletes a key by setting its deleted_at timestamp.
func (s *APIKeyStore) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, exists := s.keys[id]
	if !exists || key.IsRevoked() || key.CreatedBy != owner {
		return store.ErrAPIKeyNotFound
	}

	now := time.Now()
	key.DeletedAt = &now

	return nil
}

func paginate[T any](items []T, page store.Page) []T {
	if page.Size < 1 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+page.Size, len(items))
	return items[start:end]
}
