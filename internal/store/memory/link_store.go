package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/linkstash/internal/models"
	"github.com/wolfeidau/linkstash/internal/store"
)

// LinkStore implements store.LinkStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type LinkStore struct {
	mu    sync.RWMutex
	links map[uuid.UUID]*models.Link
}

// NewLinkStore creates a new in-memory link store.
func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[uuid.UUID]*models.Link)}
}

func (s *LinkStore) Create(ctx context.Context, link *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[link.ID]; exists {
		return store.ErrAlreadyExists
	}

	clone := *link
	s.links[link.ID] = &clone
	return nil
}

func (s *LinkStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*models.Link
	for _, l := range s.links {
		if l.CreatedBy != owner || l.DeletedAt != nil {
			continue
		}
		clone := *l
		owned = append(owned, &clone)
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].DateCreated.Before(owned[j].DateCreated)
	})

	return paginate(owned, page), nil
}

// GroupStore implements store.GroupStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type GroupStore struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]*models.Group
}

// NewGroupStore creates a new in-memory group store.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[uuid.UUID]*models.Group)}
}

func (s *GroupStore) Create(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[group.ID]; exists {
		return store.ErrAlreadyExists
	}

	clone := *group
	s.groups[group.ID] = &clone
	return nil
}

func (s *GroupStore) ListByOwner(ctx context.Context, owner string, page store.Page) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*models.Group
	for _, g := range s.groups {
		if g.CreatedBy != owner || g.DeletedAt != nil {
			continue
		}
		clone := *g
		owned = append(owned, &clone)
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].DateCreated.After(owned[j].DateCreated)
	})

	return paginate(owned, page), nil
}
