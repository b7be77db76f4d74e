// Package session holds the process-local table of authenticated browser sessions.
package session

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/wolfeidau/linkstash/internal/models"
)

const shardCount = 32

var ErrExists = errors.New("session already exists")

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// Table maps session identifiers to sessions. Entries are split across
// shards by hash so readers never block each other and writers only contend
// with operations on the same shard.
//
// Sessions live until they are removed or the process exits; there is no expiry.
type Table struct {
	shards [shardCount]*shard
}

// NewTable creates an empty session table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i] = &shard{sessions: make(map[string]*models.Session)}
	}
	return t
}

func (t *Table) shardFor(id string) *shard {
	return t.shards[xxhash.Sum64String(id)%shardCount]
}

// Put inserts a session under id. An existing entry is never replaced;
// ErrExists is returned instead.
func (t *Table) Put(id string, s *models.Session) error {
	if s == nil {
		return errors.New("session is required")
	}

	sh := t.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[id]; ok {
		return ErrExists
	}

	// Clone to avoid external modifications
	clone := s.Clone()
	clone.ID = id
	sh.sessions[id] = clone

	return nil
}

// Get returns a copy of the session stored under id.
func (t *Table) Get(id string) (*models.Session, bool) {
	sh := t.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	s, ok := sh.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Remove deletes the session stored under id and reports whether one existed.
// Removing an absent id is a no-op.
func (t *Table) Remove(id string) bool {
	sh := t.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[id]; !ok {
		return false
	}
	delete(sh.sessions, id)
	return true
}

// Len returns the number of live sessions. Shards are counted one at a time,
// so the result is approximate while writers are active.
func (t *Table) Len() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
