// Package secrets generates the unguessable values handed out by the service:
// session identifiers, OAuth state nonces and API key secrets.
package secrets

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/mr-tron/base58"
)

const (
	sessionIDBytes = 32
	stateBytes     = 24
	apiKeyBytes    = 24

	// APIKeyPrefixLen is how many leading characters of a key are kept for display.
	APIKeyPrefixLen = 8
)

// Generator hands out base58 encoded random values. The underlying source is
// shared, so every read happens while holding the lock.
type Generator struct {
	mu  sync.Mutex
	src io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{src: rand.Reader}
}

// NewGeneratorFromReader returns a generator backed by src. Intended for tests.
func NewGeneratorFromReader(src io.Reader) *Generator {
	return &Generator{src: src}
}

// SessionID returns a new 256-bit session identifier.
func (g *Generator) SessionID() (string, error) {
	return g.token(sessionIDBytes)
}

// State returns a nonce for a single authorization attempt.
func (g *Generator) State() (string, error) {
	return g.token(stateBytes)
}

// APIKey returns a new API key secret.
func (g *Generator) APIKey() (string, error) {
	return g.token(apiKeyBytes)
}

func (g *Generator) token(n int) (string, error) {
	buf := make([]byte, n)
	err := g.withSource(func(r io.Reader) error {
		_, err := io.ReadFull(r, buf)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base58.Encode(buf), nil
}

// withSource runs fn with exclusive access to the random source. The lock is
// released on every exit path, including a panic in fn.
func (g *Generator) withSource(fn func(io.Reader) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.src)
}
