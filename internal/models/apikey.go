package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived bearer credential owned by a single principal.
// Only the SHA-256 hash of the secret is persisted; Key is populated on the
// value returned from creation and nowhere else.
type APIKey struct {
	ID        uuid.UUID // UUIDv7
	CreatedBy string    // owner subject identifier, fixed at creation
	Key       string    `json:"-"`
	KeyHash   string    // hex SHA-256 of the secret
	Prefix    string    // first characters of the secret, for display
	CreatedAt time.Time
	DeletedAt *time.Time // soft delete
}

// IsRevoked returns true if the key has been soft-deleted.
func (k *APIKey) IsRevoked() bool {
	return k.DeletedAt != nil
}

// HashAPIKey returns the lookup hash for a presented secret.
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
