package models

import (
	"time"
)

// Session represents a user's authenticated browser session.
// The session ID is the only value stored in the cookie, while all session data lives server-side.
type Session struct {
	ID        string // opaque random identifier, the cookie value
	Principal *Principal

	// Raw material from the identity provider
	IDToken  string
	UserInfo *UserInfo

	CreatedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// Clone returns a deep copy of the session so callers never share the stored record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Principal = s.Principal.Clone()
	clone.UserInfo = s.UserInfo.Clone()
	return &clone
}
