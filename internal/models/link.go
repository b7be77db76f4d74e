package models

import (
	"time"

	"github.com/google/uuid"
)

// Link is a bookmarked URL owned by a principal.
type Link struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Title       *string    `json:"title"`
	Sensitive   bool       `json:"sensitive"`
	CreatedBy   string     `json:"created_by"`
	DateCreated time.Time  `json:"date_created"`
	ModifiedAt  *time.Time `json:"modified_at"`
	ArchivedAt  *time.Time `json:"archived_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// Group is a named collection of links owned by a principal.
type Group struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	CreatedBy   string     `json:"created_by"`
	DateCreated time.Time  `json:"date_created"`
	ModifiedAt  *time.Time `json:"modified_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}
