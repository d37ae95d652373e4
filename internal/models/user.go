package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the public profile stored in PostgreSQL. No email, no phone;
// accounts are username + password only.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"-"`
}

// Contact is a user as shown in the conversation sidebar.
type Contact struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"` // "online" or "offline", from presence TTL
}
