package models

import (
	"time"
)

// FavoriteCommand is a saved command snippet a user can re-run from the chat
// frontend.
type FavoriteCommand struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Command     string    `json:"command" db:"command"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// FavoriteCommandCreate is the creation payload.
type FavoriteCommandCreate struct {
	Command     string `json:"command" binding:"required"`
	Description string `json:"description"`
}
