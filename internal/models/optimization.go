package models

import (
	"time"
)

// OptimizationStatus represents the lifecycle of a recorded optimization session
type OptimizationStatus string

const (
	OptimizationStatusCompleted OptimizationStatus = "COMPLETED"
	OptimizationStatusFallback  OptimizationStatus = "FALLBACK"
	OptimizationStatusFailed    OptimizationStatus = "FAILED"
)

// OptimizationRecord is the persisted trace of one optimization turn: what
// the user asked, what came back, and how.
type OptimizationRecord struct {
	ID              string             `json:"id" db:"id"`
	SessionID       string             `json:"session_id" db:"session_id"`
	UserID          string             `json:"user_id,omitempty" db:"user_id"`
	OriginalPrompt  string             `json:"original_prompt" db:"original_prompt"`
	OptimizedPrompt string             `json:"optimized_prompt,omitempty" db:"optimized_prompt"`
	Mode            string             `json:"mode" db:"mode"`
	Status          OptimizationStatus `json:"status" db:"status"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
}
