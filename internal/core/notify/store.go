// Package notify defines user-facing notifications and their persistence.
package notify

import (
	"context"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single entry in the notification feed. ObjectiveID and
// KeyResultID point at the subject when there is one.
type Notification struct {
	ID          int64     `json:"id"`
	Level       Level     `json:"level"`
	Message     string    `json:"message"`
	ObjectiveID string    `json:"objectiveId,omitempty"`
	KeyResultID string    `json:"keyResultId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists notifications to durable storage.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	// List returns the newest notifications first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Notification, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
