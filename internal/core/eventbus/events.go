// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within okr.
package eventbus

import (
	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
)

// Events defines all event types and their payload structs.
var Events = map[string]any{
	// Keep list sorted A-Z
	"comment.added":          CommentAddedPayload{},
	"config.reloaded":        ConfigReloadedPayload{},
	"key_result.checked_in":  KeyResultCheckedInPayload{},
	"key_result.created":     KeyResultCreatedPayload{},
	"key_result.deleted":     KeyResultDeletedPayload{},
	"key_result.updated":     KeyResultUpdatedPayload{},
	"notification.published": NotificationPublishedPayload{},
	"objective.created":      ObjectiveCreatedPayload{},
	"objective.deleted":      ObjectiveDeletedPayload{},
	"objective.updated":      ObjectiveUpdatedPayload{},
	"period.missed":          PeriodMissedPayload{},
	"user.updated":           UserUpdatedPayload{},
}

// UserUpdatedPayload is emitted when a user is created or changed.
type UserUpdatedPayload struct {
	User okr.User
}

// ObjectiveCreatedPayload is emitted when a new objective is created,
// including any key results created with it.
type ObjectiveCreatedPayload struct {
	Objective okr.Objective
}

// ObjectiveUpdatedPayload is emitted when objective fields or its archived
// flag change.
type ObjectiveUpdatedPayload struct {
	Objective okr.Objective
}

// ObjectiveDeletedPayload is emitted when an objective is deleted.
type ObjectiveDeletedPayload struct {
	ObjectiveID string
	Title       string
}

// KeyResultCreatedPayload is emitted when a key result is added to an objective.
type KeyResultCreatedPayload struct {
	KeyResult okr.KeyResult
}

// KeyResultUpdatedPayload is emitted when key result fields or its archived
// flag change.
type KeyResultUpdatedPayload struct {
	KeyResult okr.KeyResult
}

// KeyResultDeletedPayload is emitted when a key result is deleted.
type KeyResultDeletedPayload struct {
	ObjectiveID string
	KeyResultID string
	Title       string
}

// KeyResultCheckedInPayload is emitted after a check-in is recorded.
// Adopted reports whether the check-in moved the current value.
type KeyResultCheckedInPayload struct {
	KeyResult okr.KeyResult
	CheckIn   okr.CheckIn
	Adopted   bool
}

// CommentAddedPayload is emitted when a comment is added to a key result.
type CommentAddedPayload struct {
	ObjectiveID    string
	KeyResultID    string
	KeyResultTitle string
	Comment        okr.Comment
}

// PeriodMissedPayload is emitted by the reminder job for an elapsed period
// that had no report or fell short of its target.
type PeriodMissedPayload struct {
	ObjectiveID    string
	KeyResultID    string
	KeyResultTitle string
	OwnerID        string
	Period         tracker.PeriodStatus
}

// ConfigReloadedPayload is emitted when configuration is reloaded.
type ConfigReloadedPayload struct {
	Config *config.Config
}

// NotificationPublishedPayload carries a user-facing notification.
type NotificationPublishedPayload struct {
	Level       notify.Level
	Message     string
	ObjectiveID string
	KeyResultID string
}
