package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Subject returns the objective and key result IDs a payload refers to.
// Either may be empty.
func Subject(payload any) (objectiveID, keyResultID string) {
	switch p := payload.(type) {
	case ObjectiveCreatedPayload:
		return p.Objective.ID, ""
	case ObjectiveUpdatedPayload:
		return p.Objective.ID, ""
	case ObjectiveDeletedPayload:
		return p.ObjectiveID, ""
	case KeyResultCreatedPayload:
		return p.KeyResult.ObjectiveID, p.KeyResult.ID
	case KeyResultUpdatedPayload:
		return p.KeyResult.ObjectiveID, p.KeyResult.ID
	case KeyResultDeletedPayload:
		return p.ObjectiveID, p.KeyResultID
	case KeyResultCheckedInPayload:
		return p.KeyResult.ObjectiveID, p.KeyResult.ID
	case CommentAddedPayload:
		return p.ObjectiveID, p.KeyResultID
	case PeriodMissedPayload:
		return p.ObjectiveID, p.KeyResultID
	case NotificationPublishedPayload:
		return p.ObjectiveID, p.KeyResultID
	default:
		return "", ""
	}
}

// RegisterDebugLogger logs published events at debug level, subscriptions at
// trace level, and drops and subscriber panics as warnings and errors.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		objID, krID := Subject(payload)
		logger.Debug().
			Str("event", string(event)).
			Str("objective_id", objID).
			Str("key_result_id", krID).
			Msg("event fired")
	})

	bus.OnSubscribe(func(event Event) {
		logger.Trace().Str("event", string(event)).Msg("subscriber registered")
	})

	bus.OnDrop(func(event Event, _ any) {
		logger.Warn().Str("event", string(event)).Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
