package eventbus

import (
	"fmt"
	"strings"

	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/tracker"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeKeyResultCheckedIn(func(p KeyResultCheckedInPayload) {
		n := note(notify.LevelInfo, "check-in on %q: %s", p.KeyResult.Title, formatValue(p.CheckIn.Value))
		if !p.Adopted {
			n.Message += " (older than latest, current value unchanged)"
		}
		r.publish(n, p.KeyResult.ObjectiveID, p.KeyResult.ID)
	})

	r.bus.SubscribePeriodMissed(func(p PeriodMissedPayload) {
		day := p.Period.Start.UTC().Format("2006-01-02")
		if p.Period.Classification == tracker.NoReport {
			r.publish(note(notify.LevelWarning, "%q has no report for the period starting %s", p.KeyResultTitle, day),
				p.ObjectiveID, p.KeyResultID)
			return
		}
		r.publish(note(notify.LevelWarning, "%q fell short of its target for the period starting %s", p.KeyResultTitle, day),
			p.ObjectiveID, p.KeyResultID)
	})

	r.bus.SubscribeCommentAdded(func(p CommentAddedPayload) {
		r.publish(note(notify.LevelInfo, "new comment on %q", p.KeyResultTitle), p.ObjectiveID, p.KeyResultID)
	})

	r.bus.SubscribeObjectiveDeleted(func(p ObjectiveDeletedPayload) {
		r.publish(note(notify.LevelInfo, "objective %q deleted", p.Title), p.ObjectiveID, "")
	})

	r.bus.SubscribeKeyResultDeleted(func(p KeyResultDeletedPayload) {
		r.publish(note(notify.LevelInfo, "key result %q deleted", p.Title), p.ObjectiveID, p.KeyResultID)
	})

	r.bus.SubscribeConfigReloaded(func(ConfigReloadedPayload) {
		r.publish(note(notify.LevelInfo, "configuration reloaded"), "", "")
	})
}

func note(level notify.Level, format string, args ...any) NotificationPublishedPayload {
	return NotificationPublishedPayload{Level: level, Message: fmt.Sprintf(format, args...)}
}

func (r *NotificationRouter) publish(n NotificationPublishedPayload, objectiveID, keyResultID string) {
	n.ObjectiveID = objectiveID
	n.KeyResultID = keyResultID
	r.bus.PublishNotificationPublished(n)
}

func formatValue(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
