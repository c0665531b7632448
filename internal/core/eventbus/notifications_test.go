package eventbus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/eventbus/testbus"
	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
)

func latestNotificationPayload(tb *testbus.Bus, t *testing.T) eventbus.NotificationPublishedPayload {
	t.Helper()
	tb.AssertPublished(t, eventbus.EventNotificationPublished)

	payloads := testbus.Payloads[eventbus.NotificationPublishedPayload](tb, eventbus.EventNotificationPublished)
	require.NotEmpty(t, payloads)
	return payloads[len(payloads)-1]
}

func TestNotificationRouter_CheckIn(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishKeyResultCheckedIn(eventbus.KeyResultCheckedInPayload{
		KeyResult: okr.KeyResult{ID: "kr-1", ObjectiveID: "obj-1", Title: "Ship v2"},
		CheckIn:   okr.CheckIn{Value: 42.5},
		Adopted:   true,
	})
	p := latestNotificationPayload(tb, t)

	assert.Equal(t, notify.LevelInfo, p.Level)
	assert.Contains(t, p.Message, "Ship v2")
	assert.Contains(t, p.Message, "42.5")
	assert.Equal(t, "obj-1", p.ObjectiveID)
	assert.Equal(t, "kr-1", p.KeyResultID)
}

func TestNotificationRouter_StaleCheckIn(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishKeyResultCheckedIn(eventbus.KeyResultCheckedInPayload{
		KeyResult: okr.KeyResult{Title: "Ship v2"},
		CheckIn:   okr.CheckIn{Value: 3},
	})
	p := latestNotificationPayload(tb, t)

	assert.Contains(t, p.Message, "current value unchanged")
}

func TestNotificationRouter_PeriodMissed(t *testing.T) {
	tests := []struct {
		class tracker.Classification
		want  string
	}{
		{tracker.NoReport, "no report"},
		{tracker.Below, "fell short"},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			tb := testbus.New(t)
			eventbus.NewNotificationRouter(tb.EventBus).Register()

			tb.PublishPeriodMissed(eventbus.PeriodMissedPayload{
				KeyResultID:    "kr-1",
				KeyResultTitle: "Daily pages",
				Period: tracker.PeriodStatus{
					Start:          time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
					Classification: tt.class,
				},
			})
			p := latestNotificationPayload(tb, t)

			assert.Equal(t, notify.LevelWarning, p.Level)
			assert.Contains(t, p.Message, tt.want)
			assert.Contains(t, p.Message, "2025-03-04")
		})
	}
}

func TestNotificationRouter_Deletions(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishObjectiveDeleted(eventbus.ObjectiveDeletedPayload{ObjectiveID: "obj-1", Title: "Grow revenue"})
	tb.PublishKeyResultDeleted(eventbus.KeyResultDeletedPayload{KeyResultID: "kr-1", Title: "Close deals"})

	require.Eventually(t, func() bool {
		return tb.Count(eventbus.EventNotificationPublished) == 2
	}, time.Second, 5*time.Millisecond)

	payloads := testbus.Payloads[eventbus.NotificationPublishedPayload](tb, eventbus.EventNotificationPublished)
	assert.Contains(t, payloads[0].Message, "Grow revenue")
	assert.Contains(t, payloads[1].Message, "Close deals")
}

func TestNotificationRouter_CommentAdded(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishCommentAdded(eventbus.CommentAddedPayload{KeyResultTitle: "NPS", Comment: okr.Comment{Text: "nice"}})
	p := latestNotificationPayload(tb, t)

	assert.Contains(t, p.Message, "NPS")
}

func TestNotificationRouter_ObjectiveCreated_doesNotPublish(t *testing.T) {
	tb := testbus.New(t)
	eventbus.NewNotificationRouter(tb.EventBus).Register()

	tb.PublishObjectiveCreated(eventbus.ObjectiveCreatedPayload{Objective: okr.Objective{Title: "new"}})
	tb.AssertNotPublished(t, eventbus.EventNotificationPublished, 100*time.Millisecond)
}

func TestNotificationRouter_NilSafe(t *testing.T) {
	var r *eventbus.NotificationRouter
	assert.NotPanics(t, r.Register)
	assert.NotPanics(t, eventbus.NewNotificationRouter(nil).Register)
}
