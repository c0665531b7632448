package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *service.App) {
	t.Helper()
	app := newTestApp(t, false)
	now := func() time.Time { return day0.AddDate(0, 0, 1) }
	return NewDispatcher(app.Objectives, app.Progress, now), app
}

func TestDispatcher_InitialData(t *testing.T) {
	d, app := newTestDispatcher(t)
	ctx := context.Background()
	o, _ := seedObjective(t, app)
	_, err := app.Objectives.UpsertUser(ctx, okr.User{ID: "u1", Name: "Sara", Username: "sara"})
	require.NoError(t, err)

	reply, err := d.Handle(ctx, Envelope{Type: TypeGetInitialData})
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, TypeInitialData, reply.Type)

	var data InitialData
	require.NoError(t, reply.Decode(&data))
	require.Len(t, data.Objectives, 1)
	assert.Equal(t, o.ID, data.Objectives[0].ID)
	require.Len(t, data.Objectives[0].KeyResults, 1)
	require.Len(t, data.Users, 1)
	assert.Equal(t, "sara", data.Users[0].Username)
}

func TestDispatcher_ObjectiveLifecycle(t *testing.T) {
	d, app := newTestDispatcher(t)
	ctx := context.Background()

	reply, err := d.Handle(ctx, envelope(t, TypeObjectiveCreate, map[string]any{
		"objectiveData":  map[string]any{"title": "Hire", "quarter": "1404-Q2"},
		"keyResultsData": []map[string]any{{"title": "Offers sent", "category": "STANDARD", "targetValue": 5}},
	}))
	require.NoError(t, err)
	assert.Nil(t, reply)

	list, err := app.Objectives.ListObjectives(service.ObjectiveFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	o := list[0]
	require.Len(t, o.KeyResults, 1)
	assert.Equal(t, o.ID, o.KeyResults[0].ObjectiveID)

	_, err = d.Handle(ctx, envelope(t, TypeObjectiveUpdate, map[string]any{
		"objectiveId": o.ID,
		"updates":     map[string]any{"title": "Hire engineers"},
	}))
	require.NoError(t, err)
	got, err := app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hire engineers", got.Title)

	_, err = d.Handle(ctx, envelope(t, TypeKeyResultCreate, map[string]any{
		"objectiveId": o.ID,
		"krData":      map[string]any{"title": "Launch page", "category": "BINARY"},
	}))
	require.NoError(t, err)
	got, err = app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	require.Len(t, got.KeyResults, 2)

	_, err = d.Handle(ctx, envelope(t, TypeObjectiveDelete, map[string]any{"objectiveId": o.ID}))
	require.NoError(t, err)
	_, err = app.Objectives.Objective(o.ID)
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestDispatcher_KeyResultFrames(t *testing.T) {
	d, app := newTestDispatcher(t)
	ctx := context.Background()
	o, kr := seedObjective(t, app)

	_, err := d.Handle(ctx, envelope(t, TypeKeyResultCheckIn, map[string]any{
		"objectiveId": o.ID,
		"krId":        kr.ID,
		"value":       4,
		"rating":      3,
		"report":      "four deals",
	}))
	require.NoError(t, err)

	got, err := app.Objectives.KeyResult(kr.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.CurrentValue, 1e-9)
	require.Len(t, got.CheckIns, 1)
	assert.Equal(t, "four deals", got.CheckIns[0].Report.Text)

	_, err = d.Handle(ctx, envelope(t, TypeKeyResultAddComment, map[string]any{
		"objectiveId": o.ID,
		"krId":        kr.ID,
		"authorId":    "u1",
		"text":        "nice",
	}))
	require.NoError(t, err)

	_, err = d.Handle(ctx, envelope(t, TypeKeyResultUpdate, map[string]any{
		"objectiveId": o.ID,
		"krId":        kr.ID,
		"updates":     map[string]any{"title": "Close big deals"},
	}))
	require.NoError(t, err)

	got, err = app.Objectives.KeyResult(kr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Close big deals", got.Title)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "nice", got.Comments[0].Text)

	// The objective ID in a frame must own the key result.
	_, err = d.Handle(ctx, envelope(t, TypeKeyResultDelete, map[string]any{
		"objectiveId": "other",
		"krId":        kr.ID,
	}))
	require.ErrorIs(t, err, okr.ErrInvalid)

	_, err = d.Handle(ctx, envelope(t, TypeKeyResultDelete, map[string]any{
		"objectiveId": o.ID,
		"krId":        kr.ID,
	}))
	require.NoError(t, err)
	_, err = app.Objectives.KeyResult(kr.ID)
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestDispatcher_UserUpdate(t *testing.T) {
	d, app := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Handle(ctx, envelope(t, TypeUserUpdate, map[string]any{
		"userId":  "u7",
		"updates": map[string]any{"name": "Omid", "username": "omid"},
	}))
	require.NoError(t, err)

	_, err = d.Handle(ctx, envelope(t, TypeUserUpdate, map[string]any{
		"userId":  "u7",
		"updates": map[string]any{"role": "lead"},
	}))
	require.NoError(t, err)

	u, err := app.Objectives.User("u7")
	require.NoError(t, err)
	assert.Equal(t, "Omid", u.Name)
	assert.Equal(t, okr.RoleLead, u.Role)
}

func TestDispatcher_Rejects(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		env  Envelope
	}{
		{name: "unknown type", env: Envelope{Type: "objective:explode"}},
		{name: "missing data", env: Envelope{Type: TypeObjectiveDelete}},
		{name: "malformed data", env: Envelope{Type: TypeObjectiveUpdate, Data: []byte(`{"objectiveId": 5}`)}},
		{name: "missing key result", env: envelope(t, TypeKeyResultCheckIn, map[string]any{"objectiveId": "o", "krId": "nope", "value": 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Handle(ctx, tt.env)
			require.Error(t, err)
		})
	}

	_, err := d.Handle(ctx, Envelope{Type: "objective:explode"})
	assert.ErrorIs(t, err, okr.ErrInvalid)
}
