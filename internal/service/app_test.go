package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/data/db"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	app, err := NewApp(context.Background(), &cfg, database, eventbus.New(64), zerolog.Nop())
	require.NoError(t, err)
	return app
}

func TestApp_RecordsNotifications(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	o, err := app.Objectives.CreateObjective(ctx, okr.Objective{Title: "Ship"})
	require.NoError(t, err)
	require.NoError(t, app.Objectives.DeleteObjective(ctx, o.ID))

	// The deletion becomes a notification, which is then persisted.
	app.Bus.Drain()

	list, err := app.Notifications.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notify.LevelInfo, list[0].Level)
	assert.Contains(t, list[0].Message, `"Ship"`)
	assert.Equal(t, o.ID, list[0].ObjectiveID)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestApp_ReloadsPolicy(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, okr.PolicyLastApplied, app.Objectives.Policy())

	cfg := *app.Config
	cfg.CheckIns.ConflictPolicy = okr.PolicyLatestDate
	app.Bus.PublishConfigReloaded(eventbus.ConfigReloadedPayload{Config: &cfg})
	app.Bus.Drain()

	assert.Equal(t, okr.PolicyLatestDate, app.Objectives.Policy())
}

func TestApp_LoadsExistingData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	open := func() (*App, func()) {
		database, err := db.Open(dir, db.DefaultOpenOptions())
		require.NoError(t, err)
		app, err := NewApp(ctx, &cfg, database, eventbus.New(64), zerolog.Nop())
		require.NoError(t, err)
		return app, func() { _ = database.Close() }
	}

	first, closeFirst := open()
	o, err := first.Objectives.CreateObjective(ctx, okr.Objective{
		Title:      "Persisted",
		KeyResults: []okr.KeyResult{{Title: "Launch", Category: okr.CategoryBinary}},
	})
	require.NoError(t, err)
	_, _, err = first.Objectives.CheckIn(ctx, o.KeyResults[0].ID, okr.CheckIn{Date: time.Now(), Value: 1})
	require.NoError(t, err)
	closeFirst()

	second, closeSecond := open()
	defer closeSecond()

	got, err := second.Progress.ObjectiveProgress(o.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-9)
}
