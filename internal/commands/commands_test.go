package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/data/db"
	"github.com/colonyops/okr/internal/service"
)

func newTestApp(t *testing.T) *service.App {
	t.Helper()

	dir := t.TempDir()
	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	app, err := service.NewApp(context.Background(), &cfg, database, eventbus.New(256), zerolog.Nop())
	require.NoError(t, err)
	return app
}

type fakeGenerator struct {
	response string
}

func (g *fakeGenerator) Generate(context.Context, string, *genai.Schema) (string, error) {
	return g.response, nil
}

// run executes the okr command tree against app and returns stdout. Each
// call builds fresh commands so flag values do not leak between runs.
func run(t *testing.T, app *service.App, args ...string) (string, error) {
	t.Helper()

	flags := &Flags{Config: app.Config, DataDir: app.Config.DataDir}
	var out bytes.Buffer
	root := &cli.Command{
		Name:      "okr",
		Writer:    &out,
		ErrWriter: io.Discard,
	}
	root = NewObjectiveCmd(flags, app).Register(root)
	root = NewKeyResultCmd(flags, app).Register(root)
	root = NewCheckInCmd(flags, app).Register(root)
	root = NewPeriodsCmd(flags, app).Register(root)
	root = NewTreeCmd(flags, app).Register(root)
	root = NewExportCmd(flags, app).Register(root)
	root = NewRemindCmd(flags, app).Register(root)
	root = NewUserCmd(flags, app).Register(root)
	root = NewNotificationsCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)
	root = NewDBCmd(flags, app).Register(root)

	ai := NewAICmd(flags, app).WithGenerator(&fakeGenerator{
		response: `{"suggestions":[{"title":"Close 10 deals","type":"NUMBER","startValue":0,"targetValue":10}]}`,
	})
	root = ai.Register(root)

	err := root.Run(context.Background(), append([]string{"okr"}, args...))
	return out.String(), err
}

func createObjective(t *testing.T, app *service.App, title string) okr.Objective {
	t.Helper()
	o, err := app.Objectives.CreateObjective(context.Background(), okr.Objective{Title: title, Quarter: "1404-Q1"})
	require.NoError(t, err)
	return o
}

func createKeyResult(t *testing.T, app *service.App, objectiveID string, kr okr.KeyResult) okr.KeyResult {
	t.Helper()
	created, err := app.Objectives.CreateKeyResult(context.Background(), objectiveID, kr)
	require.NoError(t, err)
	return created
}

func TestObjectiveCreate_JSON(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "objective", "create", "--title", "Grow revenue", "--quarter", "1404-Q1", "--category", "sales", "--json")
	require.NoError(t, err)

	var o okr.Objective
	require.NoError(t, json.Unmarshal([]byte(out), &o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "Grow revenue", o.Title)
	assert.Equal(t, okr.ObjectiveSales, o.Category)

	stored, err := app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1404-Q1", stored.Quarter)
}

func TestObjectiveCreate_InvalidQuarter(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "objective", "create", "--title", "Grow", "--quarter", "Q1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quarter")
}

func TestObjectiveList(t *testing.T) {
	app := newTestApp(t)
	createObjective(t, app, "Grow revenue")
	archived := createObjective(t, app, "Old goal")
	_, err := app.Objectives.SetObjectiveArchived(context.Background(), archived.ID, true)
	require.NoError(t, err)

	out, err := run(t, app, "objective", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Grow revenue")
	assert.NotContains(t, out, "Old goal")

	out, err = run(t, app, "objective", "ls", "--archived", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
}

func TestObjectiveShow(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard})

	out, err := run(t, app, "objective", "show", o.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Grow revenue")
	assert.Contains(t, out, "Close deals")

	_, err = run(t, app, "objective", "show", "missing")
	require.ErrorIs(t, err, okr.ErrNotFound)
}

func TestObjectiveArchiveAndRestore(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")

	out, err := run(t, app, "objective", "archive", o.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Archived objective")

	stored, err := app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsArchived)

	_, err = run(t, app, "objective", "archive", o.ID, "--restore")
	require.NoError(t, err)
	stored, err = app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsArchived)
}

func TestObjectiveDelete_RequiresConfirmation(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")

	_, err := run(t, app, "objective", "delete", o.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	_, err = run(t, app, "objective", "delete", o.ID, "--yes")
	require.NoError(t, err)
	_, err = app.Objectives.Objective(o.ID)
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestKeyResultAdd(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")

	out, err := run(t, app, "kr", "add", o.ID,
		"--title", "Close deals",
		"--target", "10",
		"--unit", "deals",
		"--frequency", "weekly",
		"--weekly-targets", "2,3",
		"--weekly-targets", "5",
		"--stretch", "Great=12",
		"--json",
	)
	require.NoError(t, err)

	var kr okr.KeyResult
	require.NoError(t, json.Unmarshal([]byte(out), &kr))
	assert.Equal(t, o.ID, kr.ObjectiveID)
	assert.Equal(t, okr.CategoryStandard, kr.Category)
	assert.Equal(t, okr.FrequencyWeekly, kr.ReportFrequency)
	require.NotNil(t, kr.TargetValue)
	assert.InDelta(t, 10, *kr.TargetValue, 1e-9)
	assert.Equal(t, []float64{2, 3, 5}, kr.WeeklyTargets)
	assert.Equal(t, []okr.StretchLevel{{Label: "Great", Value: 12}}, kr.StretchLevels)
}

func TestKeyResultAdd_UnknownCategory(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")

	_, err := run(t, app, "kr", "add", o.ID, "--title", "Close deals", "--category", "bogus")
	require.ErrorIs(t, err, okr.ErrInvalid)
}

func TestKeyResultUpdate_OnlyChangesSetFlags(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard, Unit: "deals"})

	_, err := run(t, app, "kr", "update", kr.ID, "--title", "Close more deals")
	require.NoError(t, err)

	stored, err := app.Objectives.KeyResult(kr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Close more deals", stored.Title)
	assert.Equal(t, "deals", stored.Unit)
}

func TestKeyResultUpdate_AddWeek(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{
		Title:           "Weekly demos",
		Category:        okr.CategoryStandard,
		ReportFrequency: okr.FrequencyWeekly,
		WeeklyTargets:   []float64{2, 4},
	})

	_, err := run(t, app, "kr", "update", kr.ID, "--add-week")
	require.NoError(t, err)

	stored, err := app.Objectives.KeyResult(kr.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 4}, stored.WeeklyTargets)
}

func TestKeyResultDelete(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard})

	_, err := run(t, app, "kr", "delete", kr.ID)
	require.Error(t, err)

	_, err = run(t, app, "kr", "delete", kr.ID, "--yes")
	require.NoError(t, err)
	_, err = app.Objectives.KeyResult(kr.ID)
	assert.ErrorIs(t, err, okr.ErrNotFound)
}

func TestCheckIn(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	target := 10.0
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard, TargetValue: &target})

	out, err := run(t, app, "checkin", kr.ID, "--value", "5", "--date", "2025-01-10", "--tasks-done", "two calls", "--json")
	require.NoError(t, err)

	var result CheckInResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Adopted)
	assert.InDelta(t, 50, result.Progress, 1e-9)
	assert.InDelta(t, 50, result.ObjectiveProgress, 1e-9)
	assert.InDelta(t, 5, result.KeyResult.CurrentValue, 1e-9)
	require.Len(t, result.KeyResult.CheckIns, 1)
	assert.Equal(t, "two calls", result.KeyResult.CheckIns[0].Report.TasksDone)
}

func TestCheckIn_RequiresValue(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard})

	_, err := run(t, app, "checkin", kr.ID)
	require.ErrorIs(t, err, okr.ErrInvalid)
	assert.Contains(t, err.Error(), "--value")
}

func TestPeriods_JSON(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	kr := createKeyResult(t, app, o.ID, okr.KeyResult{
		Title:           "Calls",
		Category:        okr.CategoryStandard,
		ReportFrequency: okr.FrequencyDaily,
		DailyTarget:     &okr.DailyTarget{Target: 2},
	})

	out, err := run(t, app, "periods", kr.ID, "--page", "0", "--now", "2025-01-10", "--json")
	require.NoError(t, err)

	var page service.PeriodPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, kr.ID, page.KeyResultID)
	assert.Equal(t, okr.FrequencyDaily, page.Frequency)
	assert.Equal(t, 0, page.Page)
}

func TestTree(t *testing.T) {
	app := newTestApp(t)
	parent := createObjective(t, app, "Company goal")
	_, err := app.Objectives.CreateObjective(context.Background(), okr.Objective{Title: "Team goal", ParentID: parent.ID})
	require.NoError(t, err)

	out, err := run(t, app, "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "Company goal")
	assert.Contains(t, out, "  Team goal")
}

func TestExport_CSVToStdout(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	createKeyResult(t, app, o.ID, okr.KeyResult{Title: "Close deals", Category: okr.CategoryStandard})

	out, err := run(t, app, "export", "--format", "csv", "--output", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Key Result")
	assert.Contains(t, out, "Close deals")
}

func TestExport_UnknownFormat(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "export", "--format", "pdf", "--output", "-")
	require.ErrorIs(t, err, okr.ErrInvalid)
}

func TestAISuggest_Add(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")

	out, err := run(t, app, "ai", "suggest", o.ID, "--add")
	require.NoError(t, err)
	assert.Contains(t, out, "Close 10 deals")
	assert.Contains(t, out, "Added 1 key results")

	stored, err := app.Objectives.Objective(o.ID)
	require.NoError(t, err)
	require.Len(t, stored.KeyResults, 1)
	assert.Equal(t, "Close 10 deals", stored.KeyResults[0].Title)
}

func TestUserSetAndList(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "user", "set", "u1", "--name", "Sara", "--role", "LEAD")
	require.NoError(t, err)
	_, err = run(t, app, "user", "set", "u1", "--username", "sara")
	require.NoError(t, err)

	u, err := app.Objectives.User("u1")
	require.NoError(t, err)
	assert.Equal(t, "Sara", u.Name)
	assert.Equal(t, "sara", u.Username)
	assert.Equal(t, okr.RoleLead, u.Role)

	out, err := run(t, app, "user", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Sara")
}

func TestNotifications(t *testing.T) {
	app := newTestApp(t)
	o := createObjective(t, app, "Grow revenue")
	require.NoError(t, app.Objectives.DeleteObjective(context.Background(), o.ID))
	app.Bus.Drain()

	out, err := run(t, app, "notifications", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Grow revenue")

	_, err = run(t, app, "notifications", "clear")
	require.NoError(t, err)

	out, err = run(t, app, "notifications", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No notifications")
}

func TestRemind_DryRunWithNothingDue(t *testing.T) {
	app := newTestApp(t)
	createObjective(t, app, "Grow revenue")

	out, err := run(t, app, "remind", "--dry-run", "--now", "2025-01-10")
	require.NoError(t, err)
	assert.Contains(t, out, "No missed periods")
}

func TestConfigValidate_JSON(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "config", "validate", "--format", "json")
	require.NoError(t, err)

	var report ValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
}

func TestDBStatus_JSON(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "db", "status", "--json")
	require.NoError(t, err)

	var st DBStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Positive(t, st.Latest)
	assert.Equal(t, st.Latest, st.Current)
	assert.Empty(t, st.Pending)
	assert.True(t, strings.HasSuffix(st.Path, db.FileName))
}

func TestDBRollback(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "db", "rollback")
	require.ErrorContains(t, err, "without --yes")

	out, err := run(t, app, "db", "rollback", "--steps", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Reverted 1 migrations")

	st, err := db.Status(context.Background(), app.DB.Conn())
	require.NoError(t, err)
	require.Len(t, st.Pending, 1)
}
