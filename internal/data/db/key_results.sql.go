package db

import "context"

const keyResultColumns = `id, objective_id, position, title, owner_id, category, metric_type, unit,
	target_direction, start_value, target_value, current_value, report_frequency, start_date, end_date,
	daily_target, weekly_targets, status, is_archived, stretch_levels, binary_labels, links,
	created_at, updated_at`

func scanKeyResult(s scanner) (KeyResult, error) {
	var k KeyResult
	err := s.Scan(
		&k.ID, &k.ObjectiveID, &k.Position, &k.Title, &k.OwnerID, &k.Category, &k.MetricType, &k.Unit,
		&k.TargetDirection, &k.StartValue, &k.TargetValue, &k.CurrentValue, &k.ReportFrequency, &k.StartDate, &k.EndDate,
		&k.DailyTarget, &k.WeeklyTargets, &k.Status, &k.IsArchived, &k.StretchLevels, &k.BinaryLabels, &k.Links,
		&k.CreatedAt, &k.UpdatedAt,
	)
	return k, err
}

const listKeyResults = `SELECT ` + keyResultColumns + ` FROM key_results ORDER BY objective_id, position, created_at, id`

func (q *Queries) ListKeyResults(ctx context.Context) ([]KeyResult, error) {
	return queryAll(ctx, q.db, scanKeyResult, listKeyResults)
}

const listKeyResultsByObjective = `SELECT ` + keyResultColumns + ` FROM key_results
WHERE objective_id = ? ORDER BY position, created_at, id`

func (q *Queries) ListKeyResultsByObjective(ctx context.Context, objectiveID string) ([]KeyResult, error) {
	return queryAll(ctx, q.db, scanKeyResult, listKeyResultsByObjective, objectiveID)
}

const getKeyResult = `SELECT ` + keyResultColumns + ` FROM key_results WHERE id = ?`

func (q *Queries) GetKeyResult(ctx context.Context, id string) (KeyResult, error) {
	return scanKeyResult(q.db.QueryRowContext(ctx, getKeyResult, id))
}

// UpsertKeyResult inserts the row or updates every column except
// objective_id and created_at.
const upsertKeyResult = `INSERT INTO key_results (` + keyResultColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	position = excluded.position,
	title = excluded.title,
	owner_id = excluded.owner_id,
	category = excluded.category,
	metric_type = excluded.metric_type,
	unit = excluded.unit,
	target_direction = excluded.target_direction,
	start_value = excluded.start_value,
	target_value = excluded.target_value,
	current_value = excluded.current_value,
	report_frequency = excluded.report_frequency,
	start_date = excluded.start_date,
	end_date = excluded.end_date,
	daily_target = excluded.daily_target,
	weekly_targets = excluded.weekly_targets,
	status = excluded.status,
	is_archived = excluded.is_archived,
	stretch_levels = excluded.stretch_levels,
	binary_labels = excluded.binary_labels,
	links = excluded.links,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertKeyResult(ctx context.Context, k KeyResult) error {
	_, err := q.db.ExecContext(ctx, upsertKeyResult,
		k.ID, k.ObjectiveID, k.Position, k.Title, k.OwnerID, k.Category, k.MetricType, k.Unit,
		k.TargetDirection, k.StartValue, k.TargetValue, k.CurrentValue, k.ReportFrequency, k.StartDate, k.EndDate,
		k.DailyTarget, k.WeeklyTargets, k.Status, k.IsArchived, k.StretchLevels, k.BinaryLabels, k.Links,
		k.CreatedAt, k.UpdatedAt,
	)
	return err
}

const deleteKeyResult = `DELETE FROM key_results WHERE id = ?`

func (q *Queries) DeleteKeyResult(ctx context.Context, id string) (int64, error) {
	return execRows(ctx, q.db, deleteKeyResult, id)
}

type UpdateKeyResultValueParams struct {
	ID           string
	CurrentValue float64
	Status       string
	UpdatedAt    int64
}

const updateKeyResultValue = `UPDATE key_results SET current_value = ?, status = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateKeyResultValue(ctx context.Context, arg UpdateKeyResultValueParams) (int64, error) {
	return execRows(ctx, q.db, updateKeyResultValue, arg.CurrentValue, arg.Status, arg.UpdatedAt, arg.ID)
}
