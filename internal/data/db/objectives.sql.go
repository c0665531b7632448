package db

import "context"

const objectiveColumns = `id, title, description, owner_id, category, parent_id, is_archived, color,
	end_date, is_default, quarter, strategy_id, position, created_at, updated_at`

func scanObjective(s scanner) (Objective, error) {
	var o Objective
	err := s.Scan(
		&o.ID, &o.Title, &o.Description, &o.OwnerID, &o.Category, &o.ParentID, &o.IsArchived, &o.Color,
		&o.EndDate, &o.IsDefault, &o.Quarter, &o.StrategyID, &o.Position, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const listObjectives = `SELECT ` + objectiveColumns + ` FROM objectives ORDER BY position, created_at, id`

func (q *Queries) ListObjectives(ctx context.Context) ([]Objective, error) {
	return queryAll(ctx, q.db, scanObjective, listObjectives)
}

const getObjective = `SELECT ` + objectiveColumns + ` FROM objectives WHERE id = ?`

func (q *Queries) GetObjective(ctx context.Context, id string) (Objective, error) {
	return scanObjective(q.db.QueryRowContext(ctx, getObjective, id))
}

const nextObjectivePosition = `SELECT COALESCE(MAX(position), -1) + 1 FROM objectives`

func (q *Queries) NextObjectivePosition(ctx context.Context) (int64, error) {
	var pos int64
	err := q.db.QueryRowContext(ctx, nextObjectivePosition).Scan(&pos)
	return pos, err
}

// UpsertObjective inserts the row or updates every column except
// created_at and position.
const upsertObjective = `INSERT INTO objectives (` + objectiveColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	owner_id = excluded.owner_id,
	category = excluded.category,
	parent_id = excluded.parent_id,
	is_archived = excluded.is_archived,
	color = excluded.color,
	end_date = excluded.end_date,
	is_default = excluded.is_default,
	quarter = excluded.quarter,
	strategy_id = excluded.strategy_id,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertObjective(ctx context.Context, o Objective) error {
	_, err := q.db.ExecContext(ctx, upsertObjective,
		o.ID, o.Title, o.Description, o.OwnerID, o.Category, o.ParentID, o.IsArchived, o.Color,
		o.EndDate, o.IsDefault, o.Quarter, o.StrategyID, o.Position, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

const deleteObjective = `DELETE FROM objectives WHERE id = ?`

func (q *Queries) DeleteObjective(ctx context.Context, id string) (int64, error) {
	return execRows(ctx, q.db, deleteObjective, id)
}

const clearParent = `UPDATE objectives SET parent_id = NULL WHERE parent_id = ?`

// ClearParent detaches the children of a deleted objective.
func (q *Queries) ClearParent(ctx context.Context, parentID string) error {
	_, err := q.db.ExecContext(ctx, clearParent, parentID)
	return err
}
