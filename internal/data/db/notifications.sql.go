package db

import "context"

type InsertNotificationParams struct {
	Level       string
	Message     string
	ObjectiveID string
	KeyResultID string
	CreatedAt   int64
}

const insertNotification = `INSERT INTO notifications (level, message, objective_id, key_result_id, created_at)
VALUES (?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertNotification,
		arg.Level, arg.Message, arg.ObjectiveID, arg.KeyResultID, arg.CreatedAt,
	).Scan(&id)
	return id, err
}

// ListNotifications returns the newest rows first. A negative limit means
// no limit.
const listNotifications = `SELECT id, level, message, objective_id, key_result_id, created_at
FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`

func (q *Queries) ListNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	return queryAll(ctx, q.db, func(s scanner) (Notification, error) {
		var n Notification
		err := s.Scan(&n.ID, &n.Level, &n.Message, &n.ObjectiveID, &n.KeyResultID, &n.CreatedAt)
		return n, err
	}, listNotifications, limit)
}

const deleteAllNotifications = `DELETE FROM notifications`

func (q *Queries) DeleteAllNotifications(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllNotifications)
	return err
}

const countNotifications = `SELECT COUNT(*) FROM notifications`

func (q *Queries) CountNotifications(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countNotifications).Scan(&n)
	return n, err
}
