package db

import "context"

const userColumns = `id, name, username, role, avatar_url, team_id`

func scanUser(s scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Name, &u.Username, &u.Role, &u.AvatarUrl, &u.TeamID)
	return u, err
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY name, id`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	return queryAll(ctx, q.db, scanUser, listUsers)
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const upsertUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	username = excluded.username,
	role = excluded.role,
	avatar_url = excluded.avatar_url,
	team_id = excluded.team_id`

func (q *Queries) UpsertUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx, upsertUser, u.ID, u.Name, u.Username, u.Role, u.AvatarUrl, u.TeamID)
	return err
}
