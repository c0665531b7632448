package db

import "context"

const commentColumns = `seq, id, key_result_id, author_id, text, created_at, updated_at`

func scanComment(s scanner) (Comment, error) {
	var c Comment
	err := s.Scan(&c.Seq, &c.ID, &c.KeyResultID, &c.AuthorID, &c.Text, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listComments = `SELECT ` + commentColumns + ` FROM comments ORDER BY seq`

func (q *Queries) ListComments(ctx context.Context) ([]Comment, error) {
	return queryAll(ctx, q.db, scanComment, listComments)
}

type InsertCommentParams struct {
	ID          string
	KeyResultID string
	AuthorID    string
	Text        string
	CreatedAt   int64
	UpdatedAt   int64
}

const insertComment = `INSERT OR IGNORE INTO comments (id, key_result_id, author_id, text, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertComment(ctx context.Context, arg InsertCommentParams) (int64, error) {
	return execRows(ctx, q.db, insertComment,
		arg.ID, arg.KeyResultID, arg.AuthorID, arg.Text, arg.CreatedAt, arg.UpdatedAt,
	)
}

const listCommentsByKeyResult = `SELECT ` + commentColumns + ` FROM comments WHERE key_result_id = ? ORDER BY seq`

func (q *Queries) ListCommentsByKeyResult(ctx context.Context, keyResultID string) ([]Comment, error) {
	return queryAll(ctx, q.db, scanComment, listCommentsByKeyResult, keyResultID)
}
