package db

import (
	"context"
	"database/sql"
)

const checkInColumns = `seq, id, key_result_id, date, value, rating, report, challenge_difficulty,
	challenge_tag_ids, status, author_id`

func scanCheckIn(s scanner) (CheckIn, error) {
	var c CheckIn
	err := s.Scan(
		&c.Seq, &c.ID, &c.KeyResultID, &c.Date, &c.Value, &c.Rating, &c.Report, &c.ChallengeDifficulty,
		&c.ChallengeTagIds, &c.Status, &c.AuthorID,
	)
	return c, err
}

const listCheckIns = `SELECT ` + checkInColumns + ` FROM check_ins ORDER BY seq`

// ListCheckIns returns every check-in in submission order.
func (q *Queries) ListCheckIns(ctx context.Context) ([]CheckIn, error) {
	return queryAll(ctx, q.db, scanCheckIn, listCheckIns)
}

const listCheckInsByKeyResult = `SELECT ` + checkInColumns + ` FROM check_ins WHERE key_result_id = ? ORDER BY seq`

func (q *Queries) ListCheckInsByKeyResult(ctx context.Context, keyResultID string) ([]CheckIn, error) {
	return queryAll(ctx, q.db, scanCheckIn, listCheckInsByKeyResult, keyResultID)
}

type InsertCheckInParams struct {
	ID                  string
	KeyResultID         string
	Date                int64
	Value               float64
	Rating              int64
	Report              sql.NullString
	ChallengeDifficulty int64
	ChallengeTagIds     sql.NullString
	Status              string
	AuthorID            string
}

// InsertCheckIn ignores check-ins whose ID is already stored and reports
// how many rows were written.
const insertCheckIn = `INSERT OR IGNORE INTO check_ins (
	id, key_result_id, date, value, rating, report, challenge_difficulty, challenge_tag_ids, status, author_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertCheckIn(ctx context.Context, arg InsertCheckInParams) (int64, error) {
	return execRows(ctx, q.db, insertCheckIn,
		arg.ID, arg.KeyResultID, arg.Date, arg.Value, arg.Rating, arg.Report,
		arg.ChallengeDifficulty, arg.ChallengeTagIds, arg.Status, arg.AuthorID,
	)
}
