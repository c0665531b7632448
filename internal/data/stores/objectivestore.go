package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/data/db"
)

// ObjectiveStore implements okr.Store using SQLite.
type ObjectiveStore struct {
	db *db.DB
}

var _ okr.Store = (*ObjectiveStore)(nil)

// NewObjectiveStore creates a new SQLite-backed objective store.
func NewObjectiveStore(db *db.DB) *ObjectiveStore {
	return &ObjectiveStore{db: db}
}

// ListObjectives returns every objective with its key results, check-ins
// and comments. Check-ins and comments are in submission order.
func (s *ObjectiveStore) ListObjectives(ctx context.Context) ([]okr.Objective, error) {
	q := s.db.Queries()

	objRows, err := q.ListObjectives(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list objectives: %w", err)
	}
	krRows, err := q.ListKeyResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list key results: %w", err)
	}
	checkInRows, err := q.ListCheckIns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	commentRows, err := q.ListComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	checkIns := make(map[string][]okr.CheckIn)
	for _, row := range checkInRows {
		c, err := rowToCheckIn(row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert check-in %s: %w", row.ID, err)
		}
		checkIns[row.KeyResultID] = append(checkIns[row.KeyResultID], c)
	}

	comments := make(map[string][]okr.Comment)
	for _, row := range commentRows {
		comments[row.KeyResultID] = append(comments[row.KeyResultID], rowToComment(row))
	}

	keyResults := make(map[string][]okr.KeyResult)
	for _, row := range krRows {
		kr, err := rowToKeyResult(row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert key result %s: %w", row.ID, err)
		}
		if cs, ok := checkIns[kr.ID]; ok {
			kr.CheckIns = cs
		}
		kr.Comments = comments[kr.ID]
		keyResults[row.ObjectiveID] = append(keyResults[row.ObjectiveID], kr)
	}

	objectives := make([]okr.Objective, 0, len(objRows))
	for _, row := range objRows {
		o := rowToObjective(row)
		o.KeyResults = keyResults[o.ID]
		objectives = append(objectives, o)
	}

	return objectives, nil
}

// GetObjective returns one objective with its key result graph.
func (s *ObjectiveStore) GetObjective(ctx context.Context, id string) (okr.Objective, error) {
	q := s.db.Queries()

	row, err := q.GetObjective(ctx, id)
	if IsNotFoundError(err) {
		return okr.Objective{}, fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
	}
	if err != nil {
		return okr.Objective{}, fmt.Errorf("failed to get objective: %w", err)
	}

	o := rowToObjective(row)

	krRows, err := q.ListKeyResultsByObjective(ctx, id)
	if err != nil {
		return okr.Objective{}, fmt.Errorf("failed to list key results: %w", err)
	}

	for _, krRow := range krRows {
		kr, err := rowToKeyResult(krRow)
		if err != nil {
			return okr.Objective{}, fmt.Errorf("failed to convert key result %s: %w", krRow.ID, err)
		}

		checkInRows, err := q.ListCheckInsByKeyResult(ctx, kr.ID)
		if err != nil {
			return okr.Objective{}, fmt.Errorf("failed to list check-ins: %w", err)
		}
		for _, c := range checkInRows {
			checkIn, err := rowToCheckIn(c)
			if err != nil {
				return okr.Objective{}, fmt.Errorf("failed to convert check-in %s: %w", c.ID, err)
			}
			kr.CheckIns = append(kr.CheckIns, checkIn)
		}

		commentRows, err := q.ListCommentsByKeyResult(ctx, kr.ID)
		if err != nil {
			return okr.Objective{}, fmt.Errorf("failed to list comments: %w", err)
		}
		for _, c := range commentRows {
			kr.Comments = append(kr.Comments, rowToComment(c))
		}

		o.KeyResults = append(o.KeyResults, kr)
	}

	return o, nil
}

// SaveObjective inserts or updates the objective row. New objectives are
// appended after the existing ones.
func (s *ObjectiveStore) SaveObjective(ctx context.Context, o okr.Objective) error {
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		return saveObjective(ctx, q, o)
	})
	if err != nil {
		return fmt.Errorf("failed to save objective: %w", err)
	}
	return nil
}

// ImportObjective saves the full objective graph in one transaction.
func (s *ObjectiveStore) ImportObjective(ctx context.Context, o okr.Objective) error {
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		if err := saveObjective(ctx, q, o); err != nil {
			return err
		}

		for _, kr := range o.KeyResults {
			kr.ObjectiveID = o.ID
			if err := saveKeyResult(ctx, q, kr); err != nil {
				return err
			}
			for _, c := range kr.CheckIns {
				params, err := checkInParams(kr.ID, c)
				if err != nil {
					return err
				}
				if _, err := q.InsertCheckIn(ctx, params); err != nil {
					return fmt.Errorf("insert check-in %s: %w", c.ID, err)
				}
			}
			for _, c := range kr.Comments {
				if _, err := q.InsertComment(ctx, commentParams(kr.ID, c)); err != nil {
					return fmt.Errorf("insert comment %s: %w", c.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import objective: %w", err)
	}
	return nil
}

// DeleteObjective removes the objective and, through cascading foreign
// keys, its key results and their history. Children are detached.
func (s *ObjectiveStore) DeleteObjective(ctx context.Context, id string) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		if err := q.ClearParent(ctx, id); err != nil {
			return fmt.Errorf("failed to detach children: %w", err)
		}

		n, err := q.DeleteObjective(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete objective: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("objective %s: %w", id, okr.ErrNotFound)
		}
		return nil
	})
}

// SaveKeyResult inserts or updates a key result row. The parent objective
// must exist.
func (s *ObjectiveStore) SaveKeyResult(ctx context.Context, kr okr.KeyResult) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		return saveKeyResult(ctx, q, kr)
	})
}

// DeleteKeyResult removes a key result with its check-ins and comments.
func (s *ObjectiveStore) DeleteKeyResult(ctx context.Context, id string) error {
	n, err := s.db.Queries().DeleteKeyResult(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete key result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("key result %s: %w", id, okr.ErrNotFound)
	}
	return nil
}

// AppendCheckIn records c and the key result's resulting current value and
// status atomically. A check-in whose ID is already stored is rejected.
func (s *ObjectiveStore) AppendCheckIn(ctx context.Context, kr okr.KeyResult, c okr.CheckIn) error {
	params, err := checkInParams(kr.ID, c)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(q *db.Queries) error {
		n, err := q.UpdateKeyResultValue(ctx, db.UpdateKeyResultValueParams{
			ID:           kr.ID,
			CurrentValue: kr.CurrentValue,
			Status:       string(kr.Status),
			UpdatedAt:    kr.UpdatedAt.UnixNano(),
		})
		if err != nil {
			return fmt.Errorf("failed to update key result value: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("key result %s: %w", kr.ID, okr.ErrNotFound)
		}

		n, err = q.InsertCheckIn(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to insert check-in: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: check-in %s already recorded", okr.ErrInvalid, c.ID)
		}
		return nil
	})
}

// AddComment records a comment on an existing key result.
func (s *ObjectiveStore) AddComment(ctx context.Context, keyResultID string, c okr.Comment) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.GetKeyResult(ctx, keyResultID); err != nil {
			if IsNotFoundError(err) {
				return fmt.Errorf("key result %s: %w", keyResultID, okr.ErrNotFound)
			}
			return fmt.Errorf("failed to get key result: %w", err)
		}

		n, err := q.InsertComment(ctx, commentParams(keyResultID, c))
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: comment %s already recorded", okr.ErrInvalid, c.ID)
		}
		return nil
	})
}

func saveObjective(ctx context.Context, q *db.Queries, o okr.Objective) error {
	pos, err := q.NextObjectivePosition(ctx)
	if err != nil {
		return fmt.Errorf("next position: %w", err)
	}

	row := objectiveToRow(o)
	row.Position = pos
	if err := q.UpsertObjective(ctx, row); err != nil {
		return fmt.Errorf("upsert objective %s: %w", o.ID, err)
	}
	return nil
}

func saveKeyResult(ctx context.Context, q *db.Queries, kr okr.KeyResult) error {
	if _, err := q.GetObjective(ctx, kr.ObjectiveID); err != nil {
		if IsNotFoundError(err) {
			return fmt.Errorf("objective %s: %w", kr.ObjectiveID, okr.ErrNotFound)
		}
		return fmt.Errorf("failed to get objective: %w", err)
	}

	row, err := keyResultToRow(kr)
	if err != nil {
		return err
	}

	existing, err := q.GetKeyResult(ctx, kr.ID)
	switch {
	case err == nil:
		row.Position = existing.Position
		row.ObjectiveID = existing.ObjectiveID
	case IsNotFoundError(err):
		siblings, err := q.ListKeyResultsByObjective(ctx, kr.ObjectiveID)
		if err != nil {
			return fmt.Errorf("list siblings: %w", err)
		}
		row.Position = int64(len(siblings))
	default:
		return fmt.Errorf("failed to get key result: %w", err)
	}

	if err := q.UpsertKeyResult(ctx, row); err != nil {
		return fmt.Errorf("upsert key result %s: %w", kr.ID, err)
	}
	return nil
}
