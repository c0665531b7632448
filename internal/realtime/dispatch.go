package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
)

// Dispatcher applies inbound frames to the services. Mutations reach other
// clients through the bus; only requests that expect an answer produce a
// reply.
type Dispatcher struct {
	objectives *service.ObjectiveService
	progress   *service.ProgressService
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(objectives *service.ObjectiveService, progress *service.ProgressService, now func() time.Time) *Dispatcher {
	return &Dispatcher{objectives: objectives, progress: progress, now: now}
}

// Handle applies one frame and returns the reply to send back to the
// sender, if any.
func (d *Dispatcher) Handle(ctx context.Context, env Envelope) (*Envelope, error) {
	switch env.Type {
	case TypeGetInitialData:
		return d.initialData()

	case TypeObjectiveCreate:
		var msg objectiveCreateMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		o := msg.ObjectiveData
		o.KeyResults = append(o.KeyResults, msg.KeyResultsData...)
		_, err := d.objectives.CreateObjective(ctx, o)
		return nil, err

	case TypeObjectiveUpdate:
		var msg objectiveUpdateMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		_, err := d.objectives.UpdateObjective(ctx, msg.ObjectiveID, msg.Updates)
		return nil, err

	case TypeObjectiveDelete:
		var msg objectiveDeleteMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		return nil, d.objectives.DeleteObjective(ctx, msg.ObjectiveID)

	case TypeKeyResultCreate:
		var msg keyResultCreateMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		_, err := d.objectives.CreateKeyResult(ctx, msg.ObjectiveID, msg.KRData)
		return nil, err

	case TypeKeyResultUpdate:
		var msg keyResultUpdateMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		if err := d.checkOwner(msg.ObjectiveID, msg.KRID); err != nil {
			return nil, err
		}
		_, err := d.objectives.UpdateKeyResult(ctx, msg.KRID, msg.Updates)
		return nil, err

	case TypeKeyResultDelete:
		var msg keyResultDeleteMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		if err := d.checkOwner(msg.ObjectiveID, msg.KRID); err != nil {
			return nil, err
		}
		return nil, d.objectives.DeleteKeyResult(ctx, msg.KRID)

	case TypeKeyResultCheckIn:
		var msg CheckInRequest
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		if err := d.checkOwner(msg.ObjectiveID, msg.KRID); err != nil {
			return nil, err
		}
		_, _, err := d.objectives.CheckIn(ctx, msg.KRID, msg.CheckIn())
		return nil, err

	case TypeKeyResultAddComment:
		var msg addCommentMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		if err := d.checkOwner(msg.ObjectiveID, msg.KRID); err != nil {
			return nil, err
		}
		_, err := d.objectives.AddComment(ctx, msg.KRID, okr.Comment{AuthorID: msg.AuthorID, Text: msg.Text})
		return nil, err

	case TypeUserUpdate:
		var msg userUpdateMsg
		if err := env.Decode(&msg); err != nil {
			return nil, err
		}
		u, err := d.objectives.User(msg.UserID)
		if err != nil {
			if !errors.Is(err, okr.ErrNotFound) {
				return nil, err
			}
			u = okr.User{ID: msg.UserID}
		}
		msg.Updates.apply(&u)
		_, err = d.objectives.UpsertUser(ctx, u)
		return nil, err

	default:
		return nil, fmt.Errorf("%w: unknown message type %q", okr.ErrInvalid, env.Type)
	}
}

func (d *Dispatcher) initialData() (*Envelope, error) {
	views, err := d.progress.Overview(service.ObjectiveFilter{IncludeArchived: true}, d.now())
	if err != nil {
		return nil, err
	}
	env, err := NewEnvelope(TypeInitialData, InitialData{
		Users:      d.objectives.ListUsers(),
		Objectives: views,
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// checkOwner rejects frames whose objective ID does not own the key result.
// An empty objective ID is not checked.
func (d *Dispatcher) checkOwner(objectiveID, keyResultID string) error {
	if objectiveID == "" {
		return nil
	}
	kr, err := d.objectives.KeyResult(keyResultID)
	if err != nil {
		return err
	}
	if kr.ObjectiveID != objectiveID {
		return fmt.Errorf("%w: key result %s does not belong to objective %s", okr.ErrInvalid, keyResultID, objectiveID)
	}
	return nil
}
