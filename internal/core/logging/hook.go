package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies objective, key result and client IDs from the event's
// context onto the log event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if id := GetObjectiveID(ctx); id != "" {
		e.Str(string(objectiveIDKey), id)
	}

	if id := GetKeyResultID(ctx); id != "" {
		e.Str(string(keyResultIDKey), id)
	}

	if id := GetClientID(ctx); id != "" {
		e.Str(string(clientIDKey), id)
	}
}
