package logging

import "context"

type contextKey string

const (
	objectiveIDKey contextKey = "objective_id"
	keyResultIDKey contextKey = "key_result_id"
	clientIDKey    contextKey = "client_id"
)

// WithObjectiveID adds an objective ID to the context.
func WithObjectiveID(ctx context.Context, objectiveID string) context.Context {
	return context.WithValue(ctx, objectiveIDKey, objectiveID)
}

// WithKeyResultID adds a key result ID to the context.
func WithKeyResultID(ctx context.Context, keyResultID string) context.Context {
	return context.WithValue(ctx, keyResultIDKey, keyResultID)
}

// WithClientID adds a realtime client ID to the context.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// GetObjectiveID retrieves the objective ID from the context.
// Returns empty string if not present.
func GetObjectiveID(ctx context.Context) string {
	return stringValue(ctx, objectiveIDKey)
}

// GetKeyResultID retrieves the key result ID from the context.
// Returns empty string if not present.
func GetKeyResultID(ctx context.Context) string {
	return stringValue(ctx, keyResultIDKey)
}

// GetClientID retrieves the realtime client ID from the context.
func GetClientID(ctx context.Context) string {
	return stringValue(ctx, clientIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if id, ok := ctx.Value(key).(string); ok {
		return id
	}
	return ""
}
