// Package kv defines the small persistent cache shared by the reminder job
// and the assistant. Values are stored as JSON and may expire.
package kv

import (
	"context"
	"encoding/json"
	"time"
)

// Buckets in use. Keys in the underlying store are "<bucket>:<key>".
const (
	BucketReminders = "reminders"
	BucketAssist    = "assist"
)

// Entry is a stored value with its bookkeeping columns.
type Entry struct {
	Key       string
	Value     json.RawMessage
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KV is implemented by stores.KVStore. Get on a missing or expired key
// returns an error wrapping sql.ErrNoRows.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
	GetRaw(ctx context.Context, key string) (Entry, error)
}
