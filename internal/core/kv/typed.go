package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Bucket is a typed view over one key prefix of a KV.
type Bucket[T any] struct {
	store KV
	name  string
}

// Open returns the bucket called name.
func Open[T any](store KV, name string) *Bucket[T] {
	return &Bucket[T]{store: store, name: name}
}

func (b *Bucket[T]) key(k string) string { return b.name + ":" + k }

// Lookup reads k. A missing or expired key is reported as ok=false with a
// nil error.
func (b *Bucket[T]) Lookup(ctx context.Context, k string) (v T, ok bool, err error) {
	err = b.store.Get(ctx, b.key(k), &v)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return v, false, nil
	default:
		return v, false, err
	}
}

// Put stores v under k with no expiry, or with ttl when ttl > 0.
func (b *Bucket[T]) Put(ctx context.Context, k string, v T, ttl time.Duration) error {
	if ttl > 0 {
		return b.store.SetTTL(ctx, b.key(k), v, ttl)
	}
	return b.store.Set(ctx, b.key(k), v)
}

// Forget deletes k.
func (b *Bucket[T]) Forget(ctx context.Context, k string) error {
	return b.store.Delete(ctx, b.key(k))
}

// Keys lists the live keys of the bucket without the bucket prefix.
func (b *Bucket[T]) Keys(ctx context.Context) ([]string, error) {
	all, err := b.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	prefix := b.name + ":"
	var keys []string
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}
