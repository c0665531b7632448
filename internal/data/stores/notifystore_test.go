package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/notify"
)

func TestNotifyStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and list", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))

		id, err := store.Save(ctx, notify.Notification{
			Level:       notify.LevelWarning,
			Message:     "Ship v2: no report for 2025-05-01",
			ObjectiveID: "obj-1",
			KeyResultID: "kr-1",
			CreatedAt:   base,
		})
		require.NoError(t, err)
		assert.Positive(t, id)

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, notify.Notification{
			ID:          id,
			Level:       notify.LevelWarning,
			Message:     "Ship v2: no report for 2025-05-01",
			ObjectiveID: "obj-1",
			KeyResultID: "kr-1",
			CreatedAt:   base,
		}, items[0])
	})

	t.Run("list returns newest first and honours limit", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))

		for i, msg := range []string{"first", "second", "third"} {
			_, err := store.Save(ctx, notify.Notification{
				Level:     notify.LevelInfo,
				Message:   msg,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "third", items[0].Message)
		assert.Equal(t, "second", items[1].Message)
		assert.Equal(t, "first", items[2].Message)

		items, err = store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "third", items[0].Message)
	})

	t.Run("clear and count", func(t *testing.T) {
		store := NewNotifyStore(openTestDB(t))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		for range 3 {
			_, err := store.Save(ctx, notify.Notification{Level: notify.LevelInfo, Message: "msg", CreatedAt: base})
			require.NoError(t, err)
		}

		count, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		require.NoError(t, store.Clear(ctx))

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	})
}
