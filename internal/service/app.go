package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/config"
	"github.com/colonyops/okr/internal/core/eventbus"
	"github.com/colonyops/okr/internal/core/kv"
	"github.com/colonyops/okr/internal/core/notify"
	"github.com/colonyops/okr/internal/data/db"
	"github.com/colonyops/okr/internal/data/stores"
)

// App is the central entry point for all okr operations.
// Commands and the server consume App instead of cherry-picking raw dependencies.
type App struct {
	Objectives    *ObjectiveService
	Progress      *ProgressService
	Notifications notify.Store
	KV            kv.KV

	Bus    *eventbus.EventBus
	Config *config.Config
	DB     *db.DB
}

// NewApp constructs an App over an open database and hydrates the arena.
// The caller owns the bus lifecycle: either Start it or Drain it before
// exiting.
func NewApp(ctx context.Context, cfg *config.Config, database *db.DB, bus *eventbus.EventBus, log zerolog.Logger) (*App, error) {
	objectives := NewObjectiveService(
		stores.NewObjectiveStore(database),
		stores.NewUserStore(database),
		bus,
		log,
	).WithPolicy(cfg.CheckIns.ConflictPolicy)

	if err := objectives.Load(ctx); err != nil {
		return nil, err
	}

	progress, err := NewProgressService(objectives.Arena(), cfg.Progress.CacheSize)
	if err != nil {
		return nil, err
	}

	notifications := stores.NewNotifyStore(database)
	eventbus.NewNotificationRouter(bus).Register()
	RecordNotifications(bus, notifications, time.Now, log)

	bus.SubscribeConfigReloaded(func(p eventbus.ConfigReloadedPayload) {
		if p.Config == nil {
			return
		}
		objectives.WithPolicy(p.Config.CheckIns.ConflictPolicy)
		log.Info().Str("conflict_policy", string(objectives.Policy())).Msg("check-in policy reloaded")
	})

	return &App{
		Objectives:    objectives,
		Progress:      progress,
		Notifications: notifications,
		KV:            stores.NewKVStore(database),
		Bus:           bus,
		Config:        cfg,
		DB:            database,
	}, nil
}

// RecordNotifications persists every published notification to store,
// stamped with now.
func RecordNotifications(bus *eventbus.EventBus, store notify.Store, now func() time.Time, log zerolog.Logger) {
	log = log.With().Str("component", "notifications").Logger()

	bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		_, err := store.Save(context.Background(), notify.Notification{
			Level:       p.Level,
			Message:     p.Message,
			ObjectiveID: p.ObjectiveID,
			KeyResultID: p.KeyResultID,
			CreatedAt:   now().UTC(),
		})
		if err != nil {
			log.Error().Err(fmt.Errorf("save notification: %w", err)).Msg("notification not persisted")
		}
	})
}
