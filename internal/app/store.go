package app

import (
	"context"
	"fmt"

	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/database"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

type openedStore struct {
	docstore.Store
	// Listen follows the database change stream; nil for stores that need none.
	Listen func(ctx context.Context) error
	Close  func()
}

func openStore(ctx context.Context, cfg config.Application, bus *event_bus.EventBus) (*openedStore, error) {
	switch cfg.Store.Driver {
	case config.PostgresDriver:
		if err := database.Migrate(cfg.Database); err != nil {
			return nil, err
		}
		pool, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := docstore.NewPostgresStore(pool, bus, docstore.ListenOptions{
			Attempts: cfg.Subscription.RetryAttempts,
			Delay:    cfg.Subscription.RetryDelay,
			MaxDelay: cfg.Subscription.RetryMaxDelay,
		})
		log.Infof("Using Postgres document store at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		return &openedStore{Store: store, Listen: store.Listen, Close: pool.Close}, nil
	case config.MemoryDriver, "":
		log.Warn("Using the in-memory document store, data will not survive a restart")
		return &openedStore{Store: docstore.NewMemoryStore(bus)}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
