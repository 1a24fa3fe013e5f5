// Package app composes the client from its parts.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/bus"
	"github.com/cove-chat/cove/internal/cache"
	"github.com/cove-chat/cove/internal/chat"
	"github.com/cove-chat/cove/internal/config"
	"github.com/cove-chat/cove/internal/logging"
	"github.com/cove-chat/cove/internal/session"
	"github.com/cove-chat/cove/internal/status"
	"github.com/cove-chat/cove/internal/store"
	"github.com/cove-chat/cove/internal/tui"
)

// Params holds the resolved account configuration passed to the fx module.
type Params struct {
	Account string
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("cove",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideTokenStore,
			provideClient,
			provideStore,
			provideGuard,
			provideCacheEngine,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := session.EnsureDir(p.Account); err != nil {
		return nil, err
	}
	return logging.New(session.LogPath(p.Account), p.Account)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideTokenStore(p Params) *session.TokenStore {
	return session.NewTokenStore(p.Account)
}

func provideClient(cfg *config.Config, tokens *session.TokenStore, b *bus.Bus, logger *zap.Logger) (*api.Client, error) {
	return api.NewClient(cfg.ServerURL, tokens,
		api.WithLogger(logger),
		api.WithOnSessionExpired(func() {
			b.Publish(bus.Event{Kind: bus.KindSessionExpired})
		}))
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CacheDBPath(p.Account)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideGuard() *chat.Guard {
	return chat.NewGuard(chat.GuardTTL)
}

func provideCacheEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *cache.Engine {
	// The local user id is unknown until login; FromMe resolution
	// happens per message in the TUI-provided events.
	return cache.NewEngine(db, b, "", logger)
}

func provideTUI(p Params, client *api.Client, tokens *session.TokenStore, db *store.DB, b *bus.Bus, m *status.Machine, g *chat.Guard, cfg *config.Config, logger *zap.Logger) *tui.App {
	return tui.NewApp(tui.Deps{
		Client:  client,
		Tokens:  tokens,
		DB:      db,
		Bus:     b,
		Machine: m,
		Guard:   g,
		Config:  cfg,
		Logger:  logger,
		Account: p.Account,
	})
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, ui *tui.App, engine *cache.Engine, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Cache engine subscribes to chat.* bus events.
			engine.Start(context.Background())

			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("tui error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ui.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("closing cache db", zap.Error(err))
			}
			logger.Info("shutdown complete")
			return nil
		},
	})
}
