package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/tunecord/internal/api"
	"github.com/genricoloni/tunecord/internal/artwork"
	"github.com/genricoloni/tunecord/internal/config"
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/engine"
	"github.com/genricoloni/tunecord/internal/executor"
	"github.com/genricoloni/tunecord/internal/fetcher"
	"github.com/genricoloni/tunecord/internal/ipc"
	"github.com/genricoloni/tunecord/internal/monitor"
	"github.com/genricoloni/tunecord/internal/presence"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AppOptions is the complete dependency graph of the daemon
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		fx.Annotate(
			config.NewPreferencesStore,
			fx.As(fx.Self()),
			fx.As(new(domain.PreferencesStore)),
			fx.As(new(domain.PreferencesWriter)),
		),
		fx.Annotate(fetcher.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		newArtworkLookup,
		fx.Annotate(newArtworkCache, fx.As(new(domain.ArtworkResolver))),
		fx.Annotate(executor.NewRunner, fx.As(new(executor.ScriptRunner))),
		monitor.NewTrackSource,
		fx.Annotate(newTransport, fx.As(new(domain.PresenceTransport))),
		fx.Annotate(
			newConnection,
			fx.As(fx.Self()),
			fx.As(new(domain.PresenceSink)),
			fx.As(new(domain.StatusReader)),
		),
		fx.Annotate(
			engine.NewSyncLoop,
			fx.As(fx.Self()),
			fx.As(new(domain.TrackReader)),
		),
		api.NewServer,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Stop the application gracefully
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a production logger, at debug level when TUNECORD_DEBUG is set
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if config.DebugEnabled() {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newArtworkLookup(logger *zap.Logger, f domain.Fetcher, cfg *config.AppConfig) *artwork.ITunesLookup {
	return artwork.NewITunesLookup(logger, f, cfg.GetLookupEndpoint())
}

func newArtworkCache(logger *zap.Logger, lookup *artwork.ITunesLookup, cfg *config.AppConfig) *artwork.Cache {
	return artwork.NewCache(logger, lookup, artwork.Options{Path: cfg.GetCachePath()})
}

func newTransport(logger *zap.Logger, cfg *config.AppConfig) *ipc.Client {
	return ipc.NewClient(logger, cfg.GetAppID())
}

func newConnection(logger *zap.Logger, transport domain.PresenceTransport) *presence.Connection {
	return presence.NewConnection(logger, transport, presence.DefaultSettings())
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	prefs *config.PreferencesStore,
	conn *presence.Connection,
	loop *engine.SyncLoop,
	server *api.Server,
	source domain.TrackSource,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := prefs.Watch(); err != nil {
				logger.Warn("Preferences live reload disabled", zap.Error(err))
			}

			conn.Start()

			if err := loop.Start(ctx); err != nil {
				return err
			}
			if err := server.Start(ctx); err != nil {
				return err
			}

			logger.Info("Tunecord Daemon Started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")

			return runStopSteps(ctx, logger, stopSteps(loop, server, conn, prefs, source))
		},
	})
}

type stopStep struct {
	name string
	stop func(context.Context) error
}

// stopSteps lists the teardown in order. The sync loop stops first so no
// command races the presence shutdown.
func stopSteps(
	loop *engine.SyncLoop,
	server *api.Server,
	conn *presence.Connection,
	prefs *config.PreferencesStore,
	source domain.TrackSource,
) []stopStep {
	steps := []stopStep{
		{name: "sync loop", stop: loop.Stop},
		{name: "api", stop: server.Stop},
		{name: "presence", stop: conn.Shutdown},
		{name: "preferences", stop: func(context.Context) error { return prefs.Unwatch() }},
	}
	if closer, ok := source.(io.Closer); ok {
		steps = append(steps, stopStep{name: "track source", stop: func(context.Context) error { return closer.Close() }})
	}
	return steps
}

// runStopSteps runs every step even after a failure and combines the errors
func runStopSteps(ctx context.Context, logger *zap.Logger, steps []stopStep) error {
	var err error
	for _, step := range steps {
		if stepErr := step.stop(ctx); stepErr != nil {
			logger.Warn("Shutdown step failed", zap.String("step", step.name), zap.Error(stepErr))
			err = multierr.Append(err, stepErr)
		}
	}
	return err
}
