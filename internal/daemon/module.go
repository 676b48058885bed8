package daemon

import (
	"context"

	"github.com/lmoreira/courier/internal/block"
	"github.com/lmoreira/courier/internal/bus"
	"github.com/lmoreira/courier/internal/lock"
	"github.com/lmoreira/courier/internal/logging"
	"github.com/lmoreira/courier/internal/media"
	"github.com/lmoreira/courier/internal/notify"
	"github.com/lmoreira/courier/internal/outbox"
	"github.com/lmoreira/courier/internal/presence"
	"github.com/lmoreira/courier/internal/remote"
	"github.com/lmoreira/courier/internal/session"
	"github.com/lmoreira/courier/internal/store"
	intsync "github.com/lmoreira/courier/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Session       session.Session
	RemoteBaseURL string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			providePresence,
			provideLock,
			provideStore,
			provideMedia,
			provideRemote,
			provideGate,
			provideTracker,
			provideNotifier,
			provideEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Session.Name), p.Session.Name)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func providePresence(b *bus.Bus) *presence.Machine {
	return presence.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Session.Name); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.Session.Name))
	l, err := lock.Acquire(session.Dir(p.Session.Name))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.Session.Name)
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
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMedia(p Params) (*media.Store, error) {
	return media.NewStore(session.MediaDir(p.Session.Name))
}

func provideRemote(p Params) *remote.Client {
	return remote.NewClient(p.RemoteBaseURL, p.Session)
}

func provideGate(db *store.DB, client *remote.Client, logger *zap.Logger) *block.Gate {
	return block.NewGate(db, client, logger)
}

func provideTracker(client *remote.Client, logger *zap.Logger) *outbox.Tracker {
	return outbox.NewTracker(client, client, logger)
}

func provideNotifier(logger *zap.Logger) notify.Notifier {
	return &notify.LogNotifier{Logger: logger}
}

func provideEngine(
	p Params,
	db *store.DB,
	b *bus.Bus,
	gate *block.Gate,
	tracker *outbox.Tracker,
	blobs *media.Store,
	client *remote.Client,
	notifier notify.Notifier,
	machine *presence.Machine,
	logger *zap.Logger,
) *intsync.Engine {
	return intsync.NewEngine(intsync.Deps{
		DB:        db,
		Bus:       b,
		Gate:      gate,
		Tracker:   tracker,
		Media:     blobs,
		Directory: client,
		Notifier:  notifier,
		Presence:  machine,
		Session:   p.Session,
		Logger:    logger,
	})
}

func registerLifecycle(lc fx.Lifecycle, engine *intsync.Engine, lk *lock.Lock, db *store.DB, machine *presence.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start the engine (subscribes to push.* bus events) and
			// publish the first snapshot from whatever the store holds.
			engine.Start(context.Background())
			if err := engine.Rederive(); err != nil {
				return err
			}
			// A headless daemon counts as backgrounded until an
			// embedding UI says otherwise.
			_ = machine.Transition(presence.Background)
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.Stop()
			_ = machine.Transition(presence.Stopped)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
