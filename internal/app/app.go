// Package app wires the sync components together and runs one sync to
// completion: schema migration, the resource syncs, then the materialized
// view refresh.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/rapidpro2pg/internal/archive"
	"github.com/dmitrijs2005/rapidpro2pg/internal/config"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/migrations"
	"github.com/dmitrijs2005/rapidpro2pg/internal/rapidpro"
	"github.com/dmitrijs2005/rapidpro2pg/internal/store"
	"github.com/dmitrijs2005/rapidpro2pg/internal/syncer"
	"github.com/google/uuid"
)

// Step is one stage of the run sequence.
type Step interface {
	Run(ctx context.Context) error
}

type namedStep struct {
	name string
	step Step
}

type App struct {
	config *config.Config
	logger logging.Logger
	closer func() error
	steps  []namedStep
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	client, err := rapidpro.NewClient(c.RapidProURL, c.RapidProAuth, c.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(c.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var arch archive.Archiver = archive.Nop{}
	if c.ArchiveEnabled() {
		a, err := archive.NewS3Archiver(ctx, archive.Options{
			Bucket:    c.ArchiveBucket,
			Region:    c.ArchiveRegion,
			Endpoint:  c.ArchiveEndpoint,
			AccessKey: c.ArchiveAccessKey,
			SecretKey: c.ArchiveSecretKey,
		}, runID)
		if err != nil {
			st.Close()
			return nil, err
		}
		arch = a
		logger.Info(ctx, "archiving raw pages", "bucket", c.ArchiveBucket)
	}

	app := newApp(c, logger,
		migrations.NewSchemaMigrator(st.DB(), logger),
		syncer.NewEngine(client, st, arch, logger),
		migrations.NewRefresher(st.DB(), logger),
	)
	app.closer = st.Close
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, migrator, engine, refresher Step) *App {
	return &App{
		config: c,
		logger: logger,
		closer: func() error { return nil },
		steps: []namedStep{
			{name: "migrate", step: migrator},
			{name: "sync", step: engine},
			{name: "refresh", step: refresher},
		},
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Warn(ctx, "Interrupted, aborting sync", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run executes every step in order and stops at the first failure. Work
// committed by earlier steps is not rolled back.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)

	start := time.Now()
	app.logger.Info(ctx, "Starting sync...")

	for _, s := range app.steps {
		if err := s.step.Run(ctx); err != nil {
			app.logger.Error(ctx, "Sync failed", "step", s.name, "error", err)
			return fmt.Errorf("%s: %w", s.name, err)
		}
		app.logger.Debug(ctx, "step completed", "step", s.name)
	}

	app.logger.Info(ctx, "Sync completed", "elapsed", time.Since(start).String())
	return nil
}

// Close releases the database pool.
func (app *App) Close() error {
	return app.closer()
}
