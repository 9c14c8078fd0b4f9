// Package migrations applies the embedded schema migrations and maintains
// the reporting materialized views, both through goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var Schema embed.FS

//go:embed matviews/*.sql
var MatViews embed.FS

// Version tables; each migration directory tracks its own progress.
const (
	SchemaTable   = "rapidpro2pg_migrations"
	MatViewsTable = "rapidpro2pg_progress"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Runner applies one directory of forward-only migrations.
type Runner struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	table  string
	logger logging.Logger
}

// NewSchemaMigrator returns the runner creating the document tables.
func NewSchemaMigrator(db *sql.DB, logger logging.Logger) *Runner {
	return &Runner{db: db, fsys: Schema, dir: "schema", table: SchemaTable, logger: logger}
}

// Run applies pending migrations. goose keeps its settings in package
// globals, so runners must not run concurrently.
func (r *Runner) Run(ctx context.Context) error {
	goose.SetBaseFS(r.fsys)
	goose.SetTableName(r.table)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStore, err)
	}

	if err := gooseUpContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("%w: applying %s migrations: %w", common.ErrStore, r.dir, err)
	}

	r.logger.Info(ctx, "migrations applied", "dir", r.dir, "table", r.table)
	return nil
}

// Refresher creates any new materialized views and then refreshes every
// materialized view of the current schema.
type Refresher struct {
	runner *Runner
	db     *sql.DB
	logger logging.Logger
}

func NewRefresher(db *sql.DB, logger logging.Logger) *Refresher {
	return &Refresher{
		runner: &Runner{db: db, fsys: MatViews, dir: "matviews", table: MatViewsTable, logger: logger},
		db:     db,
		logger: logger,
	}
}

func (r *Refresher) Run(ctx context.Context) error {
	if err := r.runner.Run(ctx); err != nil {
		return err
	}

	views, err := r.views(ctx)
	if err != nil {
		return err
	}

	for _, v := range views {
		if _, err := r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW "+v.Sanitize()); err != nil {
			return fmt.Errorf("%w: refreshing %s: %w", common.ErrStore, v.Sanitize(), err)
		}
		r.logger.Info(ctx, "materialized view refreshed", "view", v.Sanitize())
	}
	return nil
}

func (r *Refresher) views(ctx context.Context) ([]pgx.Identifier, error) {
	query := `SELECT schemaname, matviewname FROM pg_matviews
		WHERE schemaname = current_schema() ORDER BY matviewname`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing materialized views: %w", common.ErrStore, err)
	}
	defer rows.Close()

	var views []pgx.Identifier
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
		}
		views = append(views, pgx.Identifier{schema, name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return views, nil
}
