// Package store persists synchronized RapidPro documents in PostgreSQL using
// idempotent keyed upserts, and keeps the runs watermark.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/dbx"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// maxRowsPerStatement keeps a statement well below PostgreSQL's 65535
// bind parameter limit.
const maxRowsPerStatement = 1000

// PostgresStore implements Writer and Querier over a *sql.DB.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to the database at dsn using the pgx driver.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: db open error: %w", common.ErrStore, err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying pool, e.g. for migrations.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Upsert writes docs into c in a single transaction. Within one call a
// repeated key keeps its last document. An empty batch touches nothing.
func (s *PostgresStore) Upsert(ctx context.Context, c Collection, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	docs = dedupeDocuments(docs)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for start := 0; start < len(docs); start += maxRowsPerStatement {
			chunk := docs[start:min(start+maxRowsPerStatement, len(docs))]
			args := make([]any, 0, len(chunk)*2)
			for _, d := range chunk {
				args = append(args, d.Key, string(d.Doc))
			}
			if _, err := tx.ExecContext(ctx, UpsertStatement(c, len(chunk)), args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", common.ErrStore, c.Table, err)
	}
	return nil
}

// UpsertNodes writes flow node documents in a single transaction.
func (s *PostgresStore) UpsertNodes(ctx context.Context, nodes []models.NodeDocument) error {
	if len(nodes) == 0 {
		return nil
	}
	nodes = dedupeNodes(nodes)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for start := 0; start < len(nodes); start += maxRowsPerStatement {
			chunk := nodes[start:min(start+maxRowsPerStatement, len(nodes))]
			args := make([]any, 0, len(chunk)*3)
			for _, n := range chunk {
				args = append(args, n.Key, n.FlowKey, string(n.Doc))
			}
			if _, err := tx.ExecContext(ctx, NodeUpsertStatement(len(chunk)), args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", common.ErrStore, nodesTable, err)
	}
	return nil
}

// Watermark returns the last_modified value stored for source.
func (s *PostgresStore) Watermark(ctx context.Context, source string) (string, bool, error) {
	query := `SELECT last_modified FROM ` + watermarkTable + ` WHERE source = $1`

	rows, err := s.Query(ctx, query, source)
	if err != nil {
		return "", false, fmt.Errorf("reading watermark: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, fmt.Errorf("%w: reading watermark: %w", common.ErrStore, err)
		}
		return "", false, nil
	}

	var value string
	if err := rows.Scan(&value); err != nil {
		return "", false, fmt.Errorf("%w: reading watermark: %w", common.ErrStore, err)
	}
	return value, true, nil
}

// InsertWatermark creates the watermark row for source.
func (s *PostgresStore) InsertWatermark(ctx context.Context, source, value string) error {
	query := `INSERT INTO ` + watermarkTable + ` (source, last_modified) VALUES ($1, $2)`
	if _, err := s.Exec(ctx, query, source, value); err != nil {
		return fmt.Errorf("inserting watermark: %w", err)
	}
	return nil
}

// UpdateWatermark replaces the watermark value for source.
func (s *PostgresStore) UpdateWatermark(ctx context.Context, source, value string) error {
	query := `UPDATE ` + watermarkTable + ` SET last_modified = $2 WHERE source = $1`
	res, err := s.Exec(ctx, query, source, value)
	if err != nil {
		return fmt.Errorf("updating watermark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected error: %w", common.ErrStore, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: updating watermark: unexpected rows affected: %d", common.ErrStore, n)
	}
	return nil
}

// Query runs an arbitrary parameterized read; Watermark reads through it.
// The caller closes the rows.
func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return rows, nil
}

// Exec runs an arbitrary parameterized write.
// InsertWatermark and UpdateWatermark go through it.
func (s *PostgresStore) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return res, nil
}

// dedupeDocuments collapses repeated keys keeping the last document at the
// position of the first occurrence. PostgreSQL refuses an ON CONFLICT
// statement that would update the same row twice.
func dedupeDocuments(docs []models.Document) []models.Document {
	index := make(map[string]int, len(docs))
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if i, ok := index[d.Key]; ok {
			out[i] = d
			continue
		}
		index[d.Key] = len(out)
		out = append(out, d)
	}
	return out
}

func dedupeNodes(nodes []models.NodeDocument) []models.NodeDocument {
	index := make(map[string]int, len(nodes))
	out := make([]models.NodeDocument, 0, len(nodes))
	for _, n := range nodes {
		if i, ok := index[n.Key]; ok {
			out[i] = n
			continue
		}
		index[n.Key] = len(out)
		out = append(out, n)
	}
	return out
}
