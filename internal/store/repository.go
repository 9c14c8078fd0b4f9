package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
)

// Writer is the store surface the synchronizers depend on.
type Writer interface {
	Upsert(ctx context.Context, c Collection, docs []models.Document) error
	UpsertNodes(ctx context.Context, nodes []models.NodeDocument) error
	Watermarks
}

// Watermarks persists the runs high-water mark per source instance.
type Watermarks interface {
	// Watermark returns the stored value and whether a row exists.
	Watermark(ctx context.Context, source string) (string, bool, error)
	InsertWatermark(ctx context.Context, source, value string) error
	UpdateWatermark(ctx context.Context, source, value string) error
}

// Querier is the generic parameterized read/write primitive.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}
