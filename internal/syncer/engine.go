// Package syncer implements the RapidPro to PostgreSQL sync engine: the
// cursor-following pager, one synchronizer per resource type and the
// engine running them in a fixed order.
package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rapidpro2pg/internal/archive"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	"github.com/dmitrijs2005/rapidpro2pg/internal/store"
)

// Client is everything the engine needs from the RapidPro client.
type Client interface {
	Fetcher
	DefinitionsFetcher
	SourceID() string
}

// Order is the fixed sequence in which resource types are synchronized.
var Order = []models.Resource{models.Contacts, models.Messages, models.Runs, models.Flows}

// Engine binds each resource type to its synchronizer.
type Engine struct {
	client   Client
	store    store.Writer
	archiver archive.Archiver
	logger   logging.Logger
}

func NewEngine(client Client, w store.Writer, archiver archive.Archiver, logger logging.Logger) *Engine {
	return &Engine{client: client, store: w, archiver: archiver, logger: logger}
}

// Synchronizer returns the synchronizer for r.
func (e *Engine) Synchronizer(r models.Resource) (Synchronizer, error) {
	logger := e.logger.With("resource", r.String())
	pager := NewPager(e.client, e.archiver, logger)

	switch r {
	case models.Contacts:
		return NewContactsSynchronizer(pager, e.store, logger), nil
	case models.Messages:
		return NewMessagesSynchronizer(pager, e.store, logger), nil
	case models.Runs:
		return NewRunsSynchronizer(pager, e.store, e.client.SourceID(), logger), nil
	case models.Flows:
		return NewFlowsSynchronizer(pager, e.client, e.store, logger), nil
	default:
		return nil, fmt.Errorf("no synchronizer for resource %s", r)
	}
}

// Run synchronizes every resource type in Order, stopping at the first
// failure. Records committed before the failure stay in the store.
func (e *Engine) Run(ctx context.Context) error {
	for _, r := range Order {
		s, err := e.Synchronizer(r)
		if err != nil {
			return err
		}
		if _, err := s.Sync(ctx); err != nil {
			return err
		}
	}
	return nil
}
