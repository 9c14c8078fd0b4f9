package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	"github.com/dmitrijs2005/rapidpro2pg/internal/store"
)

// Synchronizer replicates one resource type into the store.
type Synchronizer interface {
	Resource() models.Resource
	// Sync runs to completion and returns the number of records synchronized.
	Sync(ctx context.Context) (int, error)
}

// ResourceSynchronizer handles resources that are replicated as-is with a
// full resync every time: contacts and messages.
type ResourceSynchronizer struct {
	pager      *Pager
	store      store.Writer
	resource   models.Resource
	collection store.Collection
	keyField   string
	logger     logging.Logger
}

func NewContactsSynchronizer(p *Pager, w store.Writer, logger logging.Logger) *ResourceSynchronizer {
	return &ResourceSynchronizer{
		pager: p, store: w, logger: logger,
		resource: models.Contacts, collection: store.ContactsCollection, keyField: "uuid",
	}
}

func NewMessagesSynchronizer(p *Pager, w store.Writer, logger logging.Logger) *ResourceSynchronizer {
	return &ResourceSynchronizer{
		pager: p, store: w, logger: logger,
		resource: models.Messages, collection: store.MessagesCollection, keyField: "id",
	}
}

func (s *ResourceSynchronizer) Resource() models.Resource {
	return s.resource
}

// Upsert stores one page of records. Empty pages are a no-op.
func (s *ResourceSynchronizer) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs, err := toDocuments(s.resource, records, s.keyField)
	if err != nil {
		return err
	}
	return s.store.Upsert(ctx, s.collection, docs)
}

func (s *ResourceSynchronizer) Sync(ctx context.Context) (int, error) {
	total, err := s.pager.Run(ctx, s.resource, s.Upsert, "")
	if err != nil {
		s.logger.Error(ctx, "Error when syncing "+s.resource.String(), "error", err)
		return 0, fmt.Errorf("sync %s: %w", s.resource, err)
	}
	return total, nil
}
