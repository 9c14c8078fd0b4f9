package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/rapidpro2pg/internal/archive"
	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
)

// Fetcher is the part of the RapidPro client the pager needs.
type Fetcher interface {
	BuildURI(resource models.Resource, query string) string
	Fetch(ctx context.Context, uri string) (*models.Page, error)
}

// Consumer handles the records of one page. A returned error stops
// pagination.
type Consumer func(ctx context.Context, records []models.Record) error

// Pager follows a collection's next-page cursor until it is exhausted,
// handing every page to a consumer in fetch order.
type Pager struct {
	client   Fetcher
	archiver archive.Archiver
	logger   logging.Logger
}

func NewPager(client Fetcher, archiver archive.Archiver, logger logging.Logger) *Pager {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &Pager{client: client, archiver: archiver, logger: logger}
}

// Run fetches every page of resource, starting with the optional query, and
// returns the number of records consumed. The next page is not requested
// until consume has returned for the current one.
func (p *Pager) Run(ctx context.Context, resource models.Resource, consume Consumer, query string) (int, error) {
	uri := p.client.BuildURI(resource, query)
	total := 0

	for n := 1; ; n++ {
		page, err := p.client.Fetch(ctx, uri)
		if err != nil {
			p.logger.Warn(ctx, "pagination stopped", "resource", resource.String(), "page", n, "consumed", total)
			return 0, err
		}

		if err := p.archiver.Archive(ctx, resource, n, page.Raw); err != nil {
			return 0, err
		}

		p.logger.Debug(ctx, fmt.Sprintf("fetched %d %s", len(page.Results), resource), "page", n)

		if err := consume(ctx, page.Results); err != nil {
			p.logger.Warn(ctx, "pagination stopped", "resource", resource.String(), "page", n, "consumed", total)
			return 0, err
		}
		total += len(page.Results)

		if !page.HasNext() {
			break
		}
		if *page.Next == uri {
			return 0, &common.ProtocolError{Msg: fmt.Sprintf("next page of %s points back to %s", resource, uri), Result: *page.Next}
		}
		uri = *page.Next
	}

	p.logger.Info(ctx, fmt.Sprintf("Completed synchronizing %d %s", total, resource), "total", total)
	return total, nil
}
