package syncer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	"github.com/dmitrijs2005/rapidpro2pg/internal/store"
)

// DefinitionsFetcher fetches flow definitions for a set of flows.
type DefinitionsFetcher interface {
	BuildURI(resource models.Resource, query string) string
	FetchDefinitions(ctx context.Context, uri string) (*models.DefinitionsPage, error)
}

// FlowsSynchronizer replicates flows and, for every page of flows, their
// definitions and the nodes expanded out of those definitions.
type FlowsSynchronizer struct {
	pager  *Pager
	client DefinitionsFetcher
	store  store.Writer
	logger logging.Logger
}

func NewFlowsSynchronizer(p *Pager, client DefinitionsFetcher, w store.Writer, logger logging.Logger) *FlowsSynchronizer {
	return &FlowsSynchronizer{pager: p, client: client, store: w, logger: logger}
}

func (s *FlowsSynchronizer) Resource() models.Resource {
	return models.Flows
}

func (s *FlowsSynchronizer) Sync(ctx context.Context) (int, error) {
	total, err := s.pager.Run(ctx, models.Flows, s.Upsert, "")
	if err != nil {
		s.logger.Error(ctx, "Error when syncing flows", "error", err)
		return 0, fmt.Errorf("sync flows: %w", err)
	}
	return total, nil
}

// Upsert stores a page of flows and then syncs their definitions.
func (s *FlowsSynchronizer) Upsert(ctx context.Context, flows []models.Record) error {
	if len(flows) == 0 {
		return nil
	}

	docs, err := toDocuments(models.Flows, flows, "uuid")
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, store.FlowsCollection, docs); err != nil {
		return err
	}

	return s.syncDefinitions(ctx, docs)
}

func (s *FlowsSynchronizer) syncDefinitions(ctx context.Context, flows []models.Document) error {
	q := url.Values{}
	for _, f := range flows {
		q.Add("flow", f.Key)
	}

	defs, err := s.client.FetchDefinitions(ctx, s.client.BuildURI(models.Definitions, q.Encode()))
	if err != nil {
		return err
	}
	if defs == nil || len(defs.Flows) == 0 {
		return &common.ProtocolError{Msg: "Unexpected result when getting flow definitions", Result: defs}
	}

	docs, err := toDocuments(models.Definitions, defs.Flows, "uuid")
	if err != nil {
		return err
	}

	nodes, err := ExpandNodes(defs.Flows)
	if err != nil {
		return err
	}

	if err := s.store.Upsert(ctx, store.DefinitionsCollection, docs); err != nil {
		return err
	}
	return s.store.UpsertNodes(ctx, nodes)
}

// ExpandNodes turns every entry of each definition's "nodes" list into a
// node document. UI metadata found at _ui.nodes[<node uuid>] is attached as
// a nested "ui" field; nodes without metadata get no "ui" field.
func ExpandNodes(definitions []models.Record) ([]models.NodeDocument, error) {
	var out []models.NodeDocument

	for _, def := range definitions {
		flowKey, err := def.Key("uuid")
		if err != nil {
			return nil, fmt.Errorf("%w: definition: %w", common.ErrProtocol, err)
		}

		list, _ := def["nodes"].([]any)
		uiNodes := uiNodes(def)

		for i, raw := range list {
			src, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: flow %s node %d is not an object", common.ErrProtocol, flowKey, i)
			}

			node := make(models.Record, len(src)+1)
			for k, v := range src {
				node[k] = v
			}

			key, err := node.Key("uuid")
			if err != nil {
				return nil, fmt.Errorf("%w: flow %s node %d: %w", common.ErrProtocol, flowKey, i, err)
			}
			if ui, ok := uiNodes[key]; ok && ui != nil {
				node["ui"] = ui
			}

			doc, err := node.Marshal()
			if err != nil {
				return nil, fmt.Errorf("%w: flow %s node %s: %w", common.ErrDecode, flowKey, key, err)
			}
			out = append(out, models.NodeDocument{Key: key, FlowKey: flowKey, Doc: doc})
		}
	}

	return out, nil
}

func uiNodes(def models.Record) map[string]any {
	ui, _ := def["_ui"].(map[string]any)
	nodes, _ := ui["nodes"].(map[string]any)
	return nodes
}
