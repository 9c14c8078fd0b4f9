package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"testing"

	"github.com/dmitrijs2005/rapidpro2pg/internal/logging"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
	"github.com/dmitrijs2005/rapidpro2pg/internal/store"
	"github.com/stretchr/testify/require"
)

const testBase = "https://rapidpro.test/api/v2/"

// fakeClient serves canned pages keyed by URI.
type fakeClient struct {
	pages       map[string]string // uri -> page body
	definitions map[string]string // uri -> definitions body
	fetchErr    map[string]error
	fetched     []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:       map[string]string{},
		definitions: map[string]string{},
		fetchErr:    map[string]error{},
	}
}

func (f *fakeClient) BuildURI(resource models.Resource, query string) string {
	uri := testBase + resource.String() + ".json"
	if query != "" {
		uri += "?" + query
	}
	return uri
}

func (f *fakeClient) SourceID() string { return "rapidpro.test" }

func (f *fakeClient) Fetch(ctx context.Context, uri string) (*models.Page, error) {
	f.fetched = append(f.fetched, uri)
	if err := f.fetchErr[uri]; err != nil {
		return nil, err
	}
	body, ok := f.pages[uri]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch of %s", uri)
	}
	p := &models.Page{}
	if err := models.DecodeJSON([]byte(body), p); err != nil {
		return nil, err
	}
	p.Raw = []byte(body)
	return p, nil
}

func (f *fakeClient) FetchDefinitions(ctx context.Context, uri string) (*models.DefinitionsPage, error) {
	f.fetched = append(f.fetched, uri)
	if err := f.fetchErr[uri]; err != nil {
		return nil, err
	}
	body, ok := f.definitions[uri]
	if !ok {
		return nil, fmt.Errorf("unexpected fetch of %s", uri)
	}
	d := &models.DefinitionsPage{}
	if err := models.DecodeJSON([]byte(body), d); err != nil {
		return nil, err
	}
	return d, nil
}

// addPages registers a chain of pages for resource; the first page answers
// the given initial query.
func (f *fakeClient) addPages(resource models.Resource, query string, results ...string) {
	uri := f.BuildURI(resource, query)
	for i, r := range results {
		next := "null"
		nextURI := fmt.Sprintf("%s%s.json?cursor=%d", testBase, resource, i+1)
		if i < len(results)-1 {
			next = `"` + nextURI + `"`
		}
		f.pages[uri] = fmt.Sprintf(`{"previous":null,"next":%s,"results":%s}`, next, r)
		uri = nextURI
	}
}

type memStore struct {
	tables     map[string]map[string]string
	nodeFlows  map[string]string
	watermarks map[string]string
	calls      []string
	failOn     map[string]error
}

var _ store.Writer = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		tables:     map[string]map[string]string{},
		nodeFlows:  map[string]string{},
		watermarks: map[string]string{},
		failOn:     map[string]error{},
	}
}

func (m *memStore) put(table string, key string, doc []byte) {
	if m.tables[table] == nil {
		m.tables[table] = map[string]string{}
	}
	m.tables[table][key] = string(doc)
}

func (m *memStore) Upsert(ctx context.Context, c store.Collection, docs []models.Document) error {
	m.calls = append(m.calls, "upsert "+c.Table)
	if err := m.failOn[c.Table]; err != nil {
		return err
	}
	for _, d := range docs {
		m.put(c.Table, d.Key, d.Doc)
	}
	return nil
}

func (m *memStore) UpsertNodes(ctx context.Context, nodes []models.NodeDocument) error {
	m.calls = append(m.calls, "upsert rapidpro_definitions_nodes")
	for _, n := range nodes {
		m.put("rapidpro_definitions_nodes", n.Key, n.Doc)
		m.nodeFlows[n.Key] = n.FlowKey
	}
	return nil
}

func (m *memStore) Watermark(ctx context.Context, source string) (string, bool, error) {
	m.calls = append(m.calls, "select watermark")
	v, ok := m.watermarks[source]
	return v, ok, nil
}

func (m *memStore) InsertWatermark(ctx context.Context, source, value string) error {
	m.calls = append(m.calls, "insert watermark "+value)
	if _, ok := m.watermarks[source]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	m.watermarks[source] = value
	return nil
}

func (m *memStore) UpdateWatermark(ctx context.Context, source, value string) error {
	m.calls = append(m.calls, "update watermark "+value)
	if _, ok := m.watermarks[source]; !ok {
		return errors.New("no row")
	}
	m.watermarks[source] = value
	return nil
}

func (m *memStore) snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.tables)+1)
	for t, rows := range m.tables {
		out[t] = maps.Clone(rows)
	}
	out["watermarks"] = maps.Clone(m.watermarks)
	return out
}

func discard() logging.Logger { return logging.Discard() }

func decodeDoc(t *testing.T, doc string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}
