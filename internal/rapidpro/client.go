// Package rapidpro is a thin client for the RapidPro v2 REST API. It builds
// resource URLs, performs authenticated GETs and decodes page envelopes; it
// never retries.
package rapidpro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/models"
)

const apiPath = "/api/v2/"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// Client talks to one RapidPro instance.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient returns a client for the instance at baseURL authenticating
// with token. A zero timeout means no client-side timeout.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid RapidPro URL %q", common.ErrConfig, baseURL)
	}
	return &Client{
		base:  u,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// BuildURI composes <base>/api/v2/<resource>.json with an optional query.
func (c *Client) BuildURI(resource models.Resource, query string) string {
	uri := c.base.String() + apiPath + resource.String() + ".json"
	if query != "" {
		uri += "?" + query
	}
	return uri
}

// SourceID identifies the configured instance (host plus path), used to
// namespace per-instance sync state in a shared store.
func (c *Client) SourceID() string {
	return c.base.Host + strings.TrimRight(c.base.Path, "/")
}

// Fetch retrieves and decodes one page of a paginated collection.
func (c *Client) Fetch(ctx context.Context, uri string) (*models.Page, error) {
	body, err := c.get(ctx, uri)
	if err != nil {
		return nil, err
	}

	page := &models.Page{}
	if err := models.DecodeJSON(body, page); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecode, uri, err)
	}
	page.Raw = body
	return page, nil
}

// FetchDefinitions retrieves the definitions envelope at uri.
func (c *Client) FetchDefinitions(ctx context.Context, uri string) (*models.DefinitionsPage, error) {
	body, err := c.get(ctx, uri)
	if err != nil {
		return nil, err
	}

	defs := &models.DefinitionsPage{}
	if err := models.DecodeJSON(body, defs); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecode, uri, err)
	}
	return defs, nil
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %w", common.ErrNetwork, uri, err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.AuthorizationScheme+" "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", common.ErrNetwork, uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", common.ErrNetwork, uri, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: GET %s: %s; body: %s", common.ErrNetwork, uri, resp.Status, string(body))
	}

	return body, nil
}
