// Package openalex is the OpenAlex adapter: keyword search and citation
// walks over the works endpoint.
package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// RateLimit is the polite-pool request rate.
	RateLimit = 10.0

	// MaxPerPage is the largest page the works endpoint serves.
	MaxPerPage = 200

	// referenceBatch is how many ids go into one openalex_id OR filter.
	referenceBatch = 50
)

// Client is a rate-limited OpenAlex client.
type Client struct {
	api    *apiclient.Client
	mailto string
}

// NewClient creates an OpenAlex client. mailto joins the polite pool; an
// API key set with apiclient.WithAPIKey is sent as the api_key parameter.
func NewClient(mailto string, opts ...apiclient.Option) *Client {
	svc := apiclient.Service{Name: "openalex", BaseURL: BaseURL, RateLimit: RateLimit}
	return &Client{api: apiclient.New(svc, opts...), mailto: mailto}
}

func (c *Client) params() url.Values {
	v := url.Values{}
	if c.mailto != "" {
		v.Set("mailto", c.mailto)
	}
	if key := c.api.APIKey(); key != "" {
		v.Set("api_key", key)
	}
	return v
}

// Search runs a keyword search restricted to articles.
func (c *Client) Search(ctx context.Context, q paper.Query) ([]paper.Paper, error) {
	filters := []string{"type:article"}
	if q.HasYearRange() {
		filters = append(filters, fmt.Sprintf("publication_year:%d-%d", q.YearFrom, q.YearTo))
	}
	if q.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", q.MinCitations))
	}

	params := c.params()
	params.Set("search", q.Text)
	params.Set("filter", strings.Join(filters, ","))

	papers, err := c.paginate(ctx, params, q.MaxResults, paper.KeywordSearch, q.Text)
	if err != nil {
		return nil, fmt.Errorf("searching OpenAlex: %w", err)
	}
	c.api.Logger().Info("openalex search",
		zap.String("query", q.Text), zap.Int("papers", len(papers)))
	return papers, nil
}

// Forward returns works citing id.
func (c *Client) Forward(ctx context.Context, id string, limit int) ([]paper.Paper, error) {
	workID, err := c.resolve(ctx, id)
	if err != nil || workID == "" {
		return nil, err
	}
	params := c.params()
	params.Set("filter", "cites:"+workID)
	papers, err := c.paginate(ctx, params, limit, paper.CitationForward, id)
	if err != nil {
		return nil, fmt.Errorf("fetching citations of %s: %w", id, err)
	}
	return papers, nil
}

// Backward returns the works id references, fetched in batches from its
// referenced_works list.
func (c *Client) Backward(ctx context.Context, id string, limit int) ([]paper.Paper, error) {
	workID, err := c.resolve(ctx, id)
	if err != nil || workID == "" {
		return nil, err
	}

	var work Work
	if err := c.api.GetJSON(ctx, "works/"+workID, c.params(), nil, &work); err != nil {
		return nil, fmt.Errorf("fetching work %s: %w", workID, err)
	}
	refs := work.ReferencedWorks
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	var papers []paper.Paper
	for start := 0; start < len(refs); start += referenceBatch {
		end := min(start+referenceBatch, len(refs))
		ids := make([]string, 0, end-start)
		for _, r := range refs[start:end] {
			ids = append(ids, shortID(r))
		}

		params := c.params()
		params.Set("filter", "openalex_id:"+strings.Join(ids, "|"))
		batch, err := c.paginate(ctx, params, 0, paper.CitationBackward, id)
		if err != nil {
			c.api.Logger().Warn("openalex reference batch failed",
				zap.String("paper_id", id), zap.Error(err))
			continue
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

// resolve turns id into a raw OpenAlex work id (W...). It returns "" with a
// nil error when the id cannot be resolved.
func (c *Client) resolve(ctx context.Context, id string) (string, error) {
	if v, ok := ident.StripPrefix(id, "oalex:"); ok {
		return v, nil
	}
	if isWorkID(id) {
		return id, nil
	}
	if strings.HasPrefix(id, "s2:") || strings.HasPrefix(id, "pmid:") {
		c.api.Logger().Warn("cannot resolve id to an OpenAlex work without a DOI", zap.String("paper_id", id))
		return "", nil
	}

	doi := ident.NormalizeDOI(id)
	var work Work
	err := c.api.GetJSON(ctx, "works/doi:https://doi.org/"+ident.PathEscapeDOI(doi), c.params(), nil, &work)
	if err != nil {
		if apiclient.IsNotFound(err) {
			c.api.Logger().Warn("no OpenAlex work for DOI", zap.String("doi", doi))
			return "", nil
		}
		return "", fmt.Errorf("resolving %s: %w", id, err)
	}
	return shortID(work.ID), nil
}

func isWorkID(s string) bool {
	if len(s) < 2 || s[0] != 'W' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 10, 64)
	return err == nil
}

// paginate follows cursors until limit papers are mapped (0 means all).
func (c *Client) paginate(ctx context.Context, params url.Values, limit int, method paper.DiscoveryMethod, query string) ([]paper.Paper, error) {
	perPage := MaxPerPage
	if limit > 0 && limit < perPage {
		perPage = limit
	}
	params.Set("per-page", strconv.Itoa(perPage))
	params.Set("cursor", "*")

	var papers []paper.Paper
	for {
		var resp worksResponse
		if err := c.api.GetJSON(ctx, "works", params, nil, &resp); err != nil {
			return nil, err
		}
		for i := range resp.Results {
			if limit > 0 && len(papers) >= limit {
				return papers, nil
			}
			if p, ok := MapWorkToPaper(&resp.Results[i], method, query); ok {
				papers = append(papers, p)
			}
		}
		if limit > 0 && len(papers) >= limit {
			return papers, nil
		}
		if resp.Meta.NextCursor == nil || *resp.Meta.NextCursor == "" || len(resp.Results) == 0 {
			return papers, nil
		}
		params.Set("cursor", *resp.Meta.NextCursor)
	}
}
