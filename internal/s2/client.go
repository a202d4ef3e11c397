// Package s2 is the Semantic Scholar adapter: keyword search, citation
// walks in both directions and recommendations.
package s2

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/paper"
)

// BaseURL is the Semantic Scholar API host; graph and recommendation
// endpoints live under it.
const BaseURL = "https://api.semanticscholar.org"

// Client is a rate-limited Semantic Scholar client. 10 requests/second
// with an API key, 0.8 without.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a Semantic Scholar client.
func NewClient(opts ...apiclient.Option) *Client {
	svc := apiclient.Service{
		Name:           "semantic_scholar",
		BaseURL:        BaseURL,
		RateLimit:      0.8,
		KeyedRateLimit: 10,
	}
	return &Client{api: apiclient.New(svc, opts...)}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if key := c.api.APIKey(); key != "" {
		h.Set("x-api-key", key)
	}
	return h
}

// Search runs a relevance search, paging until q.MaxResults papers are
// collected or results run out.
func (c *Client) Search(ctx context.Context, q paper.Query) ([]paper.Paper, error) {
	want := q.MaxResults
	if want <= 0 {
		want = MaxSearchPage
	}

	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("fields", PaperFields)
	if q.HasYearRange() {
		params.Set("year", fmt.Sprintf("%d-%d", q.YearFrom, q.YearTo))
	}
	if len(q.FieldsOfStudy) > 0 {
		params.Set("fieldsOfStudy", strings.Join(q.FieldsOfStudy, ","))
	}
	if q.MinCitations > 0 {
		params.Set("minCitationCount", strconv.Itoa(q.MinCitations))
	}

	var papers []paper.Paper
	offset := 0
	for len(papers) < want && offset < maxSearchOffset {
		limit := min(want-len(papers), MaxSearchPage)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		var resp searchResponse
		if err := c.api.GetJSON(ctx, "graph/v1/paper/search", params, c.header(), &resp); err != nil {
			return nil, fmt.Errorf("searching Semantic Scholar: %w", err)
		}

		raw := make([]*S2Paper, len(resp.Data))
		for i := range resp.Data {
			raw[i] = &resp.Data[i]
		}
		papers = append(papers, mapAll(raw, paper.KeywordSearch, q.Text, want-len(papers))...)

		if resp.Next == nil || len(resp.Data) == 0 {
			break
		}
		offset = *resp.Next
	}

	c.api.Logger().Info("semantic scholar search",
		zap.String("query", q.Text), zap.Int("papers", len(papers)))
	return papers, nil
}

// Forward returns papers citing id.
func (c *Client) Forward(ctx context.Context, id string, limit int) ([]paper.Paper, error) {
	return c.citations(ctx, id, "citations", paper.CitationForward, limit)
}

// Backward returns papers referenced by id.
func (c *Client) Backward(ctx context.Context, id string, limit int) ([]paper.Paper, error) {
	return c.citations(ctx, id, "references", paper.CitationBackward, limit)
}

func (c *Client) citations(ctx context.Context, id, endpoint string, method paper.DiscoveryMethod, limit int) ([]paper.Paper, error) {
	apiID, err := ParsePaperID(id).APIID()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxCitationsPage {
		limit = MaxCitationsPage
	}

	params := url.Values{}
	params.Set("fields", CitationFields)
	params.Set("limit", strconv.Itoa(limit))

	var resp citationsResponse
	path := "graph/v1/paper/" + apiID + "/" + endpoint
	if err := c.api.GetJSON(ctx, path, params, c.header(), &resp); err != nil {
		return nil, fmt.Errorf("fetching %s of %s: %w", endpoint, id, err)
	}

	raw := make([]*S2Paper, 0, len(resp.Data))
	for _, item := range resp.Data {
		if method == paper.CitationForward {
			raw = append(raw, item.CitingPaper)
		} else {
			raw = append(raw, item.CitedPaper)
		}
	}
	return mapAll(raw, method, id, limit), nil
}

// Recommend returns papers recommended for the first of ids.
func (c *Client) Recommend(ctx context.Context, ids []string, limit int) ([]paper.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	apiID, err := ParsePaperID(ids[0]).APIID()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}

	params := url.Values{}
	params.Set("fields", CitationFields)
	params.Set("limit", strconv.Itoa(limit))

	var resp recommendationsResponse
	path := "recommendations/v1/papers/forpaper/" + apiID
	if err := c.api.GetJSON(ctx, path, params, c.header(), &resp); err != nil {
		return nil, fmt.Errorf("fetching recommendations for %s: %w", ids[0], err)
	}

	raw := make([]*S2Paper, len(resp.RecommendedPapers))
	for i := range resp.RecommendedPapers {
		raw[i] = &resp.RecommendedPapers[i]
	}
	return mapAll(raw, paper.Recommendation, strings.Join(ids, ","), limit), nil
}
