// Package pubmed is the NCBI adapter: PubMed keyword search through the
// E-utilities, PMID to PMCID conversion and BioC full text from PMC.
package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

const (
	// EutilsURL is the E-utilities base URL.
	EutilsURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// IDConvURL is the PMC id converter.
	IDConvURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"

	// BioCURL is the PMC open access BioC JSON endpoint; the PMCID number
	// and "/unicode" are appended.
	BioCURL = "https://www.ncbi.nlm.nih.gov/research/bionlp/RESTful/pmcoa.cgi/BioC_json/"

	// DefaultMaxResults applies when a query sets no limit.
	DefaultMaxResults = 100

	toolName = "litscout"
)

// Client is a rate-limited NCBI client. 8 requests/second with an API
// key, 2 without.
type Client struct {
	api   *apiclient.Client
	email string
}

// NewClient creates a PubMed client. email identifies the caller to NCBI;
// an API key set with apiclient.WithAPIKey raises the rate limit.
func NewClient(email string, opts ...apiclient.Option) *Client {
	svc := apiclient.Service{
		Name:           "pubmed",
		BaseURL:        EutilsURL,
		RateLimit:      2,
		KeyedRateLimit: 8,
	}
	return &Client{api: apiclient.New(svc, opts...), email: email}
}

func (c *Client) params() url.Values {
	v := url.Values{}
	v.Set("tool", toolName)
	if c.email != "" {
		v.Set("email", c.email)
	}
	if key := c.api.APIKey(); key != "" {
		v.Set("api_key", key)
	}
	return v
}

// Term builds the esearch term for q, appending the publication date
// range when one is set.
func Term(q paper.Query) string {
	if q.HasYearRange() {
		return fmt.Sprintf("(%s) AND (%d:%d[pdat])", q.Text, q.YearFrom, q.YearTo)
	}
	return q.Text
}

// Search runs esearch for PMIDs ordered by relevance, then fetches and maps
// their records with efetch.
func (c *Client) Search(ctx context.Context, q paper.Query) ([]paper.Paper, error) {
	term := Term(q)
	want := q.MaxResults
	if want <= 0 {
		want = DefaultMaxResults
	}

	params := c.params()
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(want))
	params.Set("sort", "relevance")
	params.Set("retmode", "json")

	var resp esearchResponse
	if err := c.api.GetJSON(ctx, "esearch.fcgi", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("searching PubMed: %w", err)
	}
	pmids := resp.Result.IDList
	if len(pmids) == 0 {
		c.api.Logger().Info("pubmed search returned no results", zap.String("term", term))
		return nil, nil
	}

	papers, err := c.FetchPMIDs(ctx, pmids, term)
	if err != nil {
		return nil, err
	}
	c.api.Logger().Info("pubmed search",
		zap.String("term", term), zap.Int("pmids", len(pmids)), zap.Int("papers", len(papers)))
	return papers, nil
}

// FetchPMIDs fetches full records for pmids with efetch.
func (c *Client) FetchPMIDs(ctx context.Context, pmids []string, query string) ([]paper.Paper, error) {
	params := c.params()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("rettype", "xml")
	params.Set("retmode", "xml")

	header := http.Header{}
	header.Set("Accept", "application/xml")
	resp, err := c.api.Do(ctx, apiclient.Request{Path: "efetch.fcgi", Query: params, Header: header})
	if err != nil {
		return nil, fmt.Errorf("fetching PubMed records: %w", err)
	}
	return ParseArticles(resp.Body, query)
}

// ParseArticles maps every PubmedArticle of an efetch XML document.
func ParseArticles(data []byte, query string) ([]paper.Paper, error) {
	var set articleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("pubmed: %w: %v", apiclient.ErrInvalidResponse, err)
	}
	papers := make([]paper.Paper, 0, len(set.Articles))
	for i := range set.Articles {
		if p, ok := MapArticleToPaper(&set.Articles[i], query); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// PMIDToPMCID converts a PMID with the PMC id converter. It returns "" when
// the article has no PMC copy.
func (c *Client) PMIDToPMCID(ctx context.Context, pmid string) (string, error) {
	params := c.params()
	params.Set("ids", pmid)
	params.Set("format", "json")

	var resp idconvResponse
	if err := c.api.GetJSON(ctx, IDConvURL, params, nil, &resp); err != nil {
		return "", fmt.Errorf("converting PMID %s: %w", pmid, err)
	}
	if len(resp.Records) == 0 {
		return "", nil
	}
	return ident.NormalizePMCID(resp.Records[0].PMCID), nil
}

// FetchBioC returns the BioC JSON document for pmcid. Only a 200 response
// with a JSON content type counts; anything else that is not a transport
// failure returns nil, nil.
func (c *Client) FetchBioC(ctx context.Context, pmcid string) ([]byte, error) {
	target := BioCURLFor(pmcid)
	resp, err := c.api.Do(ctx, apiclient.Request{Path: target})
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching BioC for %s: %w", pmcid, err)
	}
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.ContentType, "application/json") {
		c.api.Logger().Debug("BioC response is not JSON",
			zap.String("pmcid", pmcid), zap.String("content_type", resp.ContentType))
		return nil, nil
	}
	return resp.Body, nil
}

// BioCURLFor returns the BioC URL fetched for pmcid, for retrieval logs.
func BioCURLFor(pmcid string) string {
	return BioCURL + ident.PMCIDNumber(pmcid) + "/unicode"
}
