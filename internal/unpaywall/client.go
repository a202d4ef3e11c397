// Package unpaywall looks up open access locations for DOIs.
package unpaywall

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/ident"
)

// BaseURL is the Unpaywall v2 API.
const BaseURL = "https://api.unpaywall.org/v2"

// Result is the open access status of one DOI, taken from its best OA
// location.
type Result struct {
	IsOA           bool   `json:"is_oa"`
	PDFURL         string `json:"pdf_url,omitempty"`
	LandingPageURL string `json:"landing_page_url,omitempty"`
	HostType       string `json:"host_type,omitempty"` // "publisher" or "repository"
	License        string `json:"license,omitempty"`
	Version        string `json:"version,omitempty"` // e.g. "publishedVersion"
}

type location struct {
	URLForPDF         string `json:"url_for_pdf"`
	URLForLandingPage string `json:"url_for_landing_page"`
	HostType          string `json:"host_type"`
	License           string `json:"license"`
	Version           string `json:"version"`
}

type response struct {
	IsOA           bool      `json:"is_oa"`
	BestOALocation *location `json:"best_oa_location"`
}

// Client is a rate-limited Unpaywall client (10 requests/second).
type Client struct {
	api   *apiclient.Client
	email string
}

// NewClient creates an Unpaywall client. Unpaywall requires a contact
// email on every request; without one Lookup is a no-op.
func NewClient(email string, opts ...apiclient.Option) *Client {
	svc := apiclient.Service{Name: "unpaywall", BaseURL: BaseURL, RateLimit: 10}
	return &Client{api: apiclient.New(svc, opts...), email: email}
}

// Enabled reports whether the client has the email Unpaywall requires.
func (c *Client) Enabled() bool {
	return c.email != ""
}

// Lookup returns the OA status of doi. A DOI unknown to Unpaywall is
// reported as not open access. Without a DOI or an email it returns nil, nil.
func (c *Client) Lookup(ctx context.Context, doi string) (*Result, error) {
	doi = ident.NormalizeDOI(doi)
	if doi == "" || c.email == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("email", c.email)

	c.api.Logger().Debug("unpaywall lookup", zap.String("doi", doi))
	var resp response
	if err := c.api.GetJSON(ctx, ident.PathEscapeDOI(doi), params, nil, &resp); err != nil {
		if apiclient.IsNotFound(err) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("looking up %s: %w", doi, err)
	}

	r := &Result{IsOA: resp.IsOA}
	if loc := resp.BestOALocation; loc != nil {
		r.PDFURL = loc.URLForPDF
		r.LandingPageURL = loc.URLForLandingPage
		r.HostType = loc.HostType
		r.License = loc.License
		r.Version = loc.Version
	}
	return r, nil
}
