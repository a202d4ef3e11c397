package retrieve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindPDFLink fetches an article landing page and returns the absolute URL
// of its citation_pdf_url meta tag, or "" when the page has none.
func (d *Downloader) FindPDFLink(ctx context.Context, landingURL string) (string, error) {
	resp, err := d.get(ctx, landingURL, "text/html")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}
	link, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content")
	link = strings.TrimSpace(link)
	if !ok || link == "" {
		return "", nil
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("bad citation_pdf_url %q: %w", link, err)
	}
	return resp.Request.URL.ResolveReference(ref).String(), nil
}
