// Package pdf reads text, metadata and page counts from PDF files.
package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document is an open PDF.
type Document struct {
	f *os.File
	r *pdf.Reader
}

// Open opens the PDF at path for reading.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Document{f: f, r: r}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.f.Close()
}

// NumPage returns the number of pages.
func (d *Document) NumPage() int {
	return d.r.NumPage()
}

// PageText returns the plain text of page i (1-based), or "" when the page
// is missing or cannot be decoded.
func (d *Document) PageText(i int) (text string) {
	// The reader panics on some malformed content streams.
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if i < 1 || i > d.r.NumPage() {
		return ""
	}
	page := d.r.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// Text concatenates the text of the first maxPages pages, one page per
// line block. maxPages <= 0 means every page.
func (d *Document) Text(maxPages int) string {
	n := d.r.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if text := d.PageText(i); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// MetadataTitle returns the Title entry of the document information
// dictionary, trimmed.
func (d *Document) MetadataTitle() (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	return strings.TrimSpace(d.r.Trailer().Key("Info").Key("Title").Text())
}

// ExtractText returns the text of the first maxPages pages of the PDF at
// path; maxPages <= 0 reads every page.
func ExtractText(path string, maxPages int) (string, error) {
	doc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return doc.Text(maxPages), nil
}

// PageCount validates the PDF at path and returns its page count.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return n, nil
}
