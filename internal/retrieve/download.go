package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/paper"
)

// DownloadTimeout bounds a single download, redirects included.
const DownloadTimeout = 30 * time.Second

const pdfMagic = "%PDF-"

var errNotPDF = errors.New("not_pdf")

// Outcome is the result of one download attempt.
type Outcome struct {
	Status      string // paper.AttemptSuccess, AttemptFailed or AttemptPaywall
	ContentType string
	Size        int64
	Checksum    string
	Error       string
}

// OK reports whether the download succeeded.
func (o Outcome) OK() bool {
	return o.Status == paper.AttemptSuccess
}

// Downloader fetches PDFs over HTTP.
type Downloader struct {
	client *http.Client
}

// NewDownloader returns a downloader using hc, or a client with
// DownloadTimeout when hc is nil. Redirects are followed.
func NewDownloader(hc *http.Client) *Downloader {
	if hc == nil {
		hc = &http.Client{Timeout: DownloadTimeout}
	}
	return &Downloader{client: hc}
}

func (d *Downloader) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", apiclient.UserAgent)
	req.Header.Set("Accept", accept)
	return d.client.Do(req)
}

// Download streams url to dest. An HTML response is reported as a paywall.
// A body that does not start with the PDF signature is discarded and
// reported as "not_pdf". dest is only replaced on success.
func (d *Downloader) Download(ctx context.Context, url, dest string) Outcome {
	resp, err := d.get(ctx, url, "application/pdf")
	if err != nil {
		return Outcome{Status: paper.AttemptFailed, Error: err.Error()}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{
			Status:      paper.AttemptFailed,
			ContentType: contentType,
			Error:       fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return Outcome{
			Status:      paper.AttemptPaywall,
			ContentType: contentType,
			Error:       "HTML response (likely paywall)",
		}
	}

	h := fsutil.NewHash()
	var size int64
	err = fsutil.WriteAtomic(dest, func(w io.Writer) error {
		head := make([]byte, len(pdfMagic))
		n, err := io.ReadFull(resp.Body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return err
		}
		if n < len(pdfMagic) || string(head) != pdfMagic {
			return errNotPDF
		}
		mw := io.MultiWriter(w, h)
		if _, err := mw.Write(head); err != nil {
			return err
		}
		rest, err := io.Copy(mw, resp.Body)
		size = int64(n) + rest
		return err
	})
	if err != nil {
		return Outcome{Status: paper.AttemptFailed, ContentType: contentType, Error: err.Error()}
	}
	return Outcome{
		Status:      paper.AttemptSuccess,
		ContentType: contentType,
		Size:        size,
		Checksum:    fsutil.HexSum(h),
	}
}
