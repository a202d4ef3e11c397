package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/storage"
)

// SeedTag sorts first in the manual retrieval list.
const SeedTag = "seed"

// SortManual orders papers seed-tagged first, then by citation count
// descending. Equal papers keep store order.
func SortManual(papers []paper.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		si, sj := papers[i].HasTag(SeedTag), papers[j].HasTag(SeedTag)
		if si != sj {
			return si
		}
		return papers[i].Citations() > papers[j].Citations()
	})
}

// WriteManualList regenerates the markdown list of papers flagged for
// manual retrieval and returns how many it lists.
func WriteManualList(store *storage.Store, path string, now time.Time) (int, error) {
	needs := true
	papers, err := store.Load(storage.Filter{NeedsManual: &needs})
	if err != nil {
		return 0, err
	}
	SortManual(papers)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(ManualListMarkdown(papers, now)), 0644); err != nil {
		return 0, fmt.Errorf("writing manual list: %w", err)
	}
	return len(papers), nil
}

// ManualListMarkdown renders the manual retrieval list for papers, which
// must already be sorted.
func ManualListMarkdown(papers []paper.Paper, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Papers Needing Manual Retrieval\n\n")
	if len(papers) == 0 {
		b.WriteString("No papers currently need manual retrieval.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "Total: %d papers\n\n", len(papers))
	b.WriteString("## How to add papers\n\n")
	b.WriteString("1. Download the PDF from the link below (use institutional access, interlibrary loan, etc.)\n")
	b.WriteString("2. Name the file using the filename shown below (or any name; the ingest tool will match by content)\n")
	b.WriteString("3. Drop it into: `fulltext/inbox/`\n")
	b.WriteString("4. Run: `litscout ingest`\n\n")
	b.WriteString("---\n\n")

	for i := range papers {
		p := &papers[i]
		fmt.Fprintf(&b, "### %d. %s (%s)\n", i+1, p.Title, p.YearString())
		if authors := shortAuthors(p.Authors, 3); authors != "" {
			fmt.Fprintf(&b, "- **Authors:** %s\n", authors)
		}
		if p.Venue != "" {
			fmt.Fprintf(&b, "- **Venue:** %s\n", p.Venue)
		}
		if p.DOI != "" {
			fmt.Fprintf(&b, "- **DOI:** %s\n", p.DOI)
			fmt.Fprintf(&b, "- **Publisher link:** https://doi.org/%s\n", p.DOI)
		}
		if p.CitationCount != nil {
			fmt.Fprintf(&b, "- **Citations:** %d\n", *p.CitationCount)
		}
		if p.DiscoveryQuery != "" {
			fmt.Fprintf(&b, "- **Why it matters:** Discovered via %s\n", p.DiscoveryMethod)
		}
		fmt.Fprintf(&b, "- **Suggested filename:** `%s.pdf`\n", ident.FileStem(p))
		b.WriteString("\n")
	}
	return b.String()
}

// shortAuthors joins the first n author names, adding "et al." when more
// remain.
func shortAuthors(authors []paper.Author, n int) string {
	names := make([]string, 0, n)
	for i, a := range authors {
		if i == n {
			break
		}
		names = append(names, a.Name)
	}
	s := strings.Join(names, ", ")
	if len(authors) > n {
		s += ", et al."
	}
	return s
}
