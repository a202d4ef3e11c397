package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matsen/litscout/internal/paper"
)

// Log file layout under the project directory.
const (
	RetrievalLogFile = "retrieval_log.jsonl"
	ExpansionsDir    = "expansions"
	SearchesDir      = "searches"
)

// Logs appends run records under a project directory.
type Logs struct {
	root string
}

// NewLogs returns a log writer rooted at the project directory.
func NewLogs(projectDir string) *Logs {
	return &Logs{root: projectDir}
}

// AppendRetrieval records one retrieval attempt.
func (l *Logs) AppendRetrieval(entry paper.RetrievalLogEntry) error {
	if err := appendJSONL(filepath.Join(l.root, RetrievalLogFile), entry); err != nil {
		return fmt.Errorf("writing retrieval log: %w", err)
	}
	return nil
}

// ReadRetrieval returns every retrieval attempt logged so far.
func (l *Logs) ReadRetrieval() ([]paper.RetrievalLogEntry, error) {
	return readJSONL[paper.RetrievalLogEntry](filepath.Join(l.root, RetrievalLogFile))
}

// AppendExpansion records one depth of a citation expansion in the file
// for the entry's date.
func (l *Logs) AppendExpansion(entry paper.ExpansionLogEntry) error {
	if err := appendJSONL(l.ExpansionPath(dateOf(entry.Timestamp)), entry); err != nil {
		return fmt.Errorf("writing expansion log: %w", err)
	}
	return nil
}

// ExpansionPath returns expansions/<date>_expansion.jsonl.
func (l *Logs) ExpansionPath(date string) string {
	return filepath.Join(l.root, ExpansionsDir, date+"_expansion.jsonl")
}

// AppendSearch records a search run.
func (l *Logs) AppendSearch(entry paper.SearchLog) error {
	if err := appendJSONL(l.SearchPath(dateOf(entry.Timestamp), entry.Query), entry); err != nil {
		return fmt.Errorf("writing search log: %w", err)
	}
	return nil
}

var searchSlugReplacer = strings.NewReplacer(" ", "_", "/", "_")

// SearchPath returns searches/<date>_<slug>.jsonl where slug is the first
// 50 characters of query with spaces and slashes replaced by underscores.
func (l *Logs) SearchPath(date, query string) string {
	q := []rune(query)
	if len(q) > 50 {
		q = q[:50]
	}
	return filepath.Join(l.root, SearchesDir, date+"_"+searchSlugReplacer.Replace(string(q))+".jsonl")
}

// dateOf returns the YYYY-MM-DD prefix of an RFC3339 timestamp, or today.
func dateOf(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return paper.Today()
}

func readJSONL[T any](path string) ([]T, error) {
	var out []T
	err := scanLines(path, func(lineNum int, line []byte) error {
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return fmt.Errorf("parsing %s line %d: %w", filepath.Base(path), lineNum, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}
