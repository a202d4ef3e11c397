package export

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

var (
	// @type{key,
	entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)
	// doi = {value} or doi = "value"
	doiFieldRegex = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// BibTeXIndex indexes the entries of an existing .bib file.
type BibTeXIndex struct {
	// Keys holds every citation key seen.
	Keys map[string]bool
	// DOIs maps normalized DOIs to their citation key.
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Has reports whether p is already in the file. DOI is the primary match;
// the generated cite key is the fallback when p has no DOI.
func (idx *BibTeXIndex) Has(p *paper.Paper) bool {
	if doi := ident.NormalizeDOI(p.DOI); doi != "" {
		_, ok := idx.DOIs[doi]
		return ok
	}
	return idx.Keys[CiteKey(p)]
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if m := entryStartRegex.FindStringSubmatch(line); len(m) > 1 {
			currentKey = strings.TrimSpace(m[1])
			idx.Keys[currentKey] = true
		}
		if m := doiFieldRegex.FindStringSubmatch(line); len(m) > 1 {
			if doi := ident.NormalizeDOI(m[1]); doi != "" && currentKey != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}
	return idx, scanner.Err()
}

// AppendResult counts what AppendNew did.
type AppendResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// AppendNew appends the papers not already present in the .bib file at
// path, creating it if needed. New keys avoid those already in the file.
func AppendNew(path string, papers []paper.Paper) (AppendResult, error) {
	var res AppendResult
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}

	taken := make([]string, 0, len(idx.Keys))
	for k := range idx.Keys {
		taken = append(taken, k)
	}
	keys := NewKeys(taken...)

	var entries []string
	for i := range papers {
		p := &papers[i]
		if idx.Has(p) {
			res.Skipped++
			continue
		}
		key := keys.Assign(p)
		idx.Keys[key] = true
		if doi := ident.NormalizeDOI(p.DOI); doi != "" {
			idx.DOIs[doi] = key
		}
		entries = append(entries, ToBibTeX(p, key))
		res.Added++
	}
	if len(entries) == 0 {
		return res, nil
	}
	if err := appendToBibFile(path, strings.Join(entries, "\n")); err != nil {
		return res, fmt.Errorf("writing %s: %w", path, err)
	}
	return res, nil
}

func appendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
