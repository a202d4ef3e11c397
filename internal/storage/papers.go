package storage

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/matsen/litscout/internal/dedup"
	"github.com/matsen/litscout/internal/paper"
)

// Fields is a set of JSON field overrides applied by Update, keyed by the
// record's JSON field names (see the paper.Field* constants).
type Fields map[string]any

// Filter selects papers on Load. Zero values match everything.
type Filter struct {
	Tags            []string // any tag matches
	Status          paper.FulltextStatus
	DiscoveryMethod paper.DiscoveryMethod
	NeedsManual     *bool
}

func (f Filter) match(p *paper.Paper) bool {
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, p.HasTag) {
		return false
	}
	if f.Status != "" && p.FulltextStatus != f.Status {
		return false
	}
	if f.DiscoveryMethod != "" && p.DiscoveryMethod != f.DiscoveryMethod {
		return false
	}
	if f.NeedsManual != nil && p.NeedsManualRetrieval != *f.NeedsManual {
		return false
	}
	return true
}

// Store is the append-mostly JSONL paper store of one project.
type Store struct {
	path string
}

// NewStore returns a store bound to the papers.jsonl file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the papers matching f in file order.
func (s *Store) Load(f Filter) ([]paper.Paper, error) {
	papers := []paper.Paper{}
	err := scanLines(s.path, func(lineNum int, line []byte) error {
		var p paper.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("parsing papers.jsonl line %d: %w", lineNum, err)
		}
		p.Normalize()
		if f.match(&p) {
			papers = append(papers, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return papers, nil
}

// LoadAll returns every stored paper.
func (s *Store) LoadAll() ([]paper.Paper, error) {
	return s.Load(Filter{})
}

// Get returns the paper with the given paper_id, or nil if absent.
func (s *Store) Get(paperID string) (*paper.Paper, error) {
	var found *paper.Paper
	err := scanLines(s.path, func(lineNum int, line []byte) error {
		if found != nil {
			return nil
		}
		var p paper.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("parsing papers.jsonl line %d: %w", lineNum, err)
		}
		if p.PaperID == paperID {
			p.Normalize()
			found = &p
		}
		return nil
	})
	return found, err
}

// Append writes every paper that is not a duplicate of the persisted store
// or of an earlier paper in the same batch. Returns the number written.
func (s *Store) Append(papers []paper.Paper) (int, error) {
	existing, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	idx := dedup.NewIndexFrom(existing)

	var fresh []paper.Paper
	for i := range papers {
		p := papers[i]
		if idx.IsDuplicate(&p) {
			continue
		}
		p.Normalize()
		idx.Add(&p)
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := appendJSONL(s.path, fresh...); err != nil {
		return 0, fmt.Errorf("appending papers: %w", err)
	}
	return len(fresh), nil
}

// Update merges fields onto the record with the given paper_id and rewrites
// the store atomically. Fields the Paper type does not know about are
// preserved. When no record matches, the file is left untouched.
func (s *Store) Update(paperID string, fields Fields) (bool, error) {
	var records []map[string]json.RawMessage
	found := false
	err := scanLines(s.path, func(lineNum int, line []byte) error {
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parsing papers.jsonl line %d: %w", lineNum, err)
		}
		if !found && isPaper(rec, paperID) {
			for k, v := range fields {
				raw, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("encoding field %s: %w", k, err)
				}
				rec[k] = raw
			}
			found = true
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := writeAllAtomic(s.path, records); err != nil {
		return true, fmt.Errorf("rewriting papers.jsonl: %w", err)
	}
	return true, nil
}

func isPaper(rec map[string]json.RawMessage, paperID string) bool {
	raw, ok := rec["paper_id"]
	if !ok {
		return false
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return false
	}
	return id == paperID
}
