package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/litscout/internal/paper"
	_ "modernc.org/sqlite"
)

// DB is the ephemeral query index over papers.jsonl. It is rebuilt from the
// store on demand and never treated as a source of truth.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			paper_id TEXT PRIMARY KEY,
			doi TEXT,
			title TEXT NOT NULL,
			venue TEXT,
			year INTEGER,
			citation_count INTEGER,
			fulltext_status TEXT NOT NULL,
			record_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';

		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			paper_id,
			title,
			abstract,
			authors_text
		);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildFromStore clears the index and reloads it from the store.
func (d *DB) RebuildFromStore(s *Store) (int, error) {
	papers, err := s.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("reading store: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM papers"); err != nil {
		return 0, fmt.Errorf("clearing papers table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM papers_fts"); err != nil {
		return 0, fmt.Errorf("clearing papers_fts table: %w", err)
	}

	papersStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO papers (
			paper_id, doi, title, venue, year, citation_count, fulltext_status, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing papers insert: %w", err)
	}
	defer papersStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO papers_fts (paper_id, title, abstract, authors_text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i := range papers {
		p := &papers[i]
		record, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("encoding %s: %w", p.PaperID, err)
		}
		_, err = papersStmt.Exec(
			p.PaperID, nullableString(p.DOI), p.Title, nullableString(p.VenueName()),
			nullableInt(p.Year), nullableInt(p.CitationCount),
			string(p.FulltextStatus), string(record),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", p.PaperID, err)
		}
		if _, err := ftsStmt.Exec(p.PaperID, p.Title, p.Abstract, formatAuthorsText(p.Authors)); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", p.PaperID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return len(papers), nil
}

func formatAuthorsText(authors []paper.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// SearchFilters narrows a Search. Zero values are ignored.
type SearchFilters struct {
	Keyword  string // FTS across title, abstract and authors
	Author   string // FTS prefix match on author names
	Title    string // FTS on title only
	YearFrom int
	YearTo   int
	Venue    string // case-insensitive substring
	Status   paper.FulltextStatus
}

// Search returns papers matching every filter, most cited first.
func (d *DB) Search(filters SearchFilters, limit int) ([]paper.Paper, error) {
	var ftsTerms []string
	var args []any

	if strings.TrimSpace(filters.Keyword) != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(filters.Keyword))
	}
	if strings.TrimSpace(filters.Title) != "" {
		ftsTerms = append(ftsTerms, "title:("+prepareFTSQuery(filters.Title)+")")
	}
	if strings.TrimSpace(filters.Author) != "" {
		ftsTerms = append(ftsTerms, "authors_text:"+prepareAuthorQuery(filters.Author))
	}

	query := `SELECT record_json FROM papers WHERE 1=1`
	if len(ftsTerms) > 0 {
		query += ` AND paper_id IN (SELECT paper_id FROM papers_fts WHERE papers_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	}
	if filters.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, filters.YearTo)
	}
	if filters.Venue != "" {
		query += " AND venue LIKE ?"
		args = append(args, "%"+filters.Venue+"%")
	}
	if filters.Status != "" {
		query += " AND fulltext_status = ?"
		args = append(args, string(filters.Status))
	}
	query += " ORDER BY COALESCE(citation_count, 0) DESC, paper_id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	var papers []paper.Paper
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		var p paper.Paper
		if err := json.Unmarshal([]byte(record), &p); err != nil {
			return nil, fmt.Errorf("decoding indexed record: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// Count is one row of a grouped aggregate.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// VenueCounts returns the most common venues, most frequent first.
func (d *DB) VenueCounts(limit int) ([]Count, error) {
	return d.groupCount(`
		SELECT venue, COUNT(*) AS n FROM papers
		WHERE venue IS NOT NULL AND venue != ''
		GROUP BY venue ORDER BY n DESC, venue LIMIT ?`, limit)
}

// YearCounts returns the number of papers per known year, oldest first.
func (d *DB) YearCounts() ([]Count, error) {
	return d.groupCount(`
		SELECT CAST(year AS TEXT), COUNT(*) FROM papers
		WHERE year IS NOT NULL
		GROUP BY year ORDER BY year LIMIT ?`, -1)
}

func (d *DB) groupCount(query string, limit int) ([]Count, error) {
	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregating: %w", err)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of indexed papers.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&n)
	return n, err
}

// prepareFTSQuery quotes each whitespace-separated term so user input
// cannot inject FTS5 operators.
func prepareFTSQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// prepareAuthorQuery enables prefix matching, e.g. "Tim" matches "Timothy".
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		terms = append(terms, `"`+strings.ReplaceAll(part, `"`, `""`)+`"*`)
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
