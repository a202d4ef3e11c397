// Package paper defines the canonical literature record and the log entries
// written alongside the paper store.
package paper

import (
	"fmt"
	"slices"
)

// DiscoveryMethod records how a paper entered the corpus.
type DiscoveryMethod string

const (
	KeywordSearch    DiscoveryMethod = "keyword_search"
	CitationForward  DiscoveryMethod = "citation_forward"
	CitationBackward DiscoveryMethod = "citation_backward"
	Recommendation   DiscoveryMethod = "recommendation"
	Manual           DiscoveryMethod = "manual"
)

// Valid reports whether m is a known discovery method.
func (m DiscoveryMethod) Valid() bool {
	switch m {
	case KeywordSearch, CitationForward, CitationBackward, Recommendation, Manual:
		return true
	}
	return false
}

// ParseDiscoveryMethod converts a string into a DiscoveryMethod.
func ParseDiscoveryMethod(s string) (DiscoveryMethod, error) {
	m := DiscoveryMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown discovery method %q", s)
	}
	return m, nil
}

// FulltextStatus is the lifecycle stage of full-text acquisition.
type FulltextStatus string

const (
	StatusNotAttempted    FulltextStatus = "not_attempted"
	StatusRetrieved       FulltextStatus = "retrieved"
	StatusPartial         FulltextStatus = "partial"
	StatusFailed          FulltextStatus = "failed"
	StatusManualPending   FulltextStatus = "manual_pending"
	StatusManualRetrieved FulltextStatus = "manual_retrieved"
)

// Valid reports whether s is a known fulltext status.
func (s FulltextStatus) Valid() bool {
	switch s {
	case StatusNotAttempted, StatusRetrieved, StatusPartial, StatusFailed,
		StatusManualPending, StatusManualRetrieved:
		return true
	}
	return false
}

// ParseFulltextStatus converts a string into a FulltextStatus.
func ParseFulltextStatus(s string) (FulltextStatus, error) {
	st := FulltextStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown fulltext status %q", s)
	}
	return st, nil
}

// FulltextSource names where a paper's full text came from.
type FulltextSource string

const (
	SourceSemanticScholar FulltextSource = "semantic_scholar"
	SourceUnpaywall       FulltextSource = "unpaywall"
	SourcePMCBioC         FulltextSource = "pmc_bioc"
	SourceBioRxiv         FulltextSource = "biorxiv"
	SourceArXiv           FulltextSource = "arxiv"
	SourcePublisherOA     FulltextSource = "publisher_oa"
	SourceManual          FulltextSource = "manual"
)

// Author is one entry of a paper's ordered author list.
type Author struct {
	Name     string `json:"name"`
	AuthorID string `json:"author_id,omitempty"` // source-qualified, e.g. "s2:1741101"
}

// Paper is the canonical record for one scientific work.
type Paper struct {
	// Identity
	PaperID string `json:"paper_id"` // "s2:<id>", "oalex:<id>" or "pmid:<id>"
	DOI     string `json:"doi,omitempty"`
	PMID    string `json:"pmid,omitempty"`
	PMCID   string `json:"pmcid,omitempty"`
	ArXivID string `json:"arxiv_id,omitempty"`

	// Descriptive
	Title                    string   `json:"title"`
	Authors                  []Author `json:"authors"`
	Year                     *int     `json:"year,omitempty"`
	Venue                    string   `json:"venue,omitempty"`
	JournalName              string   `json:"journal_name,omitempty"`
	CitationCount            *int     `json:"citation_count,omitempty"`
	InfluentialCitationCount *int     `json:"influential_citation_count,omitempty"`
	Abstract                 string   `json:"abstract,omitempty"`
	TLDR                     string   `json:"tldr,omitempty"`
	FieldsOfStudy            []string `json:"fields_of_study"`

	// Open access
	IsOpenAccess     *bool  `json:"is_open_access,omitempty"`
	OpenAccessPDFURL string `json:"open_access_pdf_url,omitempty"`

	// Provenance
	Source          string          `json:"source,omitempty"`
	DiscoveryMethod DiscoveryMethod `json:"discovery_method"`
	DiscoveryQuery  string          `json:"discovery_query,omitempty"`
	DiscoveryDate   string          `json:"discovery_date,omitempty"`
	SeedPaperID     string          `json:"seed_paper_id,omitempty"`

	// Retrieval state; paths are relative to the project directory
	FulltextStatus       FulltextStatus `json:"fulltext_status"`
	FulltextPDFPath      string         `json:"fulltext_pdf_path,omitempty"`
	FulltextXMLPath      string         `json:"fulltext_xml_path,omitempty"`
	FulltextTxtPath      string         `json:"fulltext_txt_path,omitempty"`
	FulltextSource       FulltextSource `json:"fulltext_source,omitempty"`
	NeedsManualRetrieval bool           `json:"needs_manual_retrieval"`

	// User annotation
	Tags  []string `json:"tags"`
	Notes string   `json:"notes"`
}

// JSON field names used with storage field patches.
const (
	FieldFulltextStatus       = "fulltext_status"
	FieldFulltextPDFPath      = "fulltext_pdf_path"
	FieldFulltextXMLPath      = "fulltext_xml_path"
	FieldFulltextTxtPath      = "fulltext_txt_path"
	FieldFulltextSource       = "fulltext_source"
	FieldNeedsManualRetrieval = "needs_manual_retrieval"
	FieldTags                 = "tags"
	FieldNotes                = "notes"
)

// Normalize fills zero values with the defaults a freshly constructed
// record carries, so that every stored line has the same shape.
func (p *Paper) Normalize() {
	if p.Authors == nil {
		p.Authors = []Author{}
	}
	if p.FieldsOfStudy == nil {
		p.FieldsOfStudy = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.DiscoveryMethod == "" {
		p.DiscoveryMethod = KeywordSearch
	}
	if p.FulltextStatus == "" {
		p.FulltextStatus = StatusNotAttempted
	}
}

// Citations returns the citation count, treating unknown as zero.
func (p *Paper) Citations() int {
	if p.CitationCount == nil {
		return 0
	}
	return *p.CitationCount
}

// InfluentialCitations returns the influential citation count, treating unknown as zero.
func (p *Paper) InfluentialCitations() int {
	if p.InfluentialCitationCount == nil {
		return 0
	}
	return *p.InfluentialCitationCount
}

// HasYear reports whether the publication year is known.
func (p *Paper) HasYear() bool {
	return p.Year != nil && *p.Year != 0
}

// YearString formats the year for display, or "n.d." if unknown.
func (p *Paper) YearString() string {
	if !p.HasYear() {
		return "n.d."
	}
	return fmt.Sprintf("%d", *p.Year)
}

// HasTag reports whether the paper carries the given tag.
func (p *Paper) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// AddTag appends tag unless it is already present. Returns true if added.
func (p *Paper) AddTag(tag string) bool {
	if tag == "" || p.HasTag(tag) {
		return false
	}
	p.Tags = append(p.Tags, tag)
	return true
}

// SourceName returns the journal name, falling back to the venue.
func (p *Paper) SourceName() string {
	if p.JournalName != "" {
		return p.JournalName
	}
	return p.Venue
}

// VenueName returns the venue, falling back to the journal name.
func (p *Paper) VenueName() string {
	if p.Venue != "" {
		return p.Venue
	}
	return p.JournalName
}

// Int returns a pointer to n; used when building records from upstream data.
func Int(n int) *int {
	return &n
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
