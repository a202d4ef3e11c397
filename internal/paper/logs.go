package paper

import "time"

// Retrieval attempt outcomes written to the retrieval log.
const (
	AttemptSuccess = "success"
	AttemptFailed  = "failed"
	AttemptPaywall = "failed_paywall"
)

// Formats a retrieval attempt may target.
const (
	FormatPDF = "pdf"
	FormatXML = "xml"
)

// SearchLog records one keyword search run.
type SearchLog struct {
	Timestamp         string   `json:"timestamp"`
	RunID             string   `json:"run_id"`
	Query             string   `json:"query"`
	Sources           []string `json:"sources"`
	YearRange         []int    `json:"year_range,omitempty"`
	MinCitationCount  int      `json:"min_citation_count"`
	MaxResults        int      `json:"max_results"`
	FieldsOfStudy     []string `json:"fields_of_study,omitempty"`
	TotalResults      int      `json:"total_results"`
	NewPapersAdded    int      `json:"new_papers_added"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
}

// RetrievalLogEntry records a single full-text acquisition attempt.
type RetrievalLogEntry struct {
	DOI             string `json:"doi,omitempty"`
	PaperID         string `json:"paper_id"`
	Timestamp       string `json:"timestamp"`
	FormatAttempted string `json:"format_attempted"`
	SourceAttempted string `json:"source_attempted"`
	URLAttempted    string `json:"url_attempted,omitempty"`
	Status          string `json:"status"`
	FilePath        string `json:"file_path,omitempty"`
	FileSizeBytes   int64  `json:"file_size_bytes,omitempty"`
	ContentType     string `json:"content_type,omitempty"`
	Checksum        string `json:"checksum,omitempty"` // blake2b-256, hex
	Error           string `json:"error,omitempty"`
}

// ExpansionLogEntry records the outcome of one depth of a citation expansion.
type ExpansionLogEntry struct {
	Timestamp       string   `json:"timestamp"`
	RunID           string   `json:"run_id"`
	Depth           int      `json:"depth"`
	MaxDepth        int      `json:"max_depth"`
	SeedCount       int      `json:"seed_count"`
	SeedTag         string   `json:"seed_tag,omitempty"`
	SeedDOIs        []string `json:"seed_dois,omitempty"`
	Strategy        string   `json:"strategy"`
	CandidatesFound int      `json:"candidates_found"`
	CandidatesKept  int      `json:"candidates_kept"`
	NewPapersAdded  int      `json:"new_papers_added"`
}

// Now returns the current UTC time in the timestamp format used by all logs.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
