// Package config handles project and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Project layout, relative to the project directory.
const (
	ConfigFile       = "litscout.toml"
	PapersFile       = "papers.jsonl"
	RetrievalLogFile = "retrieval_log.jsonl"
	ManualListFile   = "manual_retrieval_list.md"
	SearchesDir      = "searches"
	ExpansionsDir    = "expansions"
	ReportsDir       = "reports"
	FulltextDir      = "fulltext"
	CacheDir         = ".cache"
	DBFile           = "papers.db"
)

// ErrNotProject is returned when no litscout.toml is found.
var ErrNotProject = errors.New("not in a litscout project (no litscout.toml found)")

// Project describes the literature project.
type Project struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Created     string `toml:"created"`
}

// APIs holds credentials and contact addresses for upstream services.
type APIs struct {
	SemanticScholarAPIKey string `toml:"semantic_scholar_api_key"`
	UnpaywallEmail        string `toml:"unpaywall_email"`
	NCBIAPIKey            string `toml:"ncbi_api_key"`
	NCBIEmail             string `toml:"ncbi_email"`
	OpenAlexAPIKey        string `toml:"openalex_api_key"`

	// AnthropicAPIKey only comes from the environment or the global config.
	AnthropicAPIKey string `toml:"-"`
}

// SearchDefaults applies when a search flag is not given.
type SearchDefaults struct {
	YearRange          []int    `toml:"year_range"`
	MinCitationCount   int      `toml:"min_citation_count"`
	MaxResultsPerQuery int      `toml:"max_results_per_query"`
	FieldsOfStudy      []string `toml:"fields_of_study"`
}

// Search wraps [search.defaults].
type Search struct {
	Defaults SearchDefaults `toml:"defaults"`
}

// ManualIngest locates the manual drop-box.
type ManualIngest struct {
	InboxDir     string `toml:"inbox_dir"`
	ProcessedDir string `toml:"processed_dir"`
}

// Retrieval configures the full-text acquisition pipeline.
type Retrieval struct {
	FallbackChain       []string     `toml:"fallback_chain"`
	RetrieveBothFormats bool         `toml:"retrieve_both_formats"`
	Concurrency         int          `toml:"concurrency"`
	ManualIngest        ManualIngest `toml:"manual_ingest"`
}

// Extraction configures LLM-ready text extraction.
type Extraction struct {
	MaxTokensPerDoc  int      `toml:"max_tokens_per_doc"`
	PrioritySections []string `toml:"priority_sections"`
}

// Config is the merged configuration of one project.
type Config struct {
	Project    Project    `toml:"project"`
	APIs       APIs       `toml:"apis"`
	Search     Search     `toml:"search"`
	Retrieval  Retrieval  `toml:"retrieval"`
	Extraction Extraction `toml:"extraction"`

	// Dir is the project directory all relative paths resolve against.
	Dir string `toml:"-"`
}

// Default returns the configuration used when litscout.toml is absent.
func Default() *Config {
	return &Config{
		Search: Search{Defaults: SearchDefaults{
			YearRange:          []int{2015, 2025},
			MaxResultsPerQuery: 100,
			FieldsOfStudy:      []string{"Medicine", "Biology"},
		}},
		Retrieval: Retrieval{
			FallbackChain:       []string{"semantic_scholar", "unpaywall", "biorxiv", "arxiv", "publisher_oa", "pmc_bioc"},
			RetrieveBothFormats: true,
			Concurrency:         5,
			ManualIngest: ManualIngest{
				InboxDir:     "fulltext/inbox/",
				ProcessedDir: "fulltext/inbox/processed/",
			},
		},
		Extraction: Extraction{
			MaxTokensPerDoc:  8000,
			PrioritySections: []string{"abstract", "introduction", "results", "discussion", "conclusion"},
		},
	}
}

// envOverrides maps environment variables onto API fields.
var envOverrides = []struct {
	env   string
	field func(*APIs) *string
}{
	{"SEMANTIC_SCHOLAR_API_KEY", func(a *APIs) *string { return &a.SemanticScholarAPIKey }},
	{"UNPAYWALL_EMAIL", func(a *APIs) *string { return &a.UnpaywallEmail }},
	{"NCBI_API_KEY", func(a *APIs) *string { return &a.NCBIAPIKey }},
	{"NCBI_EMAIL", func(a *APIs) *string { return &a.NCBIEmail }},
	{"OPENALEX_API_KEY", func(a *APIs) *string { return &a.OpenAlexAPIKey }},
	{"ANTHROPIC_API_KEY", func(a *APIs) *string { return &a.AnthropicAPIKey }},
}

// Load reads litscout.toml from dir on top of the defaults, fills empty API
// values from the global config, then applies environment overrides.
// A missing litscout.toml is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	data, err := os.ReadFile(ConfigPath(dir))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	global.fill(&cfg.APIs)

	for _, o := range envOverrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field(&cfg.APIs) = v
		}
	}
	return cfg, nil
}

// YearRange returns the configured default year range, if well formed.
func (c *Config) YearRange() (from, to int, ok bool) {
	yr := c.Search.Defaults.YearRange
	if len(yr) != 2 {
		return 0, 0, false
	}
	return yr[0], yr[1], true
}

// ConfigPath returns the path to litscout.toml.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// IsProject reports whether root contains a litscout.toml.
func IsProject(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && !info.IsDir()
}

// FindProject walks up from start to the nearest directory holding a
// litscout.toml.
func FindProject(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		if IsProject(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotProject
		}
		abs = parent
	}
}

// PapersPath returns the path to papers.jsonl.
func (c *Config) PapersPath() string { return filepath.Join(c.Dir, PapersFile) }

// RetrievalLogPath returns the path to retrieval_log.jsonl.
func (c *Config) RetrievalLogPath() string { return filepath.Join(c.Dir, RetrievalLogFile) }

// ManualListPath returns the path to the manual retrieval markdown list.
func (c *Config) ManualListPath() string { return filepath.Join(c.Dir, ManualListFile) }

// PDFDir returns fulltext/pdf.
func (c *Config) PDFDir() string { return filepath.Join(c.Dir, FulltextDir, "pdf") }

// XMLDir returns fulltext/xml.
func (c *Config) XMLDir() string { return filepath.Join(c.Dir, FulltextDir, "xml") }

// TxtDir returns fulltext/txt.
func (c *Config) TxtDir() string { return filepath.Join(c.Dir, FulltextDir, "txt") }

// InboxDir returns the manual ingest inbox.
func (c *Config) InboxDir() string {
	return c.resolve(c.Retrieval.ManualIngest.InboxDir)
}

// ProcessedDir returns where ingested inbox files are moved.
func (c *Config) ProcessedDir() string {
	return c.resolve(c.Retrieval.ManualIngest.ProcessedDir)
}

// SearchesDir returns the search log directory.
func (c *Config) SearchesDir() string { return filepath.Join(c.Dir, SearchesDir) }

// ExpansionsDir returns the expansion log directory.
func (c *Config) ExpansionsDir() string { return filepath.Join(c.Dir, ExpansionsDir) }

// ReportsDir returns the reports directory.
func (c *Config) ReportsDir() string { return filepath.Join(c.Dir, ReportsDir) }

// DBPath returns the ephemeral SQLite index path.
func (c *Config) DBPath() string { return filepath.Join(c.Dir, CacheDir, DBFile) }

// Rel returns path relative to the project directory, as stored on records.
func (c *Config) Rel(path string) string {
	rel, err := filepath.Rel(c.Dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// Abs resolves a record path against the project directory.
func (c *Config) Abs(path string) string {
	return c.resolve(path)
}

func (c *Config) resolve(path string) string {
	path = ExpandPath(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.Dir, filepath.FromSlash(path))
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
