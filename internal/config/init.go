package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// projectDirs are created by Init, relative to the project directory.
var projectDirs = []string{
	SearchesDir,
	ExpansionsDir,
	"fulltext/pdf",
	"fulltext/xml",
	"fulltext/txt",
	"fulltext/inbox/processed",
	ReportsDir,
}

// InitResult reports what Init did.
type InitResult struct {
	Dir           string `json:"dir"`
	ConfigCreated bool   `json:"config_created"`
	PapersCreated bool   `json:"papers_created"`
}

// Init scaffolds a project in dir. An existing litscout.toml or
// papers.jsonl is left as is.
func Init(dir, name string) (*InitResult, error) {
	res := &InitResult{Dir: dir}

	for _, d := range projectDirs {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(d)), 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", d, err)
		}
	}

	if !IsProject(dir) {
		cfg := Default()
		cfg.Project.Name = name
		cfg.Project.Created = time.Now().UTC().Format("2006-01-02")
		data, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encoding default config: %w", err)
		}
		if err := os.WriteFile(ConfigPath(dir), data, 0644); err != nil {
			return nil, fmt.Errorf("writing config: %w", err)
		}
		res.ConfigCreated = true
	}

	papersPath := filepath.Join(dir, PapersFile)
	if _, err := os.Stat(papersPath); os.IsNotExist(err) {
		if err := os.WriteFile(papersPath, nil, 0644); err != nil {
			return nil, fmt.Errorf("creating %s: %w", PapersFile, err)
		}
		res.PapersCreated = true
	}
	return res, nil
}
