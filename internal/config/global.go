package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents per-user settings stored in ~/.config/litscout/config.yml.
// Values here fill API settings a project leaves empty.
type GlobalConfig struct {
	SemanticScholarAPIKey string `yaml:"semantic_scholar_api_key,omitempty"`
	UnpaywallEmail        string `yaml:"unpaywall_email,omitempty"`
	NCBIAPIKey            string `yaml:"ncbi_api_key,omitempty"`
	NCBIEmail             string `yaml:"ncbi_email,omitempty"`
	OpenAlexAPIKey        string `yaml:"openalex_api_key,omitempty"`
	AnthropicAPIKey       string `yaml:"anthropic_api_key,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "litscout"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/litscout/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// fill copies every non-empty global value into an empty project field.
func (g *GlobalConfig) fill(a *APIs) {
	pairs := []struct {
		dst *string
		src string
	}{
		{&a.SemanticScholarAPIKey, g.SemanticScholarAPIKey},
		{&a.UnpaywallEmail, g.UnpaywallEmail},
		{&a.NCBIAPIKey, g.NCBIAPIKey},
		{&a.NCBIEmail, g.NCBIEmail},
		{&a.OpenAlexAPIKey, g.OpenAlexAPIKey},
		{&a.AnthropicAPIKey, g.AnthropicAPIKey},
	}
	for _, p := range pairs {
		if *p.dst == "" {
			*p.dst = p.src
		}
	}
}
