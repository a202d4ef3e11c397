package source

import (
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/openalex"
	"github.com/matsen/litscout/internal/pubmed"
	"github.com/matsen/litscout/internal/s2"
	"github.com/matsen/litscout/internal/unpaywall"
)

// FromConfig builds a registry holding a client for every source, using
// the credentials in cfg. Extra options are applied to every client.
func FromConfig(cfg *config.Config, log *zap.Logger, opts ...apiclient.Option) *Registry {
	r := NewRegistry()
	r.Register(SemanticScholar, NewS2(cfg, log, opts...))
	r.Register(PubMed, NewPubMed(cfg, log, opts...))
	r.Register(OpenAlex, NewOpenAlex(cfg, log, opts...))
	return r
}

func clientOptions(key string, log *zap.Logger, extra []apiclient.Option) []apiclient.Option {
	opts := []apiclient.Option{apiclient.WithLogger(log)}
	if key != "" {
		opts = append(opts, apiclient.WithAPIKey(key))
	}
	return append(opts, extra...)
}

// NewS2 returns a Semantic Scholar client configured from cfg.
func NewS2(cfg *config.Config, log *zap.Logger, opts ...apiclient.Option) *s2.Client {
	return s2.NewClient(clientOptions(cfg.APIs.SemanticScholarAPIKey, log, opts)...)
}

// NewPubMed returns a PubMed client configured from cfg.
func NewPubMed(cfg *config.Config, log *zap.Logger, opts ...apiclient.Option) *pubmed.Client {
	return pubmed.NewClient(cfg.APIs.NCBIEmail, clientOptions(cfg.APIs.NCBIAPIKey, log, opts)...)
}

// NewOpenAlex returns an OpenAlex client in the polite pool of the
// Unpaywall email.
func NewOpenAlex(cfg *config.Config, log *zap.Logger, opts ...apiclient.Option) *openalex.Client {
	return openalex.NewClient(cfg.APIs.UnpaywallEmail, clientOptions(cfg.APIs.OpenAlexAPIKey, log, opts)...)
}

// NewUnpaywall returns an Unpaywall client configured from cfg.
func NewUnpaywall(cfg *config.Config, log *zap.Logger, opts ...apiclient.Option) *unpaywall.Client {
	return unpaywall.NewClient(cfg.APIs.UnpaywallEmail, clientOptions("", log, opts)...)
}
