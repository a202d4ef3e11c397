package rank

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/paper"
)

// Anthropic messages API settings for relevance scoring.
const (
	AnthropicURL     = "https://api.anthropic.com/v1"
	AnthropicModel   = "claude-haiku-4-5-20251001"
	AnthropicVersion = "2023-06-01"

	oracleTimeout   = 15 * time.Second
	oracleMaxTokens = 8
)

const relevanceSystemPrompt = "You are a research relevance scorer. Given a research focus and a paper, " +
	"rate the paper's relevance on a scale of 0 to 10, where 0 means completely " +
	"irrelevant and 10 means directly addresses the research focus. " +
	"Respond with ONLY a single integer from 0 to 10, nothing else."

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Anthropic asks a Claude model for a 0-10 relevance rating.
type Anthropic struct {
	api *apiclient.Client
}

// NewAnthropic returns an oracle authenticated with apiKey.
func NewAnthropic(apiKey string, opts ...apiclient.Option) *Anthropic {
	base := []apiclient.Option{
		apiclient.WithAPIKey(apiKey),
		apiclient.WithHTTPClient(&http.Client{Timeout: oracleTimeout}),
	}
	return &Anthropic{api: apiclient.New(apiclient.Service{
		Name:      "anthropic",
		BaseURL:   AnthropicURL,
		RateLimit: 5,
	}, append(base, opts...)...)}
}

// describe renders the paper as the user message body.
func describe(p *paper.Paper) string {
	var b strings.Builder
	b.WriteString("Title: " + p.Title)
	if p.Abstract != "" {
		b.WriteString("\nAbstract: " + p.Abstract)
	}
	if p.HasYear() {
		b.WriteString("\nYear: " + p.YearString())
	}
	if v := p.VenueName(); v != "" {
		b.WriteString("\nVenue: " + v)
	}
	return b.String()
}

// Relevance implements Oracle.
func (a *Anthropic) Relevance(ctx context.Context, p *paper.Paper, prompt string) (float64, error) {
	req := messagesRequest{
		Model:     AnthropicModel,
		MaxTokens: oracleMaxTokens,
		System:    relevanceSystemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: fmt.Sprintf("Research focus: %s\n\n---\n\n%s", prompt, describe(p)),
		}},
	}
	header := http.Header{}
	header.Set("x-api-key", a.api.APIKey())
	header.Set("anthropic-version", AnthropicVersion)

	var resp messagesResponse
	if err := a.api.PostJSON(ctx, "messages", nil, header, req, &resp); err != nil {
		return 0, err
	}
	if len(resp.Content) == 0 {
		return 0, fmt.Errorf("anthropic: %w: empty content", apiclient.ErrInvalidResponse)
	}
	return ParseRating(resp.Content[0].Text)
}

// ParseRating converts a 0-10 integer reply into [0, 1].
func ParseRating(text string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("anthropic: %w: rating %q is not an integer", apiclient.ErrInvalidResponse, text)
	}
	return min(max(float64(n)/10, 0), 1), nil
}
