package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TruncatedMarker ends a section cut short to fit the token budget.
const TruncatedMarker = "\n[TRUNCATED]"

// minTruncatedTokens is the smallest remaining budget worth filling with a
// partial section.
const minTruncatedTokens = 100

// Section is one named block of document text.
type Section struct {
	Key  string
	Text string
}

// Sections keeps sections in first-seen order; repeated keys are joined
// with a newline.
type Sections []Section

func (s Sections) index(key string) int {
	for i := range s {
		if s[i].Key == key {
			return i
		}
	}
	return -1
}

// Add appends text to the section named key.
func (s *Sections) Add(key, text string) {
	if i := s.index(key); i >= 0 {
		(*s)[i].Text += "\n" + text
		return
	}
	*s = append(*s, Section{Key: key, Text: text})
}

func (s Sections) has(key string) bool { return s.index(key) >= 0 }

// Tokens estimates the token count of every section together.
func (s Sections) Tokens() int {
	n := 0
	for _, sec := range s {
		n += EstimateTokens(sec.Text)
	}
	return n
}

// EstimateTokens approximates tokens as four characters each.
func EstimateTokens(text string) int {
	return len(text) / 4
}

type biocPassage struct {
	Infons map[string]any `json:"infons"`
	Text   string         `json:"text"`
}

type biocNode struct {
	Documents []biocNode    `json:"documents"`
	Passages  []biocPassage `json:"passages"`
}

// ParseBioC reads the passages of a BioC JSON collection (or a list of
// collections or documents) into sections keyed by section type.
func ParseBioC(data []byte) (Sections, error) {
	var nodes []biocNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		var single biocNode
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing BioC JSON: %w", err)
		}
		nodes = []biocNode{single}
	}

	var secs Sections
	var walk func([]biocNode)
	walk = func(nodes []biocNode) {
		for _, n := range nodes {
			for _, p := range n.Passages {
				if p.Text != "" {
					secs.Add(sectionKey(p.Infons), p.Text)
				}
			}
			walk(n.Documents)
		}
	}
	walk(nodes)
	return secs, nil
}

func sectionKey(infons map[string]any) string {
	for _, k := range []string{"section_type", "type"} {
		if v, ok := infons[k].(string); ok && v != "" {
			return strings.ToLower(v)
		}
	}
	return "body"
}

// Truncate fits secs into maxTokens. Sections matching the priority names
// come first, in priority order, and the first one that does not fit is cut
// to the remaining budget; other sections are added while they fit whole.
// Returns the kept sections with the total and shown token estimates.
func Truncate(secs Sections, maxTokens int, priority []string) (Sections, int, int) {
	total := secs.Tokens()
	if total <= maxTokens {
		return secs, total, total
	}

	var kept Sections
	used := 0
	for _, name := range priority {
		for _, sec := range secs {
			if !strings.Contains(strings.ToLower(sec.Key), name) || kept.has(sec.Key) {
				continue
			}
			tokens := EstimateTokens(sec.Text)
			if used+tokens <= maxTokens {
				kept = append(kept, sec)
				used += tokens
			} else if remaining := maxTokens - used; remaining > minTruncatedTokens {
				kept = append(kept, Section{Key: sec.Key, Text: cut(sec.Text, remaining*4) + TruncatedMarker})
				used += remaining
			}
			break
		}
	}

	for _, sec := range secs {
		if kept.has(sec.Key) {
			continue
		}
		if tokens := EstimateTokens(sec.Text); used+tokens <= maxTokens {
			kept = append(kept, sec)
			used += tokens
		}
	}
	return kept, total, used
}

// cut returns at most n bytes of s without splitting a UTF-8 sequence.
func cut(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
