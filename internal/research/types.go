// Package research implements the research phase of a discovery run: finding
// trending sources for a vertical, pulling their text, extracting product
// mentions, and merging mentions into scored candidates.
package research

import (
	"strings"
	"time"
	"unicode"

	"github.com/jonathan/gear-discovery/internal/verticals"
)

// Candidate is one distinct product surfaced during research, merged across
// every source that mentioned it.
type Candidate struct {
	Name           string             `json:"name"`
	NormalizedName string             `json:"normalized_name"`
	BrandGuess     string             `json:"brand_guess,omitempty"`
	Vertical       verticals.Vertical `json:"vertical"`
	MentionCount   int                `json:"mention_count"`
	Extraction     int                `json:"extraction_confidence"` // best extraction certainty seen
	Score          int                `json:"score"`                 // final confidence 0-100
	SourceIDs      []string           `json:"source_ids"`
	VintageHint    bool               `json:"vintage_hint,omitempty"`
}

// SourceOutcome summarizes how one source was processed.
type SourceOutcome struct {
	ExternalID    string    `json:"external_id"`
	SourceType    string    `json:"source_type"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Channel       string    `json:"channel,omitempty"`
	ViewCount     int64     `json:"view_count"`
	PublishedAt   time.Time `json:"published_at"`
	TranscriptLen int       `json:"transcript_len"`
	Status        string    `json:"status"` // ok | no_text | failed
	Error         string    `json:"error,omitempty"`
}

// Result is the research output for one vertical.
type Result struct {
	Vertical   verticals.Vertical `json:"vertical"`
	Candidates []Candidate        `json:"candidates"`
	Sources    []SourceOutcome    `json:"sources"`
	QuotaUsed  int                `json:"quota_used"`
	Errors     []string           `json:"errors,omitempty"`
}

// OKSourceCount returns how many sources yielded extractable text.
func (r *Result) OKSourceCount() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == "ok" {
			n++
		}
	}
	return n
}

// NormalizeName canonicalizes a product name for dedup and gap keying:
// lowercase, punctuation stripped, whitespace collapsed.
func NormalizeName(name string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			sb.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}
