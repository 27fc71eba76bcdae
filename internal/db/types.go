package db

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run phase values, in execution order.
const (
	PhaseResearch    = "research"
	PhaseCuration    = "curation"
	PhaseGapAnalysis = "gap_analysis"
	PhaseFinalizing  = "finalizing"
)

// Source record status values.
const (
	SourceStatusOK     = "ok"
	SourceStatusNoText = "no_text"
	SourceStatusFailed = "failed"
)

// Truncation limits for stored text fields.
const (
	MaxTitleLen = 500
	MaxURLLen   = 2048
)

// DiscoveryRun is one pipeline execution record.
type DiscoveryRun struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	CurrentPhase string          `json:"current_phase,omitempty"`
	DryRun       bool            `json:"dry_run"`
	Verticals    []string        `json:"verticals"`
	Config       json.RawMessage `json:"config,omitempty"`
	Report       json.RawMessage `json:"report,omitempty"`
	ErrorText    string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// SourceRecord is one processed content source in the dedup ledger.
type SourceRecord struct {
	ID            uuid.UUID  `json:"id"`
	RunID         uuid.UUID  `json:"run_id"`
	Vertical      string     `json:"vertical"`
	SourceType    string     `json:"source_type"` // video | hashtag_page
	ExternalID    string     `json:"external_id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Channel       string     `json:"channel,omitempty"`
	ViewCount     int64      `json:"view_count"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	TranscriptLen int        `json:"transcript_len"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LibraryProduct is a read-only row from the product reference library.
type LibraryProduct struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand,omitempty"`
	Category string    `json:"category,omitempty"`
	Vertical string    `json:"vertical"`
	ImageURL string    `json:"image_url,omitempty"`
}

// LibraryGap is one unmatched product tracked in the gap backlog.
type LibraryGap struct {
	ID                uuid.UUID  `json:"id"`
	NormalizedName    string     `json:"normalized_name"`
	DisplayName       string     `json:"display_name"`
	BrandGuess        string     `json:"brand_guess,omitempty"`
	Vertical          string     `json:"vertical"`
	OccurrenceCount   int        `json:"occurrence_count"`
	Priority          float64    `json:"priority"`
	FirstSeenRunID    uuid.UUID  `json:"first_seen_run_id"`
	LastSeenAt        time.Time  `json:"last_seen_at"`
	Resolved          bool       `json:"resolved"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolvedProductID *uuid.UUID `json:"resolved_product_id,omitempty"`
}

// CuratedBag is one published collection.
type CuratedBag struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Vertical    string    `json:"vertical"`
	RunID       uuid.UUID `json:"run_id"`
	AccountID   uuid.UUID `json:"account_id"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
}

// BagItem is one product entry inside a curated bag.
type BagItem struct {
	ID           uuid.UUID  `json:"id"`
	BagID        uuid.UUID  `json:"bag_id"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"` // set when matched to the library
	Name         string     `json:"name"`
	Brand        string     `json:"brand,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	PrimaryURL   string     `json:"primary_url,omitempty"`
	MentionCount int        `json:"mention_count"`
	Confidence   int        `json:"confidence"`
	Position     int        `json:"position"`
	Attribution  string     `json:"attribution,omitempty"`
}

// Account is a bag-owning account. Generated bags belong to the system
// account.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
}

// TruncateTitle bounds a title for storage.
func TruncateTitle(s string) string {
	return truncate(s, MaxTitleLen)
}

// TruncateURL bounds a URL for storage.
func TruncateURL(s string) string {
	return truncate(s, MaxURLLen)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so the cut never stores invalid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
