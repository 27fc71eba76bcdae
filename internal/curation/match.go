// Package curation implements the curation phase: matching research
// candidates against the product library, resolving images and purchase
// links, and assembling publishable bags.
package curation

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonathan/gear-discovery/internal/db"
)

var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Scoring bonuses.
const (
	brandMatchBonus     = 15.0 // candidate brand appears in the library product
	substringMatchBonus = 10.0 // candidate name is a substring of the product name
)

// matchStopWords are tokens that carry no product identity: articles, units,
// and listing noise common in gear titles.
var matchStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "for": true, "with": true,
	// Units and sizes
	"mm": true, "cm": true, "inch": true, "inches": true, "oz": true,
	"lb": true, "lbs": true, "kg": true, "g": true, "ml": true,
	// Listing noise
	"new": true, "edition": true, "version": true, "model": true,
	"pack": true, "set": true, "bundle": true, "kit": true,
	"review": true, "best": true, "latest": true,
}

// MatchResult is the outcome of matching one candidate against the library.
type MatchResult struct {
	Product       *db.LibraryProduct
	Score         float64 // 0-100
	Matched       bool    // score cleared the threshold
	MatchedTokens []string
}

// Matcher fuzzy-matches candidate names against library products using
// weighted token coverage plus brand and substring bonuses.
type Matcher struct {
	threshold     float64
	fuzzyDistance int
}

// DefaultMatchThreshold is the minimum score to call a candidate matched.
const DefaultMatchThreshold = 60.0

// NewMatcher creates a matcher. A non-positive threshold gets the default.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Matcher{threshold: threshold, fuzzyDistance: 1}
}

// BestMatch scores the candidate against every library product and returns
// the strongest result. Matched is false when nothing clears the threshold.
func (m *Matcher) BestMatch(ctx context.Context, name, brand string, library []db.LibraryProduct) MatchResult {
	best := MatchResult{Score: -1}

	for i := range library {
		select {
		case <-ctx.Done():
			return best
		default:
		}

		product := &library[i]
		score, matched := m.scoreProduct(name, brand, product)
		if score > best.Score {
			best = MatchResult{Product: product, Score: score, MatchedTokens: matched}
		}
	}

	if best.Score < 0 {
		return MatchResult{}
	}
	best.Matched = best.Score >= m.threshold
	if !best.Matched {
		// Keep the score for diagnostics but don't leak a wrong product.
		best.Product = nil
	}
	return best
}

// scoreProduct computes similarity between a candidate name and one library
// product. Weighted combination of candidate token coverage (most
// important), product token coverage, and Jaccard overlap, plus brand and
// substring bonuses.
func (m *Matcher) scoreProduct(name, brand string, product *db.LibraryProduct) (float64, []string) {
	candidateTokens := tokenize(name)
	productText := product.Name
	if product.Brand != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(product.Brand)) {
		productText = product.Brand + " " + product.Name
	}
	productTokens := tokenize(productText)

	if len(candidateTokens) == 0 || len(productTokens) == 0 {
		return 0, nil
	}

	candidateMatched, matchedTokens := m.intersect(candidateTokens, productTokens)
	candidateCoverage := float64(candidateMatched) / float64(len(candidateTokens))

	productMatched, _ := m.intersect(productTokens, candidateTokens)
	productCoverage := float64(productMatched) / float64(len(productTokens))

	union := unionCount(candidateTokens, productTokens)
	jaccard := float64(candidateMatched) / float64(union)

	score := (candidateCoverage*0.60 + productCoverage*0.20 + jaccard*0.20) * 100

	nameLower := strings.ToLower(name)
	productLower := strings.ToLower(productText)

	if brand != "" {
		brandLower := strings.ToLower(brand)
		if strings.Contains(productLower, brandLower) || strings.EqualFold(brand, product.Brand) {
			score += brandMatchBonus
		}
	}

	if len(nameLower) > 3 && (strings.Contains(productLower, nameLower) || strings.Contains(nameLower, productLower)) {
		score += substringMatchBonus
	}

	if score > 100 {
		score = 100
	}
	return score, matchedTokens
}

// intersect counts tokens of a found in b, allowing a 1-edit fuzzy match for
// longer tokens so "taylormade"/"taylormde" still connect.
func (m *Matcher) intersect(a, b []string) (int, []string) {
	var matched []string
	seen := make(map[string]bool)
	for _, ta := range a {
		if seen[ta] {
			continue
		}
		for _, tb := range b {
			if ta == tb || fuzzyTokenMatch(ta, tb, m.fuzzyDistance) {
				matched = append(matched, ta)
				seen[ta] = true
				break
			}
		}
	}
	return len(matched), matched
}

// tokenize splits a string into normalized lowercase tokens, dropping
// punctuation, stop words, and single-character tokens. Numeric tokens are
// kept: model numbers identify gear.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if matchStopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// fuzzyTokenMatch checks if two tokens are within the edit distance
// threshold. Only tokens longer than 4 chars qualify, to avoid false
// positives on short model codes.
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}
	if len(token1) < 5 || len(token2) < 5 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings using
// two rows instead of the full matrix.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	n := len(r2)

	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

func unionCount(a, b []string) int {
	set := make(map[string]bool)
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		set[t] = true
	}
	return len(set)
}
