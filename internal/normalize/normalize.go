// Package normalize implements the text normalization rules shared by
// hashing (exact dedup), embedding, and lexical indexing: normalize_for_hash,
// tokenize, and the configurable stoplist described in spec §4.1/§4.3.
package normalize

import (
	"regexp"
	"strings"
)

var (
	pageFooterPattern = regexp.MustCompile(`(?mi)^\s*page\s+\d+\s*$`)
	confidentialLine  = regexp.MustCompile(`(?mi)^\s*confidential\s*$`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	tokenPattern      = regexp.MustCompile(`[A-Za-z0-9_]+`)
)

// DefaultEnglishStopwords is the baseline English stoplist.
var DefaultEnglishStopwords = []string{
	"the", "a", "an", "and", "or", "of", "for", "to", "in", "on", "with",
	"by", "from", "as", "is", "are", "be", "was", "were", "it", "this",
	"that", "these", "those",
}

// DefaultDomainStopwords is the baseline domain-specific stoplist.
var DefaultDomainStopwords = []string{
	"claim", "claims", "policy", "process", "team", "user",
}

// ForHash implements normalize_for_hash: strips page-footer and
// "confidential" marker lines, lowercases, collapses whitespace runs to a
// single space, and trims. The result is the input to the exact-dedup
// content hash (cid = "h:" + sha256_hex(ForHash(body))).
func ForHash(s string) string {
	s = pageFooterPattern.ReplaceAllString(s, "")
	s = confidentialLine.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits s on runs of [A-Za-z0-9_], lowercases each token, and
// drops empty tokens. It performs no stopword filtering; callers apply a
// Stoplist explicitly where the spec calls for it.
func Tokenize(s string) []string {
	matches := tokenPattern.FindAllString(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m))
	}
	return out
}

// Stoplist is the union of a configurable English stoplist and a
// configurable domain stoplist (spec §4.3). Both are configurable
// independently so a deployment can extend the domain list without losing
// the English baseline, or vice versa.
type Stoplist struct {
	set map[string]struct{}
}

// NewStoplist builds a Stoplist from one or more word lists, lowercasing
// every entry. Passing nil lists is a no-op; use NewDefaultStoplist for the
// spec's baseline English+domain union.
func NewStoplist(lists ...[]string) *Stoplist {
	s := &Stoplist{set: make(map[string]struct{})}
	for _, l := range lists {
		for _, w := range l {
			s.set[strings.ToLower(w)] = struct{}{}
		}
	}
	return s
}

// NewDefaultStoplist returns the union of DefaultEnglishStopwords and
// DefaultDomainStopwords.
func NewDefaultStoplist() *Stoplist {
	return NewStoplist(DefaultEnglishStopwords, DefaultDomainStopwords)
}

// Contains reports whether word (case-insensitive) is in the stoplist.
func (s *Stoplist) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[strings.ToLower(word)]
	return ok
}

// Filter removes stoplisted tokens from tokens, preserving order.
func (s *Stoplist) Filter(tokens []string) []string {
	if s == nil {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}
