package search

import (
	"github.com/aman-cerp/docretrieve/internal/normalize"
)

// ConstraintFilter enforces required tokens/phrases with proximity and
// computes coverage, per spec §4.8.
type ConstraintFilter struct{}

// NewConstraintFilter creates a stateless constraint filter.
func NewConstraintFilter() *ConstraintFilter { return &ConstraintFilter{} }

// Apply scores every candidate's token_hits/phrase_present/coverage, then
// applies the pass predicate. If the strict filter retains zero
// candidates, it falls back to the unfiltered set (spec §4.8's deliberate
// relevance/recall trade: never return empty when any candidate exists).
// Candidates must already have Body populated.
func (f *ConstraintFilter) Apply(candidates []*Candidate, mustTokens []string, mustPhrases []PhraseConstraint, minHits int) []*Candidate {
	mustSet := make(map[string]struct{}, len(mustTokens))
	for _, t := range mustTokens {
		mustSet[t] = struct{}{}
	}

	need := minHits
	if need <= 0 {
		need = len(mustTokens)
	}

	var passed []*Candidate
	for _, c := range candidates {
		bodyTokens := normalize.Tokenize(c.Body)
		bodySet := make(map[string]struct{}, len(bodyTokens))
		for _, t := range bodyTokens {
			bodySet[t] = struct{}{}
		}

		var hits []string
		for _, t := range mustTokens {
			if _, ok := bodySet[t]; ok {
				hits = append(hits, t)
			}
		}
		c.TokenHits = hits

		var phraseHits []string
		allPhrasesPresent := true
		for _, p := range mustPhrases {
			present, matchedText := phrasePresent(bodyTokens, p)
			if present {
				phraseHits = append(phraseHits, matchedText)
			} else {
				allPhrasesPresent = false
			}
		}
		c.PhraseHits = phraseHits

		tokenFrac := 0.0
		if len(mustTokens) > 0 {
			tokenFrac = float64(len(hits)) / float64(len(mustTokens))
		}
		phraseFrac := 0.0
		if len(mustPhrases) > 0 {
			phraseFrac = float64(len(phraseHits)) / float64(len(mustPhrases))
		}
		c.Coverage = tokenFrac + phraseFrac

		if len(hits) >= need && allPhrasesPresent {
			passed = append(passed, c)
		}
	}

	if len(passed) == 0 && len(candidates) > 0 {
		return candidates
	}
	return passed
}

// phrasePresent implements spec §4.8's phrase_present predicate: with
// p_tokens = p.Tokens and w = bodyTokens, proximity==0 requires p_tokens to
// appear contiguously in w; proximity>0 requires an index i where
// w[i]==p_tokens[0] and every element of p_tokens occurs at least once
// within w[i : i+len(p_tokens)+proximity].
func phrasePresent(w []string, p PhraseConstraint) (bool, string) {
	if len(p.Tokens) == 0 {
		return true, ""
	}
	matched := joinTokens(p.Tokens)
	if p.Proximity <= 0 {
		for i := 0; i+len(p.Tokens) <= len(w); i++ {
			if tokensEqual(w[i:i+len(p.Tokens)], p.Tokens) {
				return true, matched
			}
		}
		return false, ""
	}

	for i := 0; i < len(w); i++ {
		if w[i] != p.Tokens[0] {
			continue
		}
		end := i + len(p.Tokens) + p.Proximity
		if end > len(w) {
			end = len(w)
		}
		window := w[i:end]
		windowSet := make(map[string]struct{}, len(window))
		for _, t := range window {
			windowSet[t] = struct{}{}
		}
		allPresent := true
		for _, t := range p.Tokens {
			if _, ok := windowSet[t]; !ok {
				allPresent = false
				break
			}
		}
		if allPresent {
			return true, matched
		}
	}
	return false, ""
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
