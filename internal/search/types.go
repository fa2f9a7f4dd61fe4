// Package search implements the online hybrid-retrieval pipeline described
// in spec §4.5-§4.10: the Query Planner, the dense/sparse Signal Adapters,
// the RRF Rank Fuser, the Constraint Filter, the MMR Selector, and the
// Response Assembler.
package search

import (
	"context"
)

// Signal selects which retrieval signals a Query enables, per spec §4.5.
type Signal string

const (
	SignalHybrid Signal = "hybrid"
	SignalDense  Signal = "dense"
	SignalSparse Signal = "sparse"
)

// Query is the Planner's entry-point input, per spec §4.5.
type Query struct {
	Text         string
	App          string
	TopK         int
	Pool         int
	Signal       Signal
	Must         []string // raw, pre-normalization required tokens
	MustPhrases  []string // raw, pre-normalization required phrases
	MinHits      int
	Proximity    int
	BM25K1       *float64 // optional per-request BM25 k1 override
	BM25B        *float64 // optional per-request BM25 b override
}

// RankMap is a cid -> 1-based rank map, the shape every Signal Adapter
// returns (spec §4.6). A missing entry means "not retrieved".
type RankMap map[string]int

// FusedCandidate is one (cid, score) pair from the Rank Fuser (spec §4.7).
type FusedCandidate struct {
	CID   string
	Score float64
}

// Candidate threads a cid through the Constraint Filter and MMR Selector,
// accumulating the fields the Response Assembler's debug trace needs.
type Candidate struct {
	CID         string
	Body        string
	Metadata    ChunkMetadataView
	FusedScore  float64
	TokenHits   []string
	PhraseHits  []string
	Coverage    float64
	BlendedSim  float64
	Vector      []float32
}

// ChunkMetadataView is the subset of chunk metadata the search pipeline and
// response assembler need; internal/store.ChunkMetadata satisfies a
// superset of this via the adapter layer.
type ChunkMetadataView struct {
	App          string            `json:"app"`
	SourcePath   string            `json:"source_path"`
	SectionTitle string            `json:"section_title"`
	SeqIdx       int               `json:"seq_idx"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Result is one item of a Response, per spec §4.10.
type Result struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata ChunkMetadataView `json:"metadata"`
	Debug    ResultDebug       `json:"debug"`
}

// ResultDebug carries the per-result trace spec §4.10 requires.
type ResultDebug struct {
	Coverage   float64  `json:"coverage"`
	TokenHits  []string `json:"token_hits"`
	PhraseHits []string `json:"phrase_hits"`
}

// Response is the Assembler's output, per spec §4.10.
type Response struct {
	Query   string         `json:"query"`
	App     string         `json:"app"`
	TopK    int            `json:"top_k"`
	Results []Result       `json:"results"`
	Debug   ResponseDebug  `json:"debug"`
}

// ResponseDebug carries the top-level trace spec §4.10 requires.
type ResponseDebug struct {
	PoolSizes       PoolSizes `json:"pool_sizes"`
	Signal          Signal    `json:"signal"`
	DenseAvailable  bool      `json:"dense_available"`
	SparseAvailable bool      `json:"sparse_available"`
}

// PoolSizes records the size of each stage's candidate set, per spec §4.10.
type PoolSizes struct {
	Dense      int `json:"dense"`
	Sparse     int `json:"sparse"`
	Fused      int `json:"fused"`
	Candidates int `json:"candidates"`
	PostFilter int `json:"post_filter"`
}

// DenseAdapter is the dense-signal collaborator of spec §4.6.
type DenseAdapter interface {
	Search(ctx context.Context, app string, queryVector []float32, n int) (RankMap, bool)
}

// SparseAdapter is the sparse-signal collaborator of spec §4.6.
type SparseAdapter interface {
	Search(ctx context.Context, app string, baseTokens, mustTokens []string, mustPhrases []PhraseConstraint, n int, bm25K1, bm25B *float64) (RankMap, bool)
}

// PhraseConstraint is a normalized required phrase, post-stoplist removal
// (spec §4.5 "Normalizes requireds by tokenizing and removing stop/domain-
// stop words").
type PhraseConstraint struct {
	Tokens    []string
	Proximity int
}
