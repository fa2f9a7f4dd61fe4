package search

import (
	"context"

	docerrors "github.com/aman-cerp/docretrieve/internal/errors"
	"github.com/aman-cerp/docretrieve/internal/store"
)

// VectorDenseAdapter implements DenseAdapter over a store.VectorStore
// (spec §4.6 "Dense Adapter"). A missing collection or backend error
// degrades to (nil, false) rather than surfacing an error into the
// planner, per spec §7.
//
// Breaker guards the underlying Store.Query call. A nil Breaker (the
// zero value) calls Store.Query directly, so existing struct literals
// keep working; NewVectorDenseAdapter wires a default breaker.
type VectorDenseAdapter struct {
	Store   store.VectorStore
	Breaker *docerrors.CircuitBreaker
}

// NewVectorDenseAdapter wires s behind a circuit breaker so a failing
// vector backend degrades the dense signal to unavailable (per spec §7)
// instead of being hammered with every query while it is down.
func NewVectorDenseAdapter(s store.VectorStore) *VectorDenseAdapter {
	return &VectorDenseAdapter{
		Store:   s,
		Breaker: docerrors.NewCircuitBreaker("vector_store"),
	}
}

// Search implements DenseAdapter.
func (a *VectorDenseAdapter) Search(ctx context.Context, app string, queryVector []float32, n int) (RankMap, bool) {
	if a.Store == nil {
		return nil, false
	}
	var results []store.VectorResult
	query := func() error {
		r, err := a.Store.Query(ctx, store.CollectionName(app), queryVector, n)
		results = r
		return err
	}
	var err error
	if a.Breaker != nil {
		err = a.Breaker.Execute(query)
	} else {
		err = query()
	}
	if err != nil || len(results) == 0 {
		return nil, false
	}
	rm := make(RankMap, len(results))
	for i, r := range results {
		rm[r.CID] = i + 1
	}
	return rm, true
}

var _ DenseAdapter = (*VectorDenseAdapter)(nil)

// LexicalSparseAdapter implements SparseAdapter over a store.LexicalIndex
// (spec §4.6 "Sparse Adapter"). A missing index or backend error degrades
// to (nil, false).
//
// Breaker guards the underlying Index.Search call, same nil-safety as
// VectorDenseAdapter.Breaker.
type LexicalSparseAdapter struct {
	Index   store.LexicalIndex
	Breaker *docerrors.CircuitBreaker
}

// NewLexicalSparseAdapter wires idx behind a circuit breaker so a failing
// lexical backend degrades the sparse signal to unavailable instead of
// being hammered with every query while it is down.
func NewLexicalSparseAdapter(idx store.LexicalIndex) *LexicalSparseAdapter {
	return &LexicalSparseAdapter{
		Index:   idx,
		Breaker: docerrors.NewCircuitBreaker("lexical_index"),
	}
}

// Search implements SparseAdapter.
func (a *LexicalSparseAdapter) Search(ctx context.Context, app string, baseTokens, mustTokens []string, mustPhrases []PhraseConstraint, n int, bm25K1, bm25B *float64) (RankMap, bool) {
	if a.Index == nil {
		return nil, false
	}
	q := store.SearchQuery{BaseTokens: baseTokens, MustTokens: mustTokens, BM25K1: bm25K1, BM25B: bm25B}
	for _, p := range mustPhrases {
		q.MustPhrases = append(q.MustPhrases, store.PhraseClause{Tokens: p.Tokens, Proximity: p.Proximity})
	}
	var ids []string
	search := func() error {
		r, err := a.Index.Search(ctx, app, q, n)
		ids = r
		return err
	}
	var err error
	if a.Breaker != nil {
		err = a.Breaker.Execute(search)
	} else {
		err = search()
	}
	if err != nil || len(ids) == 0 {
		return nil, false
	}
	rm := make(RankMap, len(ids))
	for i, id := range ids {
		rm[id] = i + 1
	}
	return rm, true
}

var _ SparseAdapter = (*LexicalSparseAdapter)(nil)
