package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLexicalIndex(t *testing.T) *BleveLexicalIndex {
	t.Helper()
	idx, err := NewBleveLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveLexicalIndex_Search_MatchesBaseTokensWithinApp(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "a", App: "claims", Title: "Refund policy", Text: "our refund policy allows escalation within 30 days"},
		{DocID: "b", App: "claims", Title: "Shipping", Text: "shipping takes five to seven business days"},
		{DocID: "c", App: "support", Title: "Refund policy", Text: "our refund policy allows escalation within 30 days"},
	}))

	ids, err := idx.Search(ctx, "claims", SearchQuery{BaseTokens: []string{"refund", "escalation"}}, 10)

	require.NoError(t, err)
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b")
	assert.NotContains(t, ids, "c", "app filter must exclude other apps")
}

func TestBleveLexicalIndex_Search_MustTokensAreRequired(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "a", App: "claims", Text: "refund policy for escalation"},
		{DocID: "b", App: "claims", Text: "refund policy without that word"},
	}))

	ids, err := idx.Search(ctx, "claims", SearchQuery{MustTokens: []string{"escalation"}}, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestBleveLexicalIndex_Search_MustPhraseExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "a", App: "claims", Text: "the refund policy escalation path is documented"},
		{DocID: "b", App: "claims", Text: "escalation of the refund policy is documented elsewhere"},
	}))

	ids, err := idx.Search(ctx, "claims", SearchQuery{
		MustPhrases: []PhraseClause{{Tokens: []string{"refund", "policy", "escalation"}, Proximity: 0}},
	}, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestBleveLexicalIndex_Search_NoClausesMatchesAllWithinApp(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "a", App: "claims", Text: "anything at all"},
		{DocID: "b", App: "claims", Text: "something else entirely"},
	}))

	ids, err := idx.Search(ctx, "claims", SearchQuery{}, 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestBleveLexicalIndex_Search_MissingAppReturnsEmptyNotError(t *testing.T) {
	idx := newTestLexicalIndex(t)

	ids, err := idx.Search(context.Background(), "ghost-app", SearchQuery{BaseTokens: []string{"anything"}}, 10)

	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBleveLexicalIndex_Search_BM25OverrideRescoresPool(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "short", App: "claims", Text: "refund refund refund"},
		{DocID: "long", App: "claims", Text: "refund appears once in a much longer document about many other unrelated topics and padding words"},
	}))
	k1 := 1.2
	b := 0.0 // disable length normalization entirely

	ids, err := idx.Search(ctx, "claims", SearchQuery{BaseTokens: []string{"refund"}, BM25K1: &k1, BM25B: &b}, 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"short", "long"}, ids)
}

func TestBleveLexicalIndex_Delete_RemovesDocument(t *testing.T) {
	ctx := context.Background()
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index(ctx, []LexicalDocument{
		{DocID: "a", App: "claims", Text: "refund policy"},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	ids, err := idx.Search(ctx, "claims", SearchQuery{BaseTokens: []string{"refund"}}, 10)

	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBleveLexicalIndex_Close_RejectsFurtherIndexing(t *testing.T) {
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Close())

	err := idx.Index(context.Background(), []LexicalDocument{{DocID: "a", App: "claims", Text: "x"}})

	assert.Error(t, err)
}
