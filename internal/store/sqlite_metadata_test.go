package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetadataStore(t *testing.T) *SQLiteMetadataStore {
	t.Helper()
	ms, err := NewSQLiteMetadataStore("", DriverSQLite3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

func sampleChunk(cid, app, sourcePath string, seqIdx int) *Chunk {
	return &Chunk{
		CID:     cid,
		Body:    "body of " + cid,
		Preview: "preview of " + cid,
		Hash:    "hash-" + cid,
		SimHash: 42,
		Metadata: ChunkMetadata{
			App:          app,
			SourcePath:   sourcePath,
			SectionTitle: "Section",
			SeqIdx:       seqIdx,
			IngestedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Hash:         "hash-" + cid,
			SimHash:      42,
			Extra:        map[string]string{"module": "billing"},
		},
	}
}

func TestSQLiteMetadataStore_ModernCDriver_OpensAndRoundTripsChunk(t *testing.T) {
	ctx := context.Background()
	ms, err := NewSQLiteMetadataStore(filepath.Join(t.TempDir(), "metadata.db"), DriverModernC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })

	chunk := sampleChunk("a", "claims", "a.md", 0)
	require.NoError(t, ms.Put(ctx, []*Chunk{chunk}))

	got, err := ms.Get(ctx, "a")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "body of a", got.Body)
}

func TestSQLiteMetadataStore_UnknownDriverFallsBackToSQLite3(t *testing.T) {
	ms, err := NewSQLiteMetadataStore("", "")

	require.NoError(t, err)
	_ = ms.Close()
}

func TestSQLiteMetadataStore_PutAndGet_RoundTripsChunk(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	chunk := sampleChunk("a", "claims", "a.md", 0)

	require.NoError(t, ms.Put(ctx, []*Chunk{chunk}))
	got, err := ms.Get(ctx, "a")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "body of a", got.Body)
	assert.Equal(t, "claims", got.Metadata.App)
	assert.Equal(t, "billing", got.Metadata.Extra["module"])
	assert.True(t, chunk.Metadata.IngestedAt.Equal(got.Metadata.IngestedAt))
}

func TestSQLiteMetadataStore_Get_UnknownCIDReturnsNilNotError(t *testing.T) {
	ms := newTestMetadataStore(t)

	got, err := ms.Get(context.Background(), "ghost")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteMetadataStore_Put_UpsertsExistingCID(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	require.NoError(t, ms.Put(ctx, []*Chunk{sampleChunk("a", "claims", "a.md", 0)}))

	updated := sampleChunk("a", "claims", "a.md", 0)
	updated.Body = "updated body"
	require.NoError(t, ms.Put(ctx, []*Chunk{updated}))

	got, err := ms.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "updated body", got.Body)
}

func TestSQLiteMetadataStore_GetBatch_OmitsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	require.NoError(t, ms.Put(ctx, []*Chunk{
		sampleChunk("a", "claims", "a.md", 0),
		sampleChunk("b", "claims", "a.md", 1),
	}))

	got, err := ms.GetBatch(ctx, []string{"a", "b", "ghost"})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
}

func TestSQLiteMetadataStore_GetBatch_EmptyInputReturnsEmptyMap(t *testing.T) {
	ms := newTestMetadataStore(t)

	got, err := ms.GetBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteMetadataStore_Neighbors_ReturnsWithinRadiusOrderedBySeqIdx(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	for i := 0; i < 6; i++ {
		require.NoError(t, ms.Put(ctx, []*Chunk{sampleChunk(chunkID(i), "claims", "doc.md", i)}))
	}
	require.NoError(t, ms.Put(ctx, []*Chunk{sampleChunk("other-doc", "claims", "other.md", 3)}))

	neighbors, err := ms.Neighbors(ctx, "claims", "doc.md", 3, 1, 10)

	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	assert.Equal(t, 2, neighbors[0].Metadata.SeqIdx)
	assert.Equal(t, 3, neighbors[1].Metadata.SeqIdx)
	assert.Equal(t, 4, neighbors[2].Metadata.SeqIdx)
}

func TestSQLiteMetadataStore_Neighbors_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, ms.Put(ctx, []*Chunk{sampleChunk(chunkID(i), "claims", "doc.md", i)}))
	}

	neighbors, err := ms.Neighbors(ctx, "claims", "doc.md", 5, 5, 2)

	require.NoError(t, err)
	assert.Len(t, neighbors, 2)
}

func TestSQLiteMetadataStore_SetStateAndGetState_RoundTrips(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)

	require.NoError(t, ms.SetState(ctx, "dimension", "128"))
	value, err := ms.GetState(ctx, "dimension")

	require.NoError(t, err)
	assert.Equal(t, "128", value)
}

func TestSQLiteMetadataStore_GetState_UnknownKeyReturnsEmptyStringNotError(t *testing.T) {
	ms := newTestMetadataStore(t)

	value, err := ms.GetState(context.Background(), "ghost-key")

	assert.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestSQLiteMetadataStore_SetState_OverwritesExistingKey(t *testing.T) {
	ctx := context.Background()
	ms := newTestMetadataStore(t)
	require.NoError(t, ms.SetState(ctx, "k", "v1"))

	require.NoError(t, ms.SetState(ctx, "k", "v2"))

	value, err := ms.GetState(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func chunkID(i int) string {
	return "c" + string(rune('a'+i))
}
