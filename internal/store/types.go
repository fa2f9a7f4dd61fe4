// Package store provides the persistence-layer adapters for the retrieval
// service: a dense VectorStore (coder/hnsw), a lexical LexicalIndex
// (bleve/v2, BM25-scored), and a MetadataStore (SQLite) that persists chunk
// metadata plus the (app, source_path, seq_idx) -> cid side-index spec §9's
// Open Question prescribes for /neighbors. These three adapters are the
// concrete implementations of the collaborator interfaces named in spec §6.
package store

import (
	"context"
	"fmt"
	"time"
)

// Chunk is the atomic retrieval unit described in spec §3: a stable
// content-addressed id, the full body, a preview, its metadata record, and
// the dedup fingerprints computed at ingest time. Immutable after ingestion.
type Chunk struct {
	CID      string // "h:" + sha256_hex(normalize_for_hash(Body))
	Body     string
	Preview  string // first 600 characters of Body
	Metadata ChunkMetadata
	SimHash  uint64
	Hash     string // hex sha256 of normalize_for_hash(Body)
}

// PreviewLen bounds the Chunk.Preview field per spec §3.
const PreviewLen = 600

// MakePreview truncates body to the first PreviewLen characters.
func MakePreview(body string) string {
	r := []rune(body)
	if len(r) <= PreviewLen {
		return body
	}
	return string(r[:PreviewLen])
}

// ChunkMetadata is the flat keyed record described in spec §3. Hierarchy
// fields derived from a Root's configuration (module/submodule labels, and
// so on) live in Extra since the set of fields varies by hierarchy rule.
type ChunkMetadata struct {
	App          string
	SourcePath   string
	SectionTitle string
	SeqIdx       int
	IngestedAt   time.Time
	Hash         string
	SimHash      uint64
	Extra        map[string]string // hierarchy-derived fields, e.g. "module", "submodule"
}

// Collection maps one-to-one from an app to a VectorStore collection name,
// per spec §3.
func CollectionName(app string) string {
	return "app_" + app
}

// VectorResult is one hit from VectorStore.Query: a cid and its similarity
// score (inner product; vectors are L2-normalized so this equals cosine).
type VectorResult struct {
	CID   string
	Score float32
}

// VectorStore is the dense-signal collaborator of spec §6. Vectors are
// L2-normalized float32, "hnsw:space" is cosine, so inner product is cosine
// similarity. One collection per app.
type VectorStore interface {
	// GetOrCreateCollection ensures a collection exists for name, probing
	// metadata.dimensions against any existing collection (dimension
	// mismatch is fatal per spec §4.4).
	GetOrCreateCollection(ctx context.Context, name string, dim int) error

	// Add writes (cid, preview, metadata, vector) tuples into a collection.
	// Re-adding an existing cid replaces it.
	Add(ctx context.Context, collection string, ids []string, previews []string, metadatas []ChunkMetadata, embeddings [][]float32) error

	// Query returns the top n candidates by inner product, restricted to
	// collection. Returns a nil/empty slice, never an error, when the
	// collection does not exist (spec §4.6 "adapter may return empty").
	Query(ctx context.Context, collection string, embedding []float32, n int) ([]VectorResult, error)

	// Get hydrates the given cids into a map keyed by cid; unknown ids are
	// simply absent from the result map.
	Get(ctx context.Context, collection string, ids []string) (map[string]*Chunk, error)

	// Dimensions reports the probed embedding width for collection, or 0 if
	// the collection does not exist yet.
	Dimensions(collection string) int

	// Save atomically persists the store to dir (temp-dir-then-rename, per
	// spec §5 "Shared resources").
	Save(dir string) error
	// Load restores the store from dir.
	Load(dir string) error
	Close() error
}

// ErrDimensionMismatch is returned when a vector's width disagrees with the
// collection's probed dimension; spec §4.4 treats this as a fatal ingest
// error and §7 as a "Validation" category error.
type ErrDimensionMismatch struct {
	Collection string
	Expected   int
	Got        int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch in collection %q: expected %d, got %d", e.Collection, e.Expected, e.Got)
}

// LexicalDocument is the record shape LexicalIndex stores, per spec §3.
type LexicalDocument struct {
	DocID  string // = cid
	App    string
	Title  string // = section_title
	Text   string // = body
	Source string // = source_path
}

// LexicalIndex is the sparse-signal collaborator of spec §6: BM25 over
// `text`, with term and phrase query support; a phrase with a proximity is
// matched as a disjunction of its terms, without a span check.
type LexicalIndex interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs []LexicalDocument) error

	// Search runs a SearchQuery and returns up to n doc_ids ranked by BM25
	// score, restricted to app. Returns an empty slice, never an error,
	// when the index is missing or the app has no documents.
	Search(ctx context.Context, app string, q SearchQuery, n int) ([]string, error)

	Delete(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Close() error
}

// SearchQuery describes the boolean-AND query the Sparse Adapter composes,
// per spec §4.6.
type SearchQuery struct {
	// BaseTokens are up to 8 post-stoplist query tokens, OR'd together into
	// one clause of the AND: a document must match at least one of them.
	BaseTokens []string
	// MustTokens are required tokens, each a hard AND must-clause.
	MustTokens []string
	// MustPhrases are required phrases. Proximity == 0 means an exact
	// phrase match; Proximity > 0 matches any of the phrase's terms, so the
	// index does not enforce term proximity.
	MustPhrases []PhraseClause

	// BM25K1/BM25B optionally override the backend's built-in BM25
	// hyperparameters for this query only, per the request-tunable
	// BM25 knobs carried forward from the original prototype. Nil means
	// use whatever the backend was built with.
	BM25K1 *float64
	BM25B  *float64
}

// PhraseClause is one required phrase constraint.
type PhraseClause struct {
	Tokens    []string
	Proximity int
}

// MetadataStore persists Chunk/ChunkMetadata records plus the
// (app, source_path, seq_idx) -> cid side-index spec §9's Open Question
// prescribes in place of the brittle first-1000-then-filter /neighbors
// implementation.
type MetadataStore interface {
	// Put persists a chunk's full record (including the side-index entry).
	Put(ctx context.Context, chunks []*Chunk) error

	// Get returns the chunk for cid, or nil if absent.
	Get(ctx context.Context, cid string) (*Chunk, error)

	// GetBatch returns chunks for the given cids, omitting unknown ids.
	GetBatch(ctx context.Context, cids []string) (map[string]*Chunk, error)

	// Neighbors returns chunks sharing (app, sourcePath) whose seq_idx is
	// within radius of center, up to limit, ordered by seq_idx ascending.
	Neighbors(ctx context.Context, app, sourcePath string, center, radius, limit int) ([]*Chunk, error)

	// SetState/GetState persist small key-value run state (e.g. the probed
	// embedding dimension, the chunk-id scheme version).
	SetState(ctx context.Context, key, value string) error
	GetState(ctx context.Context, key string) (string, error)

	Close() error
}
