// Package embed implements the TF-IDF → truncated-SVD embedder described in
// spec §9 ("Pickled embedder"): a pure function of (text, artifact) -> vector,
// loaded from an explicit versioned binary artifact rather than a pickled
// model loaded at import time.
package embed

import "context"

// BatchSize bounds mirrors spec §4.4's ingest batching default.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 256
)

// Embedder is the external collaborator of spec §6: embed(texts) -> (N×D)
// float32, rows L2-normalized. Dimension is fixed per deployment and probed
// once at ingest start.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// compile-time interface checks live beside each implementation.
