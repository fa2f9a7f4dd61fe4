package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/aman-cerp/docretrieve/internal/normalize"
)

// TFIDFSVDEmbedder is the artifact-based embedder described in spec §9
// ("Pickled embedder"): a pure function of (text, artifact) -> vector. The
// artifact is a versioned record (Artifact) carrying a vocabulary, IDF
// weights, and a truncated-SVD projection matrix, loaded once at process
// start rather than an opaque pickled model imported as a side effect.
type TFIDFSVDEmbedder struct {
	artifact *Artifact
	vocab    map[string]int // term -> column index into the TF-IDF vector
}

// NewTFIDFSVDEmbedder builds an embedder from a loaded Artifact.
func NewTFIDFSVDEmbedder(a *Artifact) (*TFIDFSVDEmbedder, error) {
	if a == nil {
		return nil, fmt.Errorf("embed: nil artifact")
	}
	if a.Algo != AlgoTFIDFSVD {
		return nil, fmt.Errorf("embed: unsupported artifact algo %q", a.Algo)
	}
	if len(a.IDF) != a.VocabSize {
		return nil, fmt.Errorf("embed: artifact IDF length %d does not match vocab_size %d", len(a.IDF), a.VocabSize)
	}
	if len(a.Projection) != a.VocabSize {
		return nil, fmt.Errorf("embed: artifact projection rows %d does not match vocab_size %d", len(a.Projection), a.VocabSize)
	}
	vocab := make(map[string]int, len(a.Vocabulary))
	for i, term := range a.Vocabulary {
		vocab[term] = i
	}
	return &TFIDFSVDEmbedder{artifact: a, vocab: vocab}, nil
}

// Embed implements Embedder: tokenize, compute a sparse TF-IDF vector over
// the artifact's fixed vocabulary, project through the truncated-SVD
// projection matrix into the fixed-D embedding, then L2-normalize.
func (e *TFIDFSVDEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch implements Embedder.
func (e *TFIDFSVDEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *TFIDFSVDEmbedder) embedOne(text string) []float32 {
	tokens := normalize.Tokenize(text)
	termFreq := make(map[int]float64, len(tokens))
	for _, tok := range tokens {
		if col, ok := e.vocab[tok]; ok {
			termFreq[col]++
		}
	}
	total := float64(len(tokens))

	dim := e.artifact.Dim
	v := make([]float64, dim)
	for col, tf := range termFreq {
		tfidf := (tf / math.Max(total, 1)) * float64(e.artifact.IDF[col])
		row := e.artifact.Projection[col]
		for d := 0; d < dim; d++ {
			v[d] += tfidf * float64(row[d])
		}
	}

	out := make([]float32, dim)
	var norm float64
	for d := 0; d < dim; d++ {
		norm += v[d] * v[d]
	}
	norm = math.Sqrt(norm)
	if norm < 1e-12 {
		// degenerate (e.g. all-stopword text): return a zero-safe unit
		// vector on the first axis rather than NaN, keeping ||v||=1.
		out[0] = 1
		return out
	}
	for d := 0; d < dim; d++ {
		out[d] = float32(v[d] / norm)
	}
	return out
}

// Dimensions implements Embedder.
func (e *TFIDFSVDEmbedder) Dimensions() int { return e.artifact.Dim }

// ModelName implements Embedder.
func (e *TFIDFSVDEmbedder) ModelName() string {
	return fmt.Sprintf("tfidf+svd/%d", e.artifact.Dim)
}

var _ Embedder = (*TFIDFSVDEmbedder)(nil)
