package chunk

import "context"

// Size defaults for the structure-aware document chunker.
const (
	DefaultTokens      = 512 // target chunk size in tokens
	DefaultOverlap     = 64  // overlap between consecutive windows, in tokens
	MinChunkTokens     = 32  // minimum chunk size; DocumentChunker does not merge shorter windows
	CharsPerTokenEstim = 4   // chars/4 token estimate, matches the teacher's heuristic
)

// Chunk is the unit the chunker emits, ordered within its source document.
type Chunk struct {
	Title  string // detected section/heading title, may be empty
	Body   string
	SeqIdx int // 0-based position within the source document
}

// DocInput is the input to a Chunker: the full extracted text of one source
// file plus the token budget for this ingestion run.
type DocInput struct {
	SourcePath string
	Text       string
	Tokens     int // target tokens per chunk (T)
	Overlap    int // overlap tokens between windows (O)
}

// Chunker splits a document's full text into ordered, structure-aware chunks.
type Chunker interface {
	Chunk(ctx context.Context, in *DocInput) ([]*Chunk, error)
}
