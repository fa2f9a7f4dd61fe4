// Package ingest implements the offline build pipeline described in spec
// §4.4/§4.5: walk configured roots, extract text, chunk, dedup, embed in
// batches, and fan out to the VectorStore, LexicalIndex, and MetadataStore.
package ingest

import "context"

// TextSource extracts the full text of one file, per spec §6 ("PDF/DOCX
// text extraction... treated as a TextSource interface"). Ingest ships a
// plain-text/markdown implementation and leaves richer formats (PDF, DOCX)
// to callers that register their own.
type TextSource interface {
	// CanHandle reports whether this source extracts text from path, based
	// on its extension.
	CanHandle(path string) bool
	// Extract returns the full text content of path.
	Extract(ctx context.Context, path string) (string, error)
}

// Stats summarizes one ingestion run, for logging and CLI reporting.
type Stats struct {
	RunID          string
	FilesWalked    int
	FilesSkipped   int
	FilesFailed    int
	ChunksEmitted  int
	ExactDupsDropped int
	NearDupsDropped  int
	BatchesEmbedded  int
}
