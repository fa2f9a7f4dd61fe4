package httpapi

import "github.com/aman-cerp/docretrieve/internal/store"

// chunkView is the response shape /neighbors and /by_ids render each
// store.Chunk as, matching the {id, document, metadata} shape of a
// /retrieve result (spec §4.10) minus the retrieval-only debug trace.
type chunkView struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata chunkMetadataView `json:"metadata"`
}

type chunkMetadataView struct {
	App          string            `json:"app"`
	SourcePath   string            `json:"source_path"`
	SectionTitle string            `json:"section_title"`
	SeqIdx       int               `json:"seq_idx"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func viewChunk(c *store.Chunk) chunkView {
	return chunkView{
		ID:       c.CID,
		Document: c.Body,
		Metadata: chunkMetadataView{
			App:          c.Metadata.App,
			SourcePath:   c.Metadata.SourcePath,
			SectionTitle: c.Metadata.SectionTitle,
			SeqIdx:       c.Metadata.SeqIdx,
			Extra:        c.Metadata.Extra,
		},
	}
}
