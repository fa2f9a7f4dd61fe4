package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aman-cerp/docretrieve/internal/chunk"
	"github.com/aman-cerp/docretrieve/internal/config"
	"github.com/aman-cerp/docretrieve/internal/dedup"
	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/hierarchy"
	"github.com/aman-cerp/docretrieve/internal/store"
)

// interBatchDelayDefault mirrors spec §4.4's "sleep ~50 ms between vector
// writes to bound backend throughput".
const interBatchDelayDefault = 50 * time.Millisecond

// Orchestrator runs one ingestion pass over the configured roots, per spec
// §4.4 "Ingest Orchestrator". It holds no state across runs; a fresh
// Orchestrator (and dedup.Engine) is created per invocation, per spec §3
// "Lifecycles".
type Orchestrator struct {
	RetrievalCtx *config.RetrievalContext
	Sources      []TextSource
	Chunker      chunk.Chunker
	Labeler      *hierarchy.Labeler
	Embedder     embed.Embedder
	Vector       store.VectorStore
	Lexical      store.LexicalIndex
	Metadata     store.MetadataStore

	Logger *slog.Logger
}

// NewOrchestrator wires the default plain-text TextSource and a fresh
// per-run dedup engine that upgrades from the linear scan to the banded
// LSH index once retained chunks cross cfg.Ingest.DedupLSHThreshold, per
// spec §4.3's complexity note.
func NewOrchestrator(rc *config.RetrievalContext, embedder embed.Embedder, vs store.VectorStore, lx store.LexicalIndex, ms store.MetadataStore, logger *slog.Logger) (*Orchestrator, error) {
	labeler, err := hierarchy.NewLabeler(4096)
	if err != nil {
		return nil, fmt.Errorf("ingest: create hierarchy labeler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		RetrievalCtx: rc,
		Sources:      []TextSource{NewPlainTextSource(rc.Config.IncludeExtensions)},
		Chunker:      chunk.NewDocumentChunker(),
		Labeler:      labeler,
		Embedder:     embedder,
		Vector:       vs,
		Lexical:      lx,
		Metadata:     ms,
		Logger:       logger,
	}, nil
}

func (o *Orchestrator) dedupEngine() *dedup.Engine {
	return dedup.NewEngineWithUpgradeThreshold(o.RetrievalCtx.Config.Ingest.DedupLSHThreshold)
}

func (o *Orchestrator) sourceFor(path string) TextSource {
	for _, s := range o.Sources {
		if s.CanHandle(path) {
			return s
		}
	}
	return nil
}

// Run walks every configured root, chunks and dedups their text, embeds in
// batches, and fans the results out to the three stores. Per-file errors
// are logged and skipped; a dimension mismatch aborts the whole run
// (spec §4.4 "Failure semantics").
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	runID := uuid.NewString()
	cfg := o.RetrievalCtx.Config
	stats := &Stats{RunID: runID}
	engine := o.dedupEngine()

	logger := o.Logger.With(slog.String("run_id", runID))

	if cfg.Ingest.LockPath != "" {
		lock := NewRunLock(cfg.Ingest.LockPath)
		acquired, err := lock.TryLock()
		if err != nil {
			return stats, fmt.Errorf("ingest: %w", err)
		}
		if !acquired {
			return stats, fmt.Errorf("ingest: another ingestion run holds the lock at %s", cfg.Ingest.LockPath)
		}
		defer lock.Unlock()
	}

	logger.Info("ingest run starting", slog.Int("roots", len(cfg.Roots)))

	probedDims := map[string]int{} // collection -> probed embedding dimension

	batchSize := cfg.Ingest.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}
	delay := interBatchDelayDefault
	if cfg.Ingest.InterBatchDelayMS > 0 {
		delay = time.Duration(cfg.Ingest.InterBatchDelayMS) * time.Millisecond
	}

	pending := map[string][]*store.Chunk{} // collection -> pending un-embedded chunks

	flush := func(ctx context.Context, collection string) error {
		chunks := pending[collection]
		if len(chunks) == 0 {
			return nil
		}
		pending[collection] = nil

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Body
		}
		vectors, err := o.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("ingest: embed batch for %s: %w", collection, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}

		dim, ok := probedDims[collection]
		if !ok {
			dim = o.Embedder.Dimensions()
			if err := o.Vector.GetOrCreateCollection(ctx, collection, dim); err != nil {
				return fmt.Errorf("ingest: create collection %s: %w", collection, err)
			}
			probedDims[collection] = dim
		}
		for _, v := range vectors {
			if len(v) != dim {
				return store.ErrDimensionMismatch{Collection: collection, Expected: dim, Got: len(v)}
			}
		}

		ids := make([]string, len(chunks))
		previews := make([]string, len(chunks))
		metas := make([]store.ChunkMetadata, len(chunks))
		docs := make([]store.LexicalDocument, len(chunks))
		for i, c := range chunks {
			ids[i] = c.CID
			previews[i] = c.Preview
			metas[i] = c.Metadata
			docs[i] = store.LexicalDocument{
				DocID:  c.CID,
				App:    c.Metadata.App,
				Title:  c.Metadata.SectionTitle,
				Text:   c.Body,
				Source: c.Metadata.SourcePath,
			}
		}

		if err := o.Vector.Add(ctx, collection, ids, previews, metas, vectors); err != nil {
			return fmt.Errorf("ingest: write vectors to %s: %w", collection, err)
		}
		if err := o.Lexical.Index(ctx, docs); err != nil {
			return fmt.Errorf("ingest: write lexical docs for %s: %w", collection, err)
		}
		if err := o.Metadata.Put(ctx, chunks); err != nil {
			return fmt.Errorf("ingest: persist metadata for %s: %w", collection, err)
		}

		stats.BatchesEmbedded++
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	for _, root := range cfg.Roots {
		collection := store.CollectionName(root.App)
		for res := range WalkRoot(ctx, root, cfg.IncludeExtensions, cfg.MaxMB) {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if res.Err != nil {
				stats.FilesFailed++
				logger.Warn("walk error, skipping", slog.String("path", res.Path), slog.String("error", res.Err.Error()))
				continue
			}
			stats.FilesWalked++

			src := o.sourceFor(res.Path)
			if src == nil {
				stats.FilesSkipped++
				continue
			}
			text, err := src.Extract(ctx, res.Path)
			if err != nil {
				stats.FilesFailed++
				logger.Warn("extract failed, skipping file", slog.String("path", res.Path), slog.String("error", err.Error()))
				continue
			}

			chunks, err := o.Chunker.Chunk(ctx, &chunk.DocInput{
				SourcePath: res.Path,
				Text:       text,
				Tokens:     cfg.Chunk.Tokens,
				Overlap:    cfg.Chunk.Overlap,
			})
			if err != nil {
				stats.FilesFailed++
				logger.Warn("chunk failed, skipping file", slog.String("path", res.Path), slog.String("error", err.Error()))
				continue
			}

			fields := o.Labeler.Label(hierarchy.Root{Path: root.Path, App: root.App, Rule: hierarchy.Rule(root.Hierarchy)}, res.Path)

			for _, ch := range chunks {
				cand := dedup.Prepare(ch.Body)
				retained, reason := engine.Accept(cand)
				if !retained {
					switch reason {
					case "exact":
						stats.ExactDupsDropped++
					case "near":
						stats.NearDupsDropped++
					case "empty":
						// body normalized to nothing (e.g. a stripped page
						// footer); drop silently per spec §8, not a duplicate.
					}
					continue
				}

				extra := make(map[string]string, len(fields))
				for k, v := range fields {
					extra[k] = v
				}

				sc := &store.Chunk{
					CID:     "h:" + cand.Hash,
					Body:    ch.Body,
					Preview: store.MakePreview(ch.Body),
					Hash:    cand.Hash,
					SimHash: cand.SimHash,
					Metadata: store.ChunkMetadata{
						App:          root.App,
						SourcePath:   res.Path,
						SectionTitle: ch.Title,
						SeqIdx:       ch.SeqIdx,
						IngestedAt:   time.Now(),
						Hash:         cand.Hash,
						SimHash:      cand.SimHash,
						Extra:        extra,
					},
				}
				pending[collection] = append(pending[collection], sc)
				stats.ChunksEmitted++

				if len(pending[collection]) >= batchSize {
					if err := flush(ctx, collection); err != nil {
						return stats, err
					}
				}
			}
		}
	}

	for collection := range pending {
		if err := flush(ctx, collection); err != nil {
			return stats, err
		}
	}

	if dataDir := cfg.Ingest.DataDir; dataDir != "" {
		if err := o.Vector.Save(filepath.Join(dataDir, "vectors")); err != nil {
			return stats, fmt.Errorf("ingest: save vector store: %w", err)
		}
		if err := o.Lexical.Save(filepath.Join(dataDir, "lexical")); err != nil {
			return stats, fmt.Errorf("ingest: save lexical index: %w", err)
		}
	}

	logger.Info("ingest run complete",
		slog.Int("files_walked", stats.FilesWalked),
		slog.Int("files_failed", stats.FilesFailed),
		slog.Int("chunks_emitted", stats.ChunksEmitted),
		slog.Int("exact_dups_dropped", stats.ExactDupsDropped),
		slog.Int("near_dups_dropped", stats.NearDupsDropped),
		slog.Int("batches_embedded", stats.BatchesEmbedded),
	)
	return stats, nil
}
