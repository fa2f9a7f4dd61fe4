package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/config"
	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/ingest"
	"github.com/aman-cerp/docretrieve/internal/store"
)

func newIngestCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass over the configured roots",
		Long: `Walk every configured root, chunk and dedup its documents, embed them in
batches, and write the results to the vector, lexical, and metadata
backends (spec §4.4 "Ingest Orchestrator").

A fresh dedup engine is used for every run; there is no incremental
ingestion across runs.`,
		Example: `  # Run ingestion with the default config file
  docretrieve ingest

  # Run ingestion with a specific config and print stats as JSON
  docretrieve ingest --config ./prod.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print run statistics as JSON")
	return cmd
}

func runIngest(cmd *cobra.Command, jsonOutput bool) error {
	rc, err := loadRetrievalContext()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stats, err := runOneIngest(cmd.Context(), rc)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run_id:             %s\n", stats.RunID)
	fmt.Fprintf(out, "files walked:       %d\n", stats.FilesWalked)
	fmt.Fprintf(out, "files failed:       %d\n", stats.FilesFailed)
	fmt.Fprintf(out, "files skipped:      %d\n", stats.FilesSkipped)
	fmt.Fprintf(out, "chunks emitted:     %d\n", stats.ChunksEmitted)
	fmt.Fprintf(out, "exact dups dropped: %d\n", stats.ExactDupsDropped)
	fmt.Fprintf(out, "near dups dropped:  %d\n", stats.NearDupsDropped)
	fmt.Fprintf(out, "batches embedded:   %d\n", stats.BatchesEmbedded)
	return nil
}

// runOneIngest opens the backends named by rc.Config and runs one
// ingestion pass. It is shared by 'docretrieve ingest' and the debounced
// re-ingestion loop in 'docretrieve watch'.
func runOneIngest(ctx context.Context, rc *config.RetrievalContext) (*ingest.Stats, error) {
	cfg := rc.Config

	artifact, err := embed.LoadArtifactFile(cfg.Embedder.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("loading embedder artifact %s: %w", cfg.Embedder.ArtifactPath, err)
	}
	embedder, err := embed.NewTFIDFSVDEmbedder(artifact)
	if err != nil {
		return nil, fmt.Errorf("constructing embedder: %w", err)
	}

	vs := store.NewHNSWVectorStore()
	vectorsDir := filepath.Join(cfg.Ingest.DataDir, "vectors")
	if err := vs.Load(vectorsDir); err != nil {
		slog.Warn("no existing vector store to load, starting empty", slog.String("dir", vectorsDir))
	}

	lx, err := store.NewBleveLexicalIndex(cfg.LexicalBackend.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}
	defer lx.Close()

	ms, err := store.NewSQLiteMetadataStore(cfg.MetadataBackend.Path, cfg.MetadataBackend.Driver)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	defer ms.Close()

	orch, err := ingest.NewOrchestrator(rc, embedder, vs, lx, ms, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}

	stats, err := orch.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest run failed: %w", err)
	}
	return stats, nil
}
