package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/search"
	"github.com/aman-cerp/docretrieve/internal/store"
)

func newQueryCmd() *cobra.Command {
	var (
		appName   string
		topK      int
		pool      int
		signal    string
		must      []string
		minHits   int
		proximity int
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a single retrieval query against the ingested backends",
		Long: `Run the same hybrid dense/sparse retrieval pipeline 'docretrieve serve'
exposes over HTTP, against a single ad-hoc query, without starting a
server (spec §4.5-§4.10).`,
		Args: cobra.ExactArgs(1),
		Example: `  docretrieve query "refund policy" --app-name claims --top-k 5

  docretrieve query "escalation path" --signal sparse --must escalation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], appName, topK, pool, signal, must, minHits, proximity, jsonOut)
		},
	}

	cmd.Flags().StringVar(&appName, "app-name", "claims", "app to query")
	cmd.Flags().IntVar(&topK, "top-k", 8, "number of results to return")
	cmd.Flags().IntVar(&pool, "pool", 0, "candidate pool size before fusion (0 = planner default)")
	cmd.Flags().StringVar(&signal, "signal", "hybrid", "retrieval signal: hybrid, dense, or sparse")
	cmd.Flags().StringSliceVar(&must, "must", nil, "required tokens")
	cmd.Flags().IntVar(&minHits, "min-hits", 0, "minimum required-token hits")
	cmd.Flags().IntVar(&proximity, "proximity", 0, "phrase proximity window")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full Response as JSON")

	return cmd
}

func runQuery(cmd *cobra.Command, text, appName string, topK, pool int, signal string, must []string, minHits, proximity int, jsonOut bool) error {
	rc, err := loadRetrievalContext()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := rc.Config

	artifact, err := embed.LoadArtifactFile(cfg.Embedder.ArtifactPath)
	if err != nil {
		return fmt.Errorf("loading embedder artifact %s: %w", cfg.Embedder.ArtifactPath, err)
	}
	embedder, err := embed.NewTFIDFSVDEmbedder(artifact)
	if err != nil {
		return fmt.Errorf("constructing embedder: %w", err)
	}

	vs := store.NewHNSWVectorStore()
	if err := vs.Load(filepath.Join(cfg.Ingest.DataDir, "vectors")); err != nil {
		slog.Warn("no persisted vector store found, querying an empty dense index")
	}

	lx, err := store.NewBleveLexicalIndex(cfg.LexicalBackend.IndexDir)
	if err != nil {
		return fmt.Errorf("opening lexical index: %w", err)
	}
	defer lx.Close()

	planner := search.NewPlanner(
		search.NewVectorDenseAdapter(vs),
		search.NewLexicalSparseAdapter(lx),
		vs,
		embedder,
	)

	if pool <= 0 {
		pool = 50
		if signal == string(search.SignalHybrid) {
			pool = 80
		}
	}

	resp, err := planner.Retrieve(cmd.Context(), search.Query{
		Text:      text,
		App:       appName,
		TopK:      topK,
		Pool:      pool,
		Signal:    search.Signal(signal),
		Must:      must,
		MinHits:   minHits,
		Proximity: proximity,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s  (%s#%d, coverage=%.2f)\n", i+1, r.ID, r.Metadata.SourcePath, r.Metadata.SeqIdx, r.Debug.Coverage)
		preview := r.Document
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Fprintf(out, "   %s\n", strings.ReplaceAll(preview, "\n", " "))
	}
	fmt.Fprintf(out, "\n%d results (dense_available=%v, sparse_available=%v)\n",
		len(resp.Results), resp.Debug.DenseAvailable, resp.Debug.SparseAvailable)
	return nil
}
