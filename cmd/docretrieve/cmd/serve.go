package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/httpapi"
	"github.com/aman-cerp/docretrieve/internal/search"
	"github.com/aman-cerp/docretrieve/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the hybrid retrieval HTTP API",
		Long: `Load the ingested vector, lexical, and metadata backends and serve the
GET /retrieve, GET /neighbors, and POST /by_ids endpoints (spec §6).

The vector and lexical backends must already have been populated by a
prior 'docretrieve ingest' run.`,
		Example: `  # Serve using the config file's host/port
  docretrieve serve

  # Override the listen address
  docretrieve serve --host 127.0.0.1 --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "override the configured listen host")
	cmd.Flags().IntVar(&port, "port", 0, "override the configured listen port")
	return cmd
}

func runServe(cmd *cobra.Command, hostOverride string, portOverride int) error {
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
	vectorsDir := filepath.Join(cfg.Ingest.DataDir, "vectors")
	if err := vs.Load(vectorsDir); err != nil {
		slog.Warn("no persisted vector store found, serving an empty dense index", slog.String("dir", vectorsDir))
	}

	lx, err := store.NewBleveLexicalIndex(cfg.LexicalBackend.IndexDir)
	if err != nil {
		return fmt.Errorf("opening lexical index: %w", err)
	}
	defer lx.Close()

	ms, err := store.NewSQLiteMetadataStore(cfg.MetadataBackend.Path, cfg.MetadataBackend.Driver)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer ms.Close()

	planner := search.NewPlanner(
		search.NewVectorDenseAdapter(vs),
		search.NewLexicalSparseAdapter(lx),
		vs,
		embedder,
	)

	host := cfg.Server.Host
	if hostOverride != "" {
		host = hostOverride
	}
	port := cfg.Server.Port
	if portOverride != 0 {
		port = portOverride
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	router := httpapi.NewRouter(planner, ms, slog.Default())
	srv := &http.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("docretrieve listening", slog.String("addr", addr))
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("docretrieve shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}
