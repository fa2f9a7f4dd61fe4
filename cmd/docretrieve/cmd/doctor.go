package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/store"
)

type checkStatus string

const (
	checkOK   checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local configuration and backends",
		Long: `Check that the configured embedder artifact, lexical index directory,
metadata database, and data directory are present and usable before
running 'docretrieve ingest' or 'docretrieve serve'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

func runDoctor(cmd *cobra.Command) error {
	rc, err := loadRetrievalContext()
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ config: %s\n", err)
		return fmt.Errorf("configuration is invalid")
	}
	cfg := rc.Config

	results := []checkResult{checkConfig(len(cfg.Roots))}
	results = append(results, checkEmbedderArtifact(cfg.Embedder.ArtifactPath))
	results = append(results, checkLexicalIndex(cfg.LexicalBackend.IndexDir))
	results = append(results, checkMetadataStore(cfg.MetadataBackend.Path, cfg.MetadataBackend.Driver))
	results = append(results, checkDataDir(cfg.Ingest.DataDir))

	out := cmd.OutOrStdout()
	worst := checkOK
	for _, r := range results {
		symbol := "✓"
		switch r.Status {
		case checkWarn:
			symbol = "!"
			if worst == checkOK {
				worst = checkWarn
			}
		case checkFail:
			symbol = "✗"
			worst = checkFail
		}
		fmt.Fprintf(out, "%s %-18s %s\n", symbol, r.Name, r.Detail)
	}

	if worst == checkFail {
		return fmt.Errorf("doctor found critical issues")
	}
	return nil
}

func checkConfig(rootCount int) checkResult {
	if rootCount == 0 {
		return checkResult{Name: "config", Status: checkWarn, Detail: "loaded, but no roots are configured"}
	}
	return checkResult{Name: "config", Status: checkOK, Detail: fmt.Sprintf("loaded, %d root(s) configured", rootCount)}
}

func checkEmbedderArtifact(path string) checkResult {
	if path == "" {
		return checkResult{Name: "embedder_artifact", Status: checkFail, Detail: "embedder.artifact_path is not set"}
	}
	if _, err := os.Stat(path); err != nil {
		return checkResult{Name: "embedder_artifact", Status: checkFail, Detail: fmt.Sprintf("not found at %s", path)}
	}
	artifact, err := embed.LoadArtifactFile(path)
	if err != nil {
		return checkResult{Name: "embedder_artifact", Status: checkFail, Detail: fmt.Sprintf("unreadable: %s", err)}
	}
	return checkResult{Name: "embedder_artifact", Status: checkOK, Detail: fmt.Sprintf("%s, dim=%d, vocab=%d", path, artifact.Dim, artifact.VocabSize)}
}

func checkLexicalIndex(dir string) checkResult {
	idx, err := store.NewBleveLexicalIndex(dir)
	if err != nil {
		return checkResult{Name: "lexical_index", Status: checkFail, Detail: fmt.Sprintf("cannot open %s: %s", dir, err)}
	}
	idx.Close()
	return checkResult{Name: "lexical_index", Status: checkOK, Detail: dir}
}

func checkMetadataStore(path, driver string) checkResult {
	ms, err := store.NewSQLiteMetadataStore(path, driver)
	if err != nil {
		return checkResult{Name: "metadata_store", Status: checkFail, Detail: fmt.Sprintf("cannot open %s: %s", path, err)}
	}
	ms.Close()
	return checkResult{Name: "metadata_store", Status: checkOK, Detail: fmt.Sprintf("%s (driver=%s)", path, driver)}
}

func checkDataDir(dir string) checkResult {
	if dir == "" {
		return checkResult{Name: "data_dir", Status: checkWarn, Detail: "ingest.data_dir is not set; vector index will not persist across runs"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return checkResult{Name: "data_dir", Status: checkFail, Detail: fmt.Sprintf("cannot create %s: %s", dir, err)}
	}
	probe := filepath.Join(dir, ".docretrieve-doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return checkResult{Name: "data_dir", Status: checkFail, Detail: fmt.Sprintf("not writable: %s", err)}
	}
	os.Remove(probe)
	return checkResult{Name: "data_dir", Status: checkOK, Detail: dir}
}
