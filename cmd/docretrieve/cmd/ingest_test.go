package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/docretrieve/internal/config"
	"github.com/aman-cerp/docretrieve/internal/embed"
)

// writeTestArtifact writes a tiny, valid embedder artifact to path so
// cmd tests can exercise the real embed.TFIDFSVDEmbedder without a
// pretrained model.
func writeTestArtifact(t *testing.T, path string) {
	t.Helper()
	vocab := []string{"refund", "policy", "escalation"}
	artifact := &embed.Artifact{
		Algo:          embed.AlgoTFIDFSVD,
		VocabSize:     len(vocab),
		Dim:           2,
		SVDComponents: 2,
		Vocabulary:    vocab,
		IDF:           []float32{1.0, 1.0, 1.0},
		Projection: [][]float32{
			{1, 0},
			{0, 1},
			{1, 1},
		},
	}
	require.NoError(t, embed.SaveArtifactFile(path, artifact))
}

// writeTestConfig builds a minimal, valid YAML config rooted at dir and
// returns its path.
func writeTestConfig(t *testing.T, dir, rootPath, artifactPath string) string {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Roots = []config.RootConfig{{Path: rootPath, App: "claims", Hierarchy: config.HierarchyFlat}}
	cfg.IncludeExtensions = []string{".md"}
	cfg.Ingest.DataDir = filepath.Join(dir, "data")
	cfg.Ingest.LockPath = ""
	cfg.LexicalBackend.IndexDir = filepath.Join(dir, "lexical")
	cfg.MetadataBackend.Path = filepath.Join(dir, "metadata.db")
	cfg.Embedder.ArtifactPath = artifactPath

	path := filepath.Join(dir, "docretrieve.yaml")
	require.NoError(t, cfg.WriteYAML(path))
	return path
}

func TestIngestCmd_PopulatesBackends(t *testing.T) {
	dir := t.TempDir()
	rootDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(rootDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "a.md"), []byte("# Refund policy\n\nOur refund policy allows escalation within 30 days.\n"), 0o644))

	artifactPath := filepath.Join(dir, "embedder.artifact")
	writeTestArtifact(t, artifactPath)

	configPath = writeTestConfig(t, dir, rootDir, artifactPath)
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newIngestCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"ChunksEmitted"`)

	_, statErr := os.Stat(filepath.Join(dir, "metadata.db"))
	assert.NoError(t, statErr, "metadata db should have been created")
}

func TestIngestCmd_FailsOnMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	rootDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(rootDir, 0o755))

	configPath = writeTestConfig(t, dir, rootDir, filepath.Join(dir, "missing.artifact"))
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newIngestCmd()
	cmd.SetOut(new(bytes.Buffer))

	err := cmd.Execute()

	assert.Error(t, err)
}
