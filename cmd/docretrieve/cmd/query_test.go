package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/docretrieve/internal/search"
)

func TestQueryCmd_ReturnsResultsAfterIngest(t *testing.T) {
	dir := t.TempDir()
	rootDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(rootDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "a.md"), []byte("# Refund policy\n\nOur refund policy allows escalation within 30 days.\n"), 0o644))

	artifactPath := filepath.Join(dir, "embedder.artifact")
	writeTestArtifact(t, artifactPath)

	configPath = writeTestConfig(t, dir, rootDir, artifactPath)
	defer func() { configPath = "docretrieve.yaml" }()

	ingestCmd := newIngestCmd()
	ingestCmd.SetOut(new(bytes.Buffer))
	require.NoError(t, ingestCmd.Execute())

	queryCmd := newQueryCmd()
	buf := new(bytes.Buffer)
	queryCmd.SetOut(buf)
	queryCmd.SetArgs([]string{"refund escalation", "--signal", "sparse", "--json"})

	err := queryCmd.Execute()

	require.NoError(t, err)
	var resp search.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.NotEmpty(t, resp.Results)
}

func TestQueryCmd_RequiresArgument(t *testing.T) {
	cmd := newQueryCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}
