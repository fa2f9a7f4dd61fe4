package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_FailsOnMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	rootDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(rootDir, 0o755))

	configPath = writeTestConfig(t, dir, rootDir, filepath.Join(dir, "missing.artifact"))
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newServeCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestServeCmd_HasHostAndPortFlags(t *testing.T) {
	cmd := newServeCmd()

	assert.NotNil(t, cmd.Flags().Lookup("host"))
	assert.NotNil(t, cmd.Flags().Lookup("port"))
}
