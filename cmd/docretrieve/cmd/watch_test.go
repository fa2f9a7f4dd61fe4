package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/docretrieve/internal/config"
)

func TestWatchCmd_FailsWithNoRootsConfigured(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	path := filepath.Join(dir, "docretrieve.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	configPath = path
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newWatchCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestWatchCmd_HasDebounceFlag(t *testing.T) {
	cmd := newWatchCmd()

	flag := cmd.Flags().Lookup("debounce")

	require.NotNil(t, flag)
	assert.Equal(t, "2s", flag.DefValue)
}

func TestWatchCmd_FailsOnMissingRootDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Roots = []config.RootConfig{{Path: filepath.Join(dir, "does-not-exist"), App: "claims"}}
	path := filepath.Join(dir, "docretrieve.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	configPath = path
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newWatchCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}
