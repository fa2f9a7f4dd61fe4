package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "docretrieve")
	assert.Contains(t, output, "Usage:")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "watch")
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "query")
	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "config")
	assert.Contains(t, names, "logs")
	assert.Contains(t, names, "version")
}

func TestRootCmd_HasConfigFlag(t *testing.T) {
	cmd := NewRootCmd()

	flag := cmd.PersistentFlags().Lookup("config")

	require.NotNil(t, flag)
	assert.Equal(t, "docretrieve.yaml", flag.DefValue)
}

func TestRootCmd_DoctorRunsAmbientSetupAndLoadsConfig(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(oldDir) }()

	require.NoError(t, os.Setenv("HOME", tmpDir))
	defer os.Unsetenv("HOME")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"doctor"})

	// Given: no embedder artifact exists at the default path
	err := cmd.Execute()

	// Then: doctor reports the missing artifact as a failure rather than
	// crashing, proving the root command wired logging + config loading.
	require.Error(t, err)
	assert.Contains(t, buf.String(), "embedder_artifact")
	_, statErr := os.Stat(filepath.Join(tmpDir, ".docretrieve", "logs"))
	assert.NoError(t, statErr, "log directory should have been created")
}
