package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitCmd_WritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docretrieve.yaml")
	cmd := newConfigInitCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()

	require.NoError(t, err)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "vector_backend")
}

func TestConfigInitCmd_RefusesToOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docretrieve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing: true\n"), 0o644))

	cmd := newConfigInitCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{path})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestConfigInitCmd_OverwritesWithForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docretrieve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing: true\n"), 0o644))

	cmd := newConfigInitCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{path, "--force"})

	err := cmd.Execute()

	require.NoError(t, err)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "vector_backend")
}

func TestConfigShowCmd_PrintsYAMLByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docretrieve.yaml")
	configPath = path
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newConfigShowCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "vector_backend")
}

func TestConfigShowCmd_PrintsJSONWhenRequested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docretrieve.yaml")
	configPath = path
	defer func() { configPath = "docretrieve.yaml" }()

	cmd := newConfigShowCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"vector_backend"`)
}
