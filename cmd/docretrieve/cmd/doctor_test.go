package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfig_WarnsOnNoRoots(t *testing.T) {
	result := checkConfig(0)

	assert.Equal(t, checkWarn, result.Status)
}

func TestCheckConfig_OKWithRoots(t *testing.T) {
	result := checkConfig(3)

	assert.Equal(t, checkOK, result.Status)
	assert.Contains(t, result.Detail, "3")
}

func TestCheckEmbedderArtifact_FailsWhenMissing(t *testing.T) {
	result := checkEmbedderArtifact(filepath.Join(t.TempDir(), "missing.artifact"))

	assert.Equal(t, checkFail, result.Status)
}

func TestCheckEmbedderArtifact_FailsOnEmptyPath(t *testing.T) {
	result := checkEmbedderArtifact("")

	assert.Equal(t, checkFail, result.Status)
}

func TestCheckDataDir_WarnsWhenUnset(t *testing.T) {
	result := checkDataDir("")

	assert.Equal(t, checkWarn, result.Status)
}

func TestCheckDataDir_OKWhenWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	result := checkDataDir(dir)

	require.Equal(t, checkOK, result.Status)
	_, err := os.Stat(dir)
	assert.NoError(t, err, "data dir should have been created")
}

func TestCheckLexicalIndex_OKOnFreshDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lexical")

	result := checkLexicalIndex(dir)

	assert.Equal(t, checkOK, result.Status)
}

func TestCheckMetadataStore_OKOnFreshPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")

	result := checkMetadataStore(path, "sqlite3")

	assert.Equal(t, checkOK, result.Status)
}

func TestCheckMetadataStore_OKWithModernCDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")

	result := checkMetadataStore(path, "modernc")

	assert.Equal(t, checkOK, result.Status)
}
