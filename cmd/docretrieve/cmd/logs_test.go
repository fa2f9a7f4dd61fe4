package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogsCmd_FailsWhenNoLogFileExists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newLogsCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--source", "server"})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestLogsCmd_RejectsBadPattern(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newLogsCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--source", "server", "--pattern", "("})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestLogsCmd_HasExpectedFlags(t *testing.T) {
	cmd := newLogsCmd()

	assert.NotNil(t, cmd.Flags().Lookup("source"))
	assert.NotNil(t, cmd.Flags().Lookup("lines"))
	assert.NotNil(t, cmd.Flags().Lookup("follow"))
	assert.NotNil(t, cmd.Flags().Lookup("level"))
	assert.NotNil(t, cmd.Flags().Lookup("pattern"))
}
