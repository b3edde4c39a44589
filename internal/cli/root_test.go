package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with the given arguments and captures
// both output streams.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "factstream", cmd.Use)
	assert.Contains(t, cmd.Long, "timestamp-ordered")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"append", "cat", "latest", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	streamFlag := cmd.PersistentFlags().Lookup("stream")
	require.NotNil(t, streamFlag)
	assert.Equal(t, "s", streamFlag.Shorthand)
	assert.Equal(t, "facts.stream", streamFlag.DefValue)

	timeoutFlag := cmd.PersistentFlags().Lookup("lock-timeout")
	require.NotNil(t, timeoutFlag)
	assert.Equal(t, "0s", timeoutFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	_, _, err := runCLI(t, "--format", "xml", "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestEmptyStreamPathRejected(t *testing.T) {
	_, _, err := runCLI(t, "--stream", "", "latest")
	require.Error(t, err)
}
