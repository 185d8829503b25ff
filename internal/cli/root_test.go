package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "taskcoin", cmd.Use)
	assert.Contains(t, cmd.Long, "06:00")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"task", "daily", "shop", "reward", "stats", "consistency",
		"sweep", "import", "export", "check", "watch", "config",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"task", "add"}, {"task", "list"}, {"task", "done"}, {"task", "undo"},
		{"task", "rm"}, {"task", "sub"}, {"task", "edit"}, {"task", "pin"}, {"task", "unpin"},
		{"daily", "add"}, {"daily", "list"}, {"daily", "done"}, {"daily", "undo"},
		{"shop", "list"}, {"shop", "buy"}, {"shop", "add"}, {"shop", "prices"},
		{"shop", "rm"}, {"shop", "hide"}, {"shop", "unhide"},
		{"reward", "add"}, {"reward", "list"}, {"reward", "claim"}, {"reward", "rm"},
		{"config", "show"}, {"config", "path"},
	}
	for _, path := range paths {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], subCmd.Name())
	}
}

func TestRecurringAlias(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"recurring", "list"})
	require.NoError(t, err)
	assert.Equal(t, "daily", subCmd.Parent().Name())
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

	for _, name := range []string{"config", "db", "log-json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestTaskAddFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"task", "add"})
	require.NoError(t, err)

	d := addCmd.Flags().Lookup("difficulty")
	require.NotNil(t, d)
	assert.Equal(t, "d", d.Shorthand)
	assert.Equal(t, "easy", d.DefValue)
	assert.NotNil(t, addCmd.Flags().Lookup("expires-in"))
	assert.NotNil(t, addCmd.Flags().Lookup("subtask"))
}

func TestConsistencyFlags(t *testing.T) {
	cmd := NewRootCommand()
	c, _, err := cmd.Find([]string{"consistency"})
	require.NoError(t, err)

	p := c.Flags().Lookup("period")
	require.NotNil(t, p)
	assert.Equal(t, "p", p.Shorthand)
	assert.Equal(t, "week", p.DefValue)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestExecuteInvalidFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"--format", "xml", "stats"}, &stdout, &stderr)

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "Error [COMMAND]")
	assert.Contains(t, stderr.String(), `invalid format "xml"`)
	assert.Empty(t, stdout.String())
}

func TestExecuteUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"stats", "--bogus"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
}

func TestExecuteWrongArgCount(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := execute(&RootOptions{}, []string{"task", "done"}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "taskcoin task done")
}
