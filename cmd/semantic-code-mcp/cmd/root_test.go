package cmd

import (
	"bytes"
	"strings"
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
	assert.Contains(t, output, "semantic-code-mcp", "help should mention program name")
	assert.Contains(t, output, "Usage:", "help should show usage")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "semantic-code-mcp version")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "mcp")
	assert.Contains(t, names, "index")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "cache")
	assert.Contains(t, names, "version")
}

func TestRootCmd_HasOfflineFlag(t *testing.T) {
	cmd := NewRootCmd()

	flag := cmd.Flags().Lookup("offline")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCmd_HasDataDirAndLogFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"root", "data-dir", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing persistent flag %q", name)
	}
}

func TestMCPCmd_HasServeSubcommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"mcp", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.True(t, strings.Contains(output, "serve"), "mcp help should mention serve subcommand")
}

func TestIndexCmd_ShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"index", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "index")
}

func TestSearchCmd_ShowsHelp(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"search", "--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "search")
}

func TestSearchCmd_RequiresQueryArg(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"search"})

	err := cmd.Execute()

	assert.Error(t, err, "search with no query argument should fail")
}

func TestCacheCmd_HasInfoAndStatsSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var cacheNames []string
	for _, sub := range cmd.Commands() {
		if sub.Name() == "cache" {
			for _, s := range sub.Commands() {
				cacheNames = append(cacheNames, s.Name())
			}
		}
	}

	assert.Contains(t, cacheNames, "info")
	assert.Contains(t, cacheNames, "stats")
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}
