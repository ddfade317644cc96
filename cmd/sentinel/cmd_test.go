package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func setupEnv(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "sentinel.db")
	t.Setenv("SENTINEL_DB_PATH", db)
	t.Setenv("SENTINEL_PROVIDER", "mock")
	t.Setenv("SENTINEL_REVEAL_INTERVAL", "1ms")
	t.Setenv("SENTINEL_LOG_LEVEL", "error")
	return db
}

var idPattern = regexp.MustCompile(`with id (\S+)`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	registered := make(map[string]bool)
	for _, cmd := range newRootCmd().Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range []string{"chat", "agents", "knowledge", "memory", "project"} {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestAgentsAddAndList(t *testing.T) {
	setupEnv(t)

	out := run(t, "", "agents", "add", "--name", "Halden", "--rank", "CMDR", "--faction", "Core")
	assert.Contains(t, out, "Created Halden (Commander)")

	out = run(t, "", "agents", "list")
	assert.Contains(t, out, "Halden")
	assert.Contains(t, out, "CMDR")
}

func TestAgentsAddRejectsUnknownRank(t *testing.T) {
	setupEnv(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"agents", "add", "--name", "X", "--rank", "Admiral"})
	assert.Error(t, root.Execute())
}

func TestChatSessionWithExport(t *testing.T) {
	setupEnv(t)
	id := createdID(t, run(t, "", "agents", "add", "--name", "Vega", "--rank", "Major"))
	export := filepath.Join(t.TempDir(), "transcript.txt")

	out := run(t, "Status report\n/promote Ops\n/quit\n", "chat", "--agent", id, "--export", export)
	assert.Contains(t, out, "Connected to Vega (Major)")
	assert.Contains(t, out, "Vega: Acknowledged.")
	assert.Contains(t, out, `Promoted to global knowledge as "Acknowledged."`)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), "OPERATOR: Status report")
	assert.Contains(t, string(data), "Vega: Acknowledged.")

	out = run(t, "", "knowledge", "list")
	assert.Contains(t, out, "architect")

	out = run(t, "", "memory", "purge", "--agent", id)
	assert.Contains(t, out, "Purged 1 memory entries")
}

func TestProjectAddAndBrief(t *testing.T) {
	setupEnv(t)
	id := createdID(t, run(t, "", "project", "add", "--name", "Ark", "--objective", "Preserve knowledge", "--principle", "Integrity"))

	out := run(t, "", "project", "brief", id)
	assert.Contains(t, out, "Ark")

	out = run(t, "", "project", "list")
	assert.Contains(t, out, "true")
}
