package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskcoin/internal/clock"
	"github.com/roach88/taskcoin/internal/ledger"
)

// testCLI runs commands against one store in a temp dir with a fixed clock
// and sequential ids shared across invocations.
type testCLI struct {
	t      *testing.T
	dir    string
	db     string
	config string
	now    time.Time
	ids    ledger.IDGenerator
}

func newTestCLI(t *testing.T) *testCLI {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("timezone = \"UTC\"\n"), 0o644))
	return &testCLI{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "data", "taskcoin.json"),
		config: cfg,
		now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		ids:    ledger.NewSequentialIDs("id"),
	}
}

func (c *testCLI) run(args ...string) (code int, stdout, stderr string) {
	c.t.Helper()
	opts := &RootOptions{Clock: clock.Fixed(c.now), IDs: c.ids}
	full := append([]string{"--db", c.db, "--config", c.config}, args...)
	var out, errOut bytes.Buffer
	code = execute(opts, full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c *testCLI) ok(args ...string) string {
	c.t.Helper()
	code, stdout, stderr := c.run(args...)
	require.Equal(c.t, ExitSuccess, code, "args %v\nstdout: %s\nstderr: %s", args, stdout, stderr)
	return stdout
}

func decodeData(t *testing.T, stdout string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestCLI_TaskLifecycle(t *testing.T) {
	c := newTestCLI(t)

	out := c.ok("task", "add", "Laundry")
	// The first session seeds three default rewards.
	assert.Equal(t, "Added task id-4: Laundry (easy, 10 coins)\n", out)
	assert.FileExists(t, c.db)

	out = c.ok("task", "list")
	assert.Contains(t, out, "id-4")
	assert.Contains(t, out, "Laundry")

	out = c.ok("task", "done", "id-4")
	assert.Equal(t, "Completed Laundry: +10 coins. Balance: 10\n", out)

	out = c.ok("task", "list", "--history")
	assert.Contains(t, out, "Laundry")

	out = c.ok("task", "undo", "id-4")
	assert.Equal(t, "Reopened Laundry: -10 coins. Balance: 0\n", out)

	var stats statsView
	decodeData(t, c.ok("--format", "json", "stats"), &stats)
	assert.Equal(t, 0, stats.Stats.CurrentBalance)
	assert.Equal(t, 1, stats.Pending)
}

func TestCLI_UnknownIDIsCommandError(t *testing.T) {
	c := newTestCLI(t)
	c.ok("task", "add", "Laundry")

	code, _, stderr := c.run("task", "done", "nope")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `no task matches "nope"`)
}

func TestCLI_InsufficientFunds(t *testing.T) {
	c := newTestCLI(t)
	c.ok("stats")

	code, stdout, _ := c.run("--format", "json", "reward", "claim", "id-1")
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(ledger.ErrCodeInsufficientFunds), resp.Error.Code)
}

func TestCLI_InvalidDifficulty(t *testing.T) {
	c := newTestCLI(t)

	code, _, _ := c.run("task", "add", "Laundry", "-d", "legendary")
	assert.NotEqual(t, ExitSuccess, code)

	out := c.ok("task", "list")
	assert.Equal(t, "No active tasks.\n", out)
}

func TestCLI_ShopBuyRaisesPrice(t *testing.T) {
	c := newTestCLI(t)
	c.ok("task", "add", "Big job", "-d", "epic")
	c.ok("task", "done", "id-4")

	out := c.ok("shop", "buy", "preset-coffee")
	assert.Contains(t, out, "for 40 coins")
	assert.Contains(t, out, "Balance: 60")

	out = c.ok("shop", "prices", "preset-coffee", "-n", "2")
	assert.Contains(t, out, "1 bought today")
	assert.Contains(t, out, "2         50")
}

func TestCLI_ExportImportRoundTrip(t *testing.T) {
	c := newTestCLI(t)
	c.ok("task", "add", "Laundry")
	c.ok("task", "done", "id-4")

	snapshot := filepath.Join(c.dir, "export.json")
	c.ok("export", "-o", snapshot)
	require.FileExists(t, snapshot)

	other := newTestCLI(t)
	out := other.ok("import", snapshot)
	assert.Contains(t, out, "Snapshot imported.")

	var stats statsView
	decodeData(t, other.ok("--format", "json", "stats"), &stats)
	assert.Equal(t, 10, stats.Stats.CurrentBalance)
}

func TestCLI_ImportRejectsInvalidDocument(t *testing.T) {
	c := newTestCLI(t)
	bad := filepath.Join(c.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tasks": "nope"}`), 0o644))

	code, _, stderr := c.run("import", bad)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "import rejected")
}

func TestCLI_ExportYAML(t *testing.T) {
	c := newTestCLI(t)
	c.ok("task", "add", "Laundry")

	out := c.ok("export", "--as", "yaml")
	assert.Contains(t, out, "title: Laundry")

	code, _, _ := c.run("export", "--as", "xml")
	assert.Equal(t, ExitCommandError, code)
}

func TestCLI_DailyAddAndComplete(t *testing.T) {
	c := newTestCLI(t)
	c.ok("daily", "add", "Stretch")

	out := c.ok("daily", "list")
	assert.Contains(t, out, "Stretch")
	assert.Contains(t, out, "due")

	out = c.ok("daily", "done", "id-4")
	assert.Contains(t, out, "+10 coins")

	// Once done it is no longer due today.
	code, _, _ := c.run("daily", "done", "id-4")
	assert.Equal(t, ExitCommandError, code)
}

func TestCLI_ConsistencyRejectsUnknownPeriod(t *testing.T) {
	c := newTestCLI(t)
	code, _, stderr := c.run("consistency", "--period", "fortnight")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "--period")
}

func TestCLI_ConfigShow(t *testing.T) {
	c := newTestCLI(t)
	out := c.ok("config", "show")
	assert.Contains(t, out, `timezone = "UTC"`)
	assert.Contains(t, out, `backend = "file"`)
	assert.Contains(t, out, "taskcoin.json")
}
