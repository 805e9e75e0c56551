package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args against a fresh TAKAX_HOME.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("TAKAX_HOME", home)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TAKAX_REDIS_ADDR", "")
	return home
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "takax dev\n", out)
}

func TestConfigInit(t *testing.T) {
	home := withHome(t)

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")
	_, err = os.Stat(filepath.Join(home, "config.toml"))
	require.NoError(t, err)

	_, err = run(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestTaskCreate_AndReconcile(t *testing.T) {
	withHome(t)

	out, err := run(t, "task", "create", "--title", "Visit partner", "--reward", "2.5", "--type", "website_visit")
	require.NoError(t, err)
	assert.Contains(t, out, `Task "Visit partner" created`)
	assert.Contains(t, out, "reward 2.50")

	_, err = run(t, "task", "create", "--title", "Broken", "--reward", "lots")
	assert.ErrorContains(t, err, "invalid --reward")

	out, err = run(t, "ledger", "reconcile")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "0 users reconciled"), out)
}

func TestUserBan_UnknownUser(t *testing.T) {
	withHome(t)
	_, err := run(t, "user", "ban", "424242", "--reason", "spam")
	assert.ErrorContains(t, err, "User not found")
}
