package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGenCommand_Out(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "local.key")

	cmd := NewKeyGenCommand(testConfig())
	output := captureKeyOutput(t, cmd, []string{"--out", keyPath})

	assert.Equal(t, keyPath+"\n", output)

	key, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestKeyGenCommand_CreatesParentDirs(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "nested", "deeper", "local.key")

	cmd := NewKeyGenCommand(testConfig())
	output := captureKeyOutput(t, cmd, []string{"--out", keyPath})

	assert.Equal(t, keyPath+"\n", output)
	assert.FileExists(t, keyPath)
}

func TestKeyGenCommand_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd := NewKeyGenCommand(testConfig())
	output := captureKeyOutput(t, cmd, []string{})

	want := filepath.Join(home, ".config", "noctivault", "local.key")
	assert.Equal(t, want+"\n", output)
	assert.FileExists(t, want)
}

func TestKeyGenCommand_Permissions(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "keys", "local.key")

	cmd := NewKeyGenCommand(testConfig())
	captureKeyOutput(t, cmd, []string{"--out", keyPath})

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(keyPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestKeyGenCommand_DistinctKeys(t *testing.T) {
	dir := t.TempDir()

	first := NewKeyGenCommand(testConfig())
	captureKeyOutput(t, first, []string{"--out", filepath.Join(dir, "a.key")})
	second := NewKeyGenCommand(testConfig())
	captureKeyOutput(t, second, []string{"--out", filepath.Join(dir, "b.key")})

	a, err := os.ReadFile(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.key"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKeyCommand_WiresGen(t *testing.T) {
	cmd := NewKeyCommand(testConfig())

	names := make([]string, 0, 1)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "gen")
}

// captureKeyOutput captures command output for testing key subcommands
func captureKeyOutput(t *testing.T, cmd *cobra.Command, args []string) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		_ = w.Close()
		os.Stdout = old
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		t.Logf("Command output before error: %s", buf.String())
		require.NoError(t, err)
	}

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	return buf.String()
}
