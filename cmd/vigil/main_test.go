package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getProjectRoot returns the absolute path to the project root.
func getProjectRoot(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatal("go.mod not found")
	return ""
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "vigil-test")
	buildCmd := exec.Command("go", "build", "-o", binPath, ".")
	buildCmd.Dir = filepath.Join(getProjectRoot(t), "cmd", "vigil")
	output, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(output))
	return binPath
}

func TestMainHelpFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}

	binPath := buildBinary(t)
	out, err := exec.Command(binPath, "--help").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "vigil")
	assert.Contains(t, string(out), "baseline")
	assert.Contains(t, string(out), "doctor")
}

func TestMainUnknownCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}

	binPath := buildBinary(t)
	out, err := exec.Command(binPath, "unknown-command-xyz").CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(string(out)), "unknown")
}

func TestBaselineFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	binPath := buildBinary(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	out, err := exec.Command(binPath, "baseline", "build", root).CombinedOutput()
	require.NoError(t, err, "baseline build failed: %s", string(out))
	assert.Contains(t, string(out), "1 entries")

	_, err = os.Stat(filepath.Join(root, ".vigil", "baseline.sha256"))
	assert.NoError(t, err)

	out, err = exec.Command(binPath, "verify", root).CombinedOutput()
	require.NoError(t, err, "verify failed: %s", string(out))
	assert.Contains(t, string(out), "OK")

	out, err = exec.Command(binPath, "--json", "info", root).CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "baseline_entries")
}

func TestMainEntryPoint(t *testing.T) {
	_ = main
}
