package baseline_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigil-project/vigil/internal/baseline"
)

func TestBuildSeedsIndex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.txt"), []byte("world"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.log"), []byte("nope"), 0644))

	ix, err := baseline.Load(filepath.Join(root, "baseline.sha256"))
	require.NoError(t, err)

	match := func(rel string) bool { return strings.HasSuffix(rel, ".txt") }
	n, err := baseline.Build(root, ix, match, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, ix.Len())
	h, ok := ix.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, hashHello, string(h))
	h, ok = ix.Lookup("docs/b.txt")
	require.True(t, ok)
	assert.Equal(t, hashWorld, string(h))
	_, ok = ix.Lookup("skip.log")
	assert.False(t, ok)
}

func TestBuildPersistsCompacted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	path := filepath.Join(root, "baseline.sha256")
	ix, err := baseline.Load(path)
	require.NoError(t, err)

	_, err = baseline.Build(root, ix, func(rel string) bool { return strings.HasSuffix(rel, ".txt") }, nil)
	require.NoError(t, err)

	reloaded, err := baseline.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}
