package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/model"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("data"), 0644))
	}
}

func TestWalkerScan(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "subdir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "file1.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "subdir", "file2.txt"), []byte("world!"), 0644))

	w := NewWalker(4, nil)
	root, err := w.Scan(context.Background(), tmp)
	require.NoError(t, err)
	require.True(t, root.IsDir)

	// On Windows: logical size (11 bytes)
	// On Unix: actual disk blocks
	root.ComputeSizes()
	assert.NotZero(t, root.TotalSize())

	require.Len(t, root.Children(), 2)
	assert.Equal(t, "file1.txt", root.Children()[0].Name)
	assert.Equal(t, "subdir", root.Children()[1].Name)

	sub := root.Children()[1]
	require.Len(t, sub.Children(), 1)
	parent, ok := sub.Children()[0].Parent()
	require.True(t, ok)
	assert.Same(t, sub, parent)

	p := w.Snapshot()
	assert.Equal(t, int64(2), p.FilesScanned)
	assert.Equal(t, int64(1), p.DirsScanned)
}

func TestWalkerScanSkipsIgnored(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, "keep.txt", "node_modules/pkg/index.js", "src/.git/HEAD", "src/main.go")

	m, err := ignore.Compile([]string{"node_modules", ".git"})
	require.NoError(t, err)

	root, err := NewWalker(2, m).Scan(context.Background(), tmp)
	require.NoError(t, err)

	var names []string
	root.Walk(func(n *model.Node, depth int) bool {
		if depth > 0 {
			names = append(names, n.Name)
		}
		return true
	})
	assert.Equal(t, []string{"keep.txt", "src", "main.go"}, names)
}

func TestWalkerScanCancelled(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, "a/b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWalker(1, nil).Scan(ctx, tmp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntriesParentsFirst(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, "x/y/z.txt", "x/a.txt", "x-b/c.txt", "skip/me.txt")

	m, err := ignore.Compile([]string{"skip"})
	require.NoError(t, err)

	entries, err := Entries(context.Background(), tmp, m)
	require.NoError(t, err)

	seen := make(map[string]bool)
	var rels []string
	for _, e := range entries {
		rel := filepath.ToSlash(filepath.Join(e.Rel...))
		if parent := filepath.ToSlash(filepath.Dir(filepath.Join(e.Rel...))); parent != "." {
			assert.True(t, seen[parent], "%s listed before its parent", rel)
		}
		seen[rel] = true
		rels = append(rels, rel)
		assert.Equal(t, filepath.Join(tmp, filepath.FromSlash(rel)), e.Path)
	}
	assert.ElementsMatch(t, []string{"x", "x/y", "x/y/z.txt", "x/a.txt", "x-b", "x-b/c.txt"}, rels)
}

func TestEntriesEmptyDir(t *testing.T) {
	entries, err := Entries(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
