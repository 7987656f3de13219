package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/treewatch/internal/core"
	"github.com/lumipallolabs/treewatch/internal/model"
)

func TestFormatChange(t *testing.T) {
	sep := string(filepath.Separator)

	assert.Equal(t, "+ a"+sep+"b"+sep, formatChange(core.CreationDetectedEvent{Rel: []string{"a", "b"}, IsDir: true}))
	assert.Equal(t, "- a"+sep+"b.txt", formatChange(core.DeletionDetectedEvent{Rel: []string{"a", "b.txt"}}))
	assert.Equal(t, "watching /w (3 directories)", formatChange(core.WatchStartedEvent{Root: "/w", Dirs: 3}))
	assert.Equal(t, "! 7 changes not shown", formatChange(core.EventsDroppedEvent{Count: 7}))
	assert.Empty(t, formatChange(core.ScanStartedEvent{}))
}

func TestPrintChangesStopsOnClose(t *testing.T) {
	events := make(chan core.Event, 3)
	events <- core.CreationDetectedEvent{Rel: []string{"x"}}
	events <- core.ScanProgressEvent{}
	events <- core.DeletionDetectedEvent{Rel: []string{"x"}}
	close(events)

	var out bytes.Buffer
	require.NoError(t, printChanges(context.Background(), &out, events))
	assert.Equal(t, "+ x\n- x\n", out.String())
}

func TestPrintChangesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	assert.NoError(t, printChanges(ctx, &out, make(chan core.Event)))
	assert.Empty(t, out.String())
}

func TestPrintTreeDepth(t *testing.T) {
	root := &model.Node{Path: "/w", Name: "w", IsDir: true}
	sub := &model.Node{Path: "/w/sub", Name: "sub", IsDir: true}
	root.AppendChild(sub)
	sub.AppendChild(&model.Node{Path: "/w/sub/f", Name: "f", Size: 2048})
	root.ComputeSizes()

	var out bytes.Buffer
	printTree(&out, root, 1)
	assert.Equal(t, "/w/  2.0KB\n  sub/  2.0KB\n", out.String())

	out.Reset()
	printTree(&out, root, 0)
	assert.Contains(t, out.String(), "    f  2.0KB\n")
}

func TestTreeCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main\n"), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"tree", dir})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], dir+"/"))
	assert.Contains(t, out.String(), "src/")
	assert.Contains(t, out.String(), "main.go")
	assert.NotContains(t, out.String(), ".git", "default ignore list applies")
}

func TestTreeCommandRejectsFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	rootCmd.SetArgs([]string{"tree", file})
	rootCmd.SetOut(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	assert.Error(t, rootCmd.Execute())
}
