package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/model"
	"github.com/lumipallolabs/treewatch/internal/treesync"
)

func TestNewRejectsFileRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	src := newFakeSource()
	_, err := New(file, nopTree{}, Options{Source: src})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nopTree{}, Options{Source: newFakeSource()})
	assert.Error(t, err)
}

func TestNewClosesSourceWhenRootCannotBeWatched(t *testing.T) {
	root := t.TempDir()
	src := newFakeSource()
	src.failAdd[root] = errors.New("no watches left")

	w, err := New(root, nopTree{}, Options{Source: src})
	require.Error(t, err)
	assert.Nil(t, w)
	assert.True(t, src.isClosed())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(t.TempDir(), nopTree{}, Options{Backend: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrBackendUnsupported)
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t, Options{})
	w := h.watcher

	assert.Equal(t, StateIdle, w.State())
	assert.Equal(t, h.root, w.Root())
	assert.Equal(t, 1, w.WatchedDirs())

	require.NoError(t, w.Start())
	assert.Equal(t, StateRunning, w.State())
	assert.ErrorIs(t, w.Start(), ErrAlreadyStarted)

	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
	assert.True(t, h.source.isClosed())

	require.NoError(t, w.Stop(), "stop is idempotent")
	assert.ErrorIs(t, w.Start(), ErrStopped)
}

func TestStopBeforeStart(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.watcher.Stop())
	assert.Equal(t, StateStopped, h.watcher.State())
	assert.True(t, h.source.isClosed())
	assert.ErrorIs(t, h.watcher.Start(), ErrStopped)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestCreateDeleteScenario(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.mkdir(t, "a")
	h.source.push(root, created("a"))
	c := h.next(t)
	assert.Equal(t, Created, c.Kind)
	assert.Equal(t, "a", relString(c))
	assert.True(t, c.IsDir)
	assert.Equal(t, []string{"a"}, h.paths())
	assert.Equal(t, 2, h.watcher.WatchedDirs())

	// Events for the new directory arrive on its own handle
	h.write(t, "a/b.txt")
	h.source.push(h.source.handle(t, h.path("a")), created("b.txt"))
	c = h.next(t)
	assert.Equal(t, "a/b.txt", relString(c))
	assert.False(t, c.IsDir)
	assert.Equal(t, []string{"a", "a/b.txt"}, h.paths())

	h.source.push(h.source.handle(t, h.path("a")), deleted("b.txt"))
	c = h.next(t)
	assert.Equal(t, Deleted, c.Kind)
	assert.Equal(t, []string{"a"}, h.paths())

	h.source.push(root, deleted("a"))
	c = h.next(t)
	assert.Equal(t, Deleted, c.Kind)
	assert.True(t, c.IsDir)
	assert.Empty(t, h.paths())
	assert.Equal(t, 1, h.watcher.WatchedDirs())
	assert.Equal(t, []string{h.path("a")}, h.source.removedPaths())
}

func TestDeletingDirectoryReleasesDescendantWatches(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.mkdir(t, "x/y/z")
	h.source.push(root, created("x"))
	// x, then the catch-up finds x/y and x/y/z
	for range 3 {
		h.next(t)
	}
	assert.Equal(t, 4, h.watcher.WatchedDirs())

	h.source.push(root, deleted("x"))
	h.next(t)
	assert.Empty(t, h.paths())
	assert.Equal(t, 1, h.watcher.WatchedDirs())
	assert.ElementsMatch(t, []string{h.path("x"), h.path("x/y"), h.path("x/y/z")}, h.source.removedPaths())
}

func TestMissingRemovalIsNoop(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.source.push(root, deleted("never-existed"), created("marker"))
	c := h.next(t)
	assert.Equal(t, "marker", relString(c))
	assert.Equal(t, []string{"marker"}, h.paths())
}

func TestOverflowIsSkipped(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.source.push(0, ChangeEvent{Kind: Overflow})
	h.source.push(h.source.handle(t, h.root), ChangeEvent{Kind: Overflow}, created("after"))

	c := h.next(t)
	assert.Equal(t, "after", relString(c))
	assert.Equal(t, []string{"after"}, h.paths())
}

func TestUnknownHandleIsDropped(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.source.push(Handle(999), created("ghost"))
	h.source.push(h.source.handle(t, h.root), created("real"))

	c := h.next(t)
	assert.Equal(t, "real", relString(c))
	assert.Equal(t, []string{"real"}, h.paths())
}

func TestEventsWithinBatchApplyInOrder(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.source.push(h.source.handle(t, h.root), created("tmp"), deleted("tmp"), created("tmp2"))

	assert.Equal(t, Created, h.next(t).Kind)
	assert.Equal(t, Deleted, h.next(t).Kind)
	assert.Equal(t, "tmp2", relString(h.next(t)))
	assert.Equal(t, []string{"tmp2"}, h.paths())
}

func TestRegistrationFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.mkdir(t, "locked")
	h.source.mu.Lock()
	h.source.failAdd[h.path("locked")] = errors.New("permission denied")
	h.source.mu.Unlock()

	h.source.push(root, created("locked"))
	c := h.next(t)
	assert.Equal(t, "locked", relString(c))
	assert.Equal(t, 1, h.watcher.WatchedDirs())

	h.source.push(root, created("next"))
	assert.Equal(t, "next", relString(h.next(t)))
	assert.Equal(t, []string{"locked", "next"}, h.paths())
}

func TestRootDeletionLeavesTreeUntouched(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.source.push(root, created("keep"))
	h.next(t)

	h.source.push(root, deleted(""), created("still-running"))
	assert.Equal(t, "still-running", relString(h.next(t)))
	assert.Equal(t, []string{"keep", "still-running"}, h.paths())
}

func TestCatchUpFindsEntriesCreatedBeforeWatch(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.write(t, "x/y/z.txt")
	h.source.push(h.source.handle(t, h.root), created("x"))

	var got []string
	for range 3 {
		got = append(got, relString(h.next(t)))
	}
	assert.Equal(t, []string{"x", "x/y", "x/y/z.txt"}, got)
	assert.Equal(t, 3, h.watcher.WatchedDirs())

	// A late notification for an entry the catch-up already inserted changes nothing
	h.source.push(h.source.handle(t, h.path("x/y")), created("z.txt"), created("w.txt"))
	assert.Equal(t, "x/y/w.txt", relString(h.next(t)))
	assert.Equal(t, []string{"x", "x/y", "x/y/w.txt", "x/y/z.txt"}, h.paths())
}

func TestIgnoredEntriesAreNeitherWatchedNorInserted(t *testing.T) {
	m, err := ignore.Compile([]string{"node_modules", "*.tmp"})
	require.NoError(t, err)

	h := newHarness(t, Options{Ignore: m})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.mkdir(t, "node_modules/pkg")
	h.write(t, "src/.cache.tmp")
	h.write(t, "src/main.go")
	h.source.push(root, created("node_modules"), created("scratch.tmp"), created("src"))

	assert.Equal(t, "src", relString(h.next(t)))
	assert.Equal(t, "src/main.go", relString(h.next(t)))
	assert.Equal(t, []string{"src", "src/main.go"}, h.paths())
	assert.Equal(t, 2, h.watcher.WatchedDirs())
}

func TestWatchExistingRegistersSubdirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755))

	m, err := ignore.Compile([]string{".git"})
	require.NoError(t, err)

	w, err := New(root, nopTree{}, Options{Source: newFakeSource(), Ignore: m, WatchExisting: true})
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, w.WatchedPaths())
}

func TestWatchExistingReconcilesTreeOnStart(t *testing.T) {
	h := newHarness(t, Options{WatchExisting: true})
	h.sync.Insert([]string{"keep.txt"}, h.path("keep.txt"))
	h.sync.Insert([]string{"stale", "inner.txt"}, h.path("stale/inner.txt"))

	// Disk changes the tree has not seen
	h.write(t, "keep.txt")
	h.write(t, "gapdir/inner.txt")
	h.write(t, "gap.txt")

	h.start(t)

	var got []string
	for range 4 {
		c := h.next(t)
		got = append(got, c.Kind.String()+" "+relString(c))
	}
	assert.Equal(t, []string{
		"created gap.txt",
		"created gapdir",
		"created gapdir/inner.txt",
		"deleted stale",
	}, got)
	assert.Equal(t, []string{"gap.txt", "gapdir", "gapdir/inner.txt", "keep.txt"}, h.paths())

	// The directory found while reconciling is watched
	h.source.handle(t, h.path("gapdir"))
	assert.Equal(t, 2, h.watcher.WatchedDirs())
}

func TestNoMutationAfterStop(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	root := h.source.handle(t, h.root)

	h.write(t, "kept.txt")
	h.source.push(root, created("kept.txt"))
	h.next(t)

	require.NoError(t, h.watcher.Stop())
	before := h.paths()

	h.write(t, "late.txt")
	h.source.push(root, created("late.txt"), deleted("kept.txt"))

	select {
	case c := <-h.changes:
		t.Fatalf("change applied after stop: %v %s", c.Kind, relString(c))
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, before, h.paths())
	assert.Equal(t, []string{"kept.txt"}, h.paths())
}

func TestStopInterruptsBlockedWait(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	stopped := make(chan error, 1)
	go func() { stopped <- h.watcher.Stop() }()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, StateStopped, h.watcher.State())
	assert.Empty(t, h.paths())
}

func TestSynchronizerSatisfiesTree(t *testing.T) {
	var _ Tree = (*treesync.Synchronizer[*model.Node])(nil)
	var _ Lister = (*treesync.Synchronizer[*model.Node])(nil)
}

type nopTree struct{}

func (nopTree) Insert([]string, string) bool { return false }
func (nopTree) Remove([]string) bool         { return false }
