package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/treewatch/internal/model"
	"github.com/lumipallolabs/treewatch/internal/treesync"
)

// fakeSource replays scripted batches
type fakeSource struct {
	mu      sync.Mutex
	last    Handle
	handles map[string]Handle
	removed []string
	failAdd map[string]error

	batches   chan Batch
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		handles: make(map[string]Handle),
		failAdd: make(map[string]error),
		batches: make(chan Batch, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeSource) Add(path string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failAdd[path]; err != nil {
		return 0, err
	}
	if h, ok := f.handles[path]; ok {
		return h, nil
	}
	f.last++
	f.handles[path] = f.last
	return f.last, nil
}

func (f *fakeSource) Remove(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p, ph := range f.handles {
		if ph == h {
			delete(f.handles, p)
			f.removed = append(f.removed, p)
			return nil
		}
	}
	return ErrUnknownHandle
}

func (f *fakeSource) Next(ctx context.Context) (Batch, error) {
	select {
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	case <-f.closed:
		return Batch{}, ErrClosed
	case b := <-f.batches:
		return b, nil
	}
}

func (f *fakeSource) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSource) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeSource) handle(t *testing.T, path string) Handle {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.handles[path]
	require.True(t, ok, "no handle for %s", path)
	return h
}

func (f *fakeSource) removedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *fakeSource) push(h Handle, events ...ChangeEvent) {
	f.batches <- Batch{Handle: h, Events: events}
}

func created(name string) ChangeEvent { return ChangeEvent{Kind: Created, Name: name} }
func deleted(name string) ChangeEvent { return ChangeEvent{Kind: Deleted, Name: name} }

// harness wires a watcher to a real model tree under a temporary root
type harness struct {
	root    string
	tree    *model.Tree
	sync    *treesync.Synchronizer[*model.Node]
	source  *fakeSource
	watcher *Watcher
	changes chan Change
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		root:    root,
		tree:    model.NewTree(&model.Node{Path: root, Name: filepath.Base(root), IsDir: true}),
		changes: make(chan Change, 64),
	}
	h.sync = treesync.New(h.tree.Root(), model.NewNode, h.tree)

	if opts.Source == nil {
		h.source = newFakeSource()
		opts.Source = h.source
	}
	opts.OnChange = func(c Change) { h.changes <- c }

	w, err := New(root, h.sync, opts)
	require.NoError(t, err)
	h.watcher = w
	t.Cleanup(func() { w.Stop() })
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.watcher.Start())
}

func (h *harness) path(rel string) string {
	return filepath.Join(h.root, filepath.FromSlash(rel))
}

func (h *harness) mkdir(t *testing.T, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(h.path(rel), 0755))
}

func (h *harness) write(t *testing.T, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(h.path(rel)), 0755))
	require.NoError(t, os.WriteFile(h.path(rel), []byte("x"), 0644))
}

// next waits for the next applied change
func (h *harness) next(t *testing.T) Change {
	t.Helper()
	select {
	case c := <-h.changes:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

// paths renders the tree as sorted slash-joined relative paths
func (h *harness) paths() []string {
	var out []string
	h.tree.View(func(root *model.Node) {
		var walk func(n *model.Node, prefix string)
		walk = func(n *model.Node, prefix string) {
			for _, c := range n.Children() {
				p := c.Value()
				if prefix != "" {
					p = prefix + "/" + p
				}
				out = append(out, p)
				walk(c, p)
			}
		}
		walk(root, "")
	})
	sort.Strings(out)
	return out
}

func (h *harness) hasPath(rel string) bool {
	for _, p := range h.paths() {
		if p == rel {
			return true
		}
	}
	return false
}

func relString(c Change) string {
	return strings.Join(c.Rel, "/")
}
