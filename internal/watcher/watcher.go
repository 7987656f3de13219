// Package watcher observes a directory tree and mirrors entries being
// created or deleted anywhere below it into a Tree.
//
// A Watcher owns one background goroutine. It reads batches from a Source,
// registers directories as they appear so that their contents are observed
// too, and applies each change to the Tree in the order the OS reported it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/logging"
	"github.com/lumipallolabs/treewatch/internal/scanner"
	"github.com/lumipallolabs/treewatch/internal/treesync"
)

// State is the lifecycle stage of a Watcher
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Tree receives path mutations. Paths are given as components relative to
// the watched root together with the absolute path of the final component.
type Tree interface {
	Insert(rel []string, abs string) bool
	Remove(rel []string) bool
}

// Lister is implemented by trees that can enumerate their entries. With
// WatchExisting, entries listed that are gone from disk are removed when the
// watcher starts.
type Lister interface {
	Paths() [][]string
}

// Change describes a mutation applied to the Tree
type Change struct {
	Kind  Kind
	Path  string
	Rel   []string
	IsDir bool
}

// Options configures a Watcher. The zero value watches with fsnotify.
type Options struct {
	// Source overrides the backend selected by Backend
	Source  Source
	Backend string

	// Ignore excludes matching entries from both watching and the tree
	Ignore *ignore.Matcher

	// WatchExisting registers every directory already below the root at
	// construction, for trees that were populated before watching began.
	// On start the tree is then reconciled with the disk so that changes
	// made before the watches existed are not lost.
	WatchExisting bool

	// OnChange is called on the watcher goroutine after every applied
	// mutation. It must not block for long and must not call Stop.
	OnChange func(Change)

	Logger *logrus.Entry
}

// Watcher keeps a Tree in sync with a directory on disk
type Watcher struct {
	root     string
	tree     Tree
	opts     Options
	log      *logrus.Entry
	source   Source
	registry *Registry

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher for root. It fails if root is not a directory, the
// source cannot be created or root cannot be registered; nothing is left
// open on failure.
func New(root string, tree Tree, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Watcher
	}
	log = log.WithField("root", abs)

	source := opts.Source
	if source == nil {
		source, err = NewSource(opts.Backend, log)
		if err != nil {
			return nil, fmt.Errorf("create source: %w", err)
		}
	}

	w := &Watcher{
		root:     abs,
		tree:     tree,
		opts:     opts,
		log:      log,
		source:   source,
		registry: NewRegistry(source, log),
	}

	if _, err := w.registry.Register(abs); err != nil {
		source.Close()
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if opts.WatchExisting {
		w.registerExisting()
	}
	return w, nil
}

// Start launches the event loop goroutine
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateRunning, StateStopping:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.state = StateRunning

	go w.run(ctx)
	w.log.WithField("dirs", w.registry.Len()).Info("watcher started")
	return nil
}

// Stop cancels the event loop, releases the source and waits for the
// goroutine to exit. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	switch w.state {
	case StateStopped:
		w.mu.Unlock()
		return nil
	case StateIdle:
		w.state = StateStopped
		w.mu.Unlock()
		return w.source.Close()
	case StateStopping:
		done := w.done
		w.mu.Unlock()
		<-done
		return nil
	}

	w.state = StateStopping
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	err := w.source.Close()
	<-done
	if errors.Is(err, ErrClosed) {
		err = nil
	}
	return err
}

// State returns the current lifecycle stage
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Root returns the absolute watched root
func (w *Watcher) Root() string {
	return w.root
}

// WatchedDirs returns how many directories are currently watched
func (w *Watcher) WatchedDirs() int {
	return w.registry.Len()
}

// WatchedPaths returns the watched directories in sorted order
func (w *Watcher) WatchedPaths() []string {
	return w.registry.Paths()
}

func (w *Watcher) run(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.state = StateStopped
		w.mu.Unlock()
		close(w.done)
		w.log.Info("watcher stopped")
	}()

	if w.opts.WatchExisting {
		w.reconcile(ctx)
	}

	for {
		batch, err := w.source.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return
			}
			w.log.WithError(err).Warn("event source failed")
			w.source.Close()
			return
		}
		w.handleBatch(ctx, batch)
	}
}

func (w *Watcher) handleBatch(ctx context.Context, batch Batch) {
	var dir string
	resolved := false

	for _, ev := range batch.Events {
		if ctx.Err() != nil {
			return
		}
		if ev.Kind == Overflow {
			w.log.Trace("event overflow, skipping")
			continue
		}
		if !resolved {
			var ok bool
			if dir, ok = w.registry.Resolve(batch.Handle); !ok {
				w.log.WithField("handle", batch.Handle).Debug("dropping batch for unknown handle")
				return
			}
			resolved = true
		}

		child := filepath.Join(dir, ev.Name)
		switch ev.Kind {
		case Created:
			w.handleCreated(ctx, child)
		case Deleted:
			w.handleDeleted(child)
		}
	}
}

func (w *Watcher) handleCreated(ctx context.Context, path string) {
	rel := w.rel(path)
	if rel == nil {
		return
	}
	if w.opts.Ignore.MatchAncestor(rel) {
		w.log.WithField("path", path).Trace("ignored")
		return
	}

	info, err := os.Lstat(path)
	isDir := err == nil && info.IsDir()
	if isDir {
		w.register(path)
	}

	w.insert(rel, path, isDir)

	if isDir {
		w.catchUp(ctx, path)
	}
}

// catchUp inserts entries that appeared inside a new directory before its
// watch was installed
func (w *Watcher) catchUp(ctx context.Context, dir string) {
	entries, err := scanner.Entries(ctx, dir, w.opts.Ignore)
	if err != nil {
		w.log.WithError(err).WithField("path", dir).Debug("catch-up walk")
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		rel := w.rel(e.Path)
		if rel == nil || w.opts.Ignore.MatchAncestor(rel) {
			continue
		}
		if e.IsDir {
			w.register(e.Path)
		}
		w.insert(rel, e.Path, e.IsDir)
	}
}

func (w *Watcher) handleDeleted(path string) {
	rel := w.rel(path)
	if rel == nil {
		w.log.WithField("path", path).Warn("watched root removed")
		return
	}

	wasDir := w.registry.Unregister(path) > 0
	if !w.tree.Remove(rel) {
		w.log.WithField("path", path).Debug("removal of absent path")
		return
	}
	w.notify(Change{Kind: Deleted, Path: path, Rel: rel, IsDir: wasDir})
}

func (w *Watcher) insert(rel []string, path string, isDir bool) {
	if w.tree.Insert(rel, path) {
		w.notify(Change{Kind: Created, Path: path, Rel: rel, IsDir: isDir})
	}
}

func (w *Watcher) register(path string) {
	if _, err := w.registry.Register(path); err != nil {
		w.log.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("failed to watch directory")
	}
}

func (w *Watcher) registerExisting() {
	entries, err := scanner.Entries(context.Background(), w.root, w.opts.Ignore)
	if err != nil {
		w.log.WithError(err).Warn("listing existing directories")
		return
	}
	for _, e := range entries {
		if e.IsDir {
			w.register(e.Path)
		}
	}
}

// reconcile brings the tree in line with the disk. Watches are already in
// place, so anything changing after the walk arrives as a regular event.
func (w *Watcher) reconcile(ctx context.Context) {
	entries, err := scanner.Entries(ctx, w.root, w.opts.Ignore)
	if err != nil {
		w.log.WithError(err).Warn("reconciling existing entries")
		return
	}

	onDisk := make(map[string]bool, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		rel := w.rel(e.Path)
		if rel == nil {
			continue
		}
		onDisk[strings.Join(rel, "/")] = true
		if e.IsDir {
			w.register(e.Path)
		}
		w.insert(rel, e.Path, e.IsDir)
	}

	lister, ok := w.tree.(Lister)
	if !ok {
		return
	}
	for _, rel := range lister.Paths() {
		if ctx.Err() != nil {
			return
		}
		if onDisk[strings.Join(rel, "/")] || w.opts.Ignore.MatchAncestor(rel) {
			continue
		}
		path := filepath.Join(append([]string{w.root}, rel...)...)
		if _, err := os.Lstat(path); err == nil {
			continue
		}
		w.handleDeleted(path)
	}
}

func (w *Watcher) notify(c Change) {
	if w.opts.OnChange != nil {
		w.opts.OnChange(c)
	}
}

// rel returns path relative to the root, or nil for the root itself and
// paths outside it
func (w *Watcher) rel(path string) []string {
	r, err := filepath.Rel(w.root, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return nil
	}
	return treesync.Split(r)
}
