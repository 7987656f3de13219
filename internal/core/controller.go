package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/logging"
	"github.com/lumipallolabs/treewatch/internal/model"
	"github.com/lumipallolabs/treewatch/internal/scanner"
	"github.com/lumipallolabs/treewatch/internal/treesync"
	"github.com/lumipallolabs/treewatch/internal/watcher"
)

// ErrNoTree is returned when watching is requested before a scan completed
var ErrNoTree = errors.New("no scanned tree")

// Options configures a Controller
type Options struct {
	Root    string
	Backend string
	Ignore  *ignore.Matcher
	Workers int

	// Source replaces the backend, used by tests
	Source watcher.Source
}

// Controller manages the core application logic without UI dependencies
type Controller struct {
	mu sync.RWMutex

	opts   Options
	root   string
	tree   *model.Tree
	volume *model.Volume
	scan   ScanState
	watch  WatchState

	scanner *scanner.Walker
	watcher *watcher.Watcher
	watchCh chan Event

	// dropped counts events not yet reported by an EventsDroppedEvent
	dropped      atomic.Int64
	droppedTotal atomic.Int64
}

// NewController creates a new application controller for root
func NewController(opts Options) (*Controller, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	c := &Controller{
		opts: opts,
		root: root,
	}

	if v, err := model.VolumeFor(root); err != nil {
		logging.Debug.WithError(err).Debug("volume info unavailable")
	} else {
		c.volume = &v
	}
	return c, nil
}

// State returns a read-only snapshot of the current state
func (c *Controller) State() AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	watch := c.watch
	watch.Dropped = c.droppedTotal.Load()
	if c.watcher != nil {
		watch.Dirs = c.watcher.WatchedDirs()
	}
	return AppState{
		Root:   c.root,
		Volume: c.volume,
		Scan:   c.scan,
		Watch:  watch,
	}
}

// Root returns the absolute root path
func (c *Controller) Root() string {
	return c.root
}

// Tree returns the scanned tree, or nil before the first scan completes
func (c *Controller) Tree() *model.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

// ScanState returns the current scan state
func (c *Controller) ScanState() ScanState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scan
}

// WatchState returns the current watch state
func (c *Controller) WatchState() WatchState {
	return c.State().Watch
}

// StartScan populates the tree from disk. Events are delivered on the
// returned channel, which is closed when the scan ends.
func (c *Controller) StartScan(ctx context.Context) (<-chan Event, error) {
	c.mu.Lock()
	if c.watcher != nil {
		c.mu.Unlock()
		return nil, errors.New("cannot rescan while watching")
	}
	c.scanner = scanner.NewWalker(c.opts.Workers, c.opts.Ignore)
	c.scan = ScanState{Phase: PhaseScanning}
	c.tree = nil
	c.mu.Unlock()

	eventCh := make(chan Event, 100)
	go c.runScan(ctx, eventCh)
	return eventCh, nil
}

// runScan executes the scan in a goroutine
func (c *Controller) runScan(ctx context.Context, eventCh chan Event) {
	defer close(eventCh)

	logging.Debug.WithField("root", c.root).Info("starting scan")

	c.mu.Lock()
	c.scan.StartTime = time.Now()
	w := c.scanner
	c.mu.Unlock()

	eventCh <- ScanStartedEvent{Path: c.root}

	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		for progress := range w.Progress() {
			c.mu.Lock()
			c.scan.FilesScanned = progress.FilesScanned
			c.scan.DirsScanned = progress.DirsScanned
			c.scan.BytesFound = progress.BytesFound
			c.mu.Unlock()

			select {
			case eventCh <- ScanProgressEvent{
				FilesScanned: progress.FilesScanned,
				DirsScanned:  progress.DirsScanned,
				BytesFound:   progress.BytesFound,
			}:
			default:
			}
		}
	}()

	root, err := w.Scan(ctx, c.root)
	progressWg.Wait()

	if err != nil {
		c.mu.Lock()
		c.scan.Phase = PhaseIdle
		c.mu.Unlock()

		eventCh <- ScanCompletedEvent{Err: err}
		eventCh <- ErrorEvent{Err: err}
		return
	}

	c.mu.Lock()
	c.scan.Phase = PhaseComputingSizes
	c.mu.Unlock()
	eventCh <- ScanPhaseChangedEvent{Phase: PhaseComputingSizes}

	root.ComputeSizes()
	tree := model.NewTree(root)

	final := w.Snapshot()
	c.mu.Lock()
	c.scan.Phase = PhaseComplete
	c.scan.FilesScanned = final.FilesScanned
	c.scan.DirsScanned = final.DirsScanned
	c.scan.BytesFound = final.BytesFound
	c.tree = tree
	c.mu.Unlock()

	eventCh <- ScanPhaseChangedEvent{Phase: PhaseComplete}
	eventCh <- ScanCompletedEvent{Tree: tree}

	logging.Debug.WithField("root", c.root).Info("scan complete")
}

// FinalizeScan marks the scan as fully complete (after UI delay)
func (c *Controller) FinalizeScan() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scan.Phase = PhaseIdle
}

// StartWatching keeps the scanned tree in sync with the file system.
// Changes are delivered on the returned channel until Stop. When the
// channel is full, notifications are counted and reported by an
// EventsDroppedEvent once the reader catches up.
func (c *Controller) StartWatching() (<-chan Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tree == nil {
		return nil, ErrNoTree
	}
	if c.watcher != nil {
		return c.watchCh, nil
	}

	tree := c.tree
	eventCh := make(chan Event, 256)
	syncer := treesync.New(tree.Root(), model.NewNode, tree)

	w, err := watcher.New(c.root, syncer, watcher.Options{
		Source:        c.opts.Source,
		Backend:       c.opts.Backend,
		Ignore:        c.opts.Ignore,
		WatchExisting: true,
		OnChange: func(ch watcher.Change) {
			c.handleChange(ch, eventCh)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	c.watcher = w
	c.watchCh = eventCh
	c.watch = WatchState{Active: true, Root: c.root}
	c.dropped.Store(0)
	c.droppedTotal.Store(0)

	c.emit(eventCh, WatchStartedEvent{Root: c.root, Dirs: w.WatchedDirs()})
	logging.Debug.WithField("dirs", w.WatchedDirs()).Info("filesystem watcher started")
	return eventCh, nil
}

// handleChange runs on the watcher goroutine
func (c *Controller) handleChange(ch watcher.Change, eventCh chan Event) {
	c.mu.Lock()
	switch ch.Kind {
	case watcher.Created:
		c.watch.Created++
	case watcher.Deleted:
		c.watch.Deleted++
	}
	c.watch.LastChange = ch.Kind.String() + " " + strings.Join(ch.Rel, string(filepath.Separator))
	c.watch.LastAt = time.Now()
	c.mu.Unlock()

	switch ch.Kind {
	case watcher.Created:
		c.emit(eventCh, CreationDetectedEvent{Path: ch.Path, Rel: ch.Rel, IsDir: ch.IsDir})
	case watcher.Deleted:
		c.emit(eventCh, DeletionDetectedEvent{Path: ch.Path, Rel: ch.Rel, IsDir: ch.IsDir})
	}
}

// RefreshSizes recomputes cached directory totals after live changes
func (c *Controller) RefreshSizes() {
	tree := c.Tree()
	if tree == nil {
		return
	}
	tree.Update(func(root *model.Node) {
		root.ComputeSizes()
	})
}

// Stop cleans up resources
func (c *Controller) Stop() {
	c.mu.Lock()
	w, ch := c.watcher, c.watchCh
	c.watcher, c.watchCh = nil, nil
	c.watch.Active = false
	c.mu.Unlock()

	if w == nil {
		return
	}
	if err := w.Stop(); err != nil {
		logging.Debug.WithError(err).Warn("stopping watcher")
	}
	// The watcher goroutine has exited, nothing sends anymore
	close(ch)
}

// emit sends an event without blocking the sender. Events that do not fit
// are counted; the count goes out ahead of the next event that fits.
func (c *Controller) emit(ch chan Event, event Event) {
	if n := c.dropped.Load(); n > 0 {
		select {
		case ch <- EventsDroppedEvent{Count: n}:
			c.dropped.Add(-n)
		default:
			c.drop()
			return
		}
	}
	select {
	case ch <- event:
	default:
		c.drop()
	}
}

func (c *Controller) drop() {
	c.dropped.Add(1)
	c.droppedTotal.Add(1)
}
