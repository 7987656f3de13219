package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"

	"github.com/lumipallolabs/treewatch/internal/ignore"
	"github.com/lumipallolabs/treewatch/internal/logging"
	"github.com/lumipallolabs/treewatch/internal/model"
)

// Walker implements parallel filesystem scanning
type Walker struct {
	workers    int
	ignore     *ignore.Matcher
	progressCh chan Progress
	progress   Progress
	mu         sync.Mutex
}

// NewWalker creates a new parallel filesystem walker. Entries matched by m
// are skipped along with their subtrees; m may be nil.
func NewWalker(workers int, m *ignore.Matcher) *Walker {
	if workers < 1 {
		workers = 8
	}
	return &Walker{
		workers:    workers,
		ignore:     m,
		progressCh: make(chan Progress, 100),
	}
}

// Progress returns the progress channel
func (w *Walker) Progress() <-chan Progress {
	return w.progressCh
}

// Snapshot returns the current counters
func (w *Walker) Snapshot() Progress {
	w.mu.Lock()
	current := w.progress.CurrentPath
	w.mu.Unlock()
	return Progress{
		FilesScanned: atomic.LoadInt64(&w.progress.FilesScanned),
		DirsScanned:  atomic.LoadInt64(&w.progress.DirsScanned),
		BytesFound:   atomic.LoadInt64(&w.progress.BytesFound),
		CurrentPath:  current,
	}
}

// nodeEntry is a temporary structure for building the tree
type nodeEntry struct {
	path  string
	name  string
	size  int64
	isDir bool
}

// Scan scans the filesystem starting at root using fastwalk
func (w *Walker) Scan(ctx context.Context, root string) (*model.Node, error) {
	defer close(w.progressCh)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Get platform-specific root info for mount point detection
	rootInfo := getPlatformRootInfo(absRoot)

	// Use channels for lock-free entry collection
	entryChan := make(chan nodeEntry, 50000)
	var entries []nodeEntry
	var entriesWg sync.WaitGroup

	// Collect entries in background without blocking
	entriesWg.Add(1)
	go func() {
		defer entriesWg.Done()
		collected := make([]nodeEntry, 0, 4096)
		for e := range entryChan {
			collected = append(collected, e)
		}
		entries = collected
	}()

	// Track seen inodes for deduplication
	var seenItems sync.Map

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: w.workers,
	}

	walkErr := fastwalk.Walk(conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			logging.Scanner.WithError(err).WithField("path", path).Debug("skipping unreadable entry")
			return nil
		}

		if path == absRoot {
			return nil
		}

		if w.ignore.Match(relComponents(absRoot, path)) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		// Platform-specific directory checks (mount points, firmlinks)
		if d.IsDir() && shouldSkipDir(path, d, rootInfo, &seenItems) {
			return fs.SkipDir
		}

		var size int64
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			size = getFileSize(path, info, &seenItems)
			atomic.AddInt64(&w.progress.FilesScanned, 1)
			atomic.AddInt64(&w.progress.BytesFound, size)
		} else {
			atomic.AddInt64(&w.progress.DirsScanned, 1)
			w.report(path)
		}

		entryChan <- nodeEntry{
			path:  path,
			name:  d.Name(),
			size:  size,
			isDir: d.IsDir(),
		}
		return nil
	})

	close(entryChan)
	entriesWg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}

	rootNode := buildTree(absRoot, entries)
	logging.Scanner.WithFields(logrus.Fields{
		"root":  absRoot,
		"files": atomic.LoadInt64(&w.progress.FilesScanned),
		"dirs":  atomic.LoadInt64(&w.progress.DirsScanned),
	}).Info("scan complete")
	return rootNode, nil
}

// report publishes a progress snapshot without blocking the walk
func (w *Walker) report(path string) {
	w.mu.Lock()
	w.progress.CurrentPath = path
	w.mu.Unlock()

	select {
	case w.progressCh <- w.Snapshot():
	default:
	}
}

// buildTree links flat entries into a node graph. Entries are sorted by path
// first so parents precede children and siblings come out in name order.
func buildTree(rootPath string, entries []nodeEntry) *model.Node {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].path < entries[j].path
	})

	nodes := make(map[string]*model.Node, len(entries)+1)
	rootNode := &model.Node{
		Path:  rootPath,
		Name:  filepath.Base(rootPath),
		IsDir: true,
	}
	nodes[rootPath] = rootNode

	for i := range entries {
		e := &entries[i]
		node := &model.Node{
			Path:  e.path,
			Name:  e.name,
			Size:  e.size,
			IsDir: e.isDir,
		}
		nodes[e.path] = node
		if parent, ok := nodes[filepath.Dir(e.path)]; ok {
			parent.AppendChild(node)
		}
	}
	return rootNode
}

// Entries lists everything below dir, parents before children. Matched
// entries and their subtrees are left out. Symlinks are not followed.
func Entries(ctx context.Context, dir string, m *ignore.Matcher) ([]Entry, error) {
	var (
		mu  sync.Mutex
		out []Entry
	)
	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || path == dir {
			return nil
		}
		rel := relComponents(dir, path)
		if m.Match(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		mu.Lock()
		out = append(out, Entry{Path: path, Rel: rel, IsDir: d.IsDir()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func relComponents(base, path string) []string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}

// Ensure Walker implements Scanner
var _ Scanner = (*Walker)(nil)
