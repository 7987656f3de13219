//go:build darwin

package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsevents"
	"github.com/sirupsen/logrus"
)

const fseventsLatency = 100 * time.Millisecond

// fseventsSource runs one recursive FSEvents stream rooted at the first
// added path. Directories below it share the stream; every batch carries
// the root handle and names relative to the root.
type fseventsSource struct {
	handles    *handleTable
	log        *logrus.Entry
	root       string
	real       string // root with symlinks resolved, as FSEvents reports it
	rootHandle Handle
	stream     *fsevents.EventStream

	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newFSEventsSource(log *logrus.Entry) (*fseventsSource, error) {
	return &fseventsSource{
		handles: newHandleTable(),
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

func (s *fseventsSource) Add(path string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return 0, ErrClosed
	default:
	}

	if h, ok := s.handles.lookup(path); ok {
		return h, nil
	}

	if s.stream == nil {
		return s.startLocked(path)
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0, fmt.Errorf("watch %s: outside stream root %s", path, s.root)
	}
	// Already covered by the recursive stream
	return s.handles.issue(path), nil
}

func (s *fseventsSource) startLocked(root string) (Handle, error) {
	real, err := filepath.EvalSymlinks(root)
	if err != nil {
		real = root
	}

	stream := &fsevents.EventStream{
		Events:  make(chan []fsevents.Event, 16),
		Paths:   []string{root},
		Latency: fseventsLatency,
		Flags:   fsevents.FileEvents | fsevents.WatchRoot,
	}
	if err := stream.Start(); err != nil {
		return 0, fmt.Errorf("start fsevents stream for %s: %w", root, err)
	}

	s.stream = stream
	s.root = root
	s.real = real
	s.rootHandle = s.handles.issue(root)
	return s.rootHandle, nil
}

func (s *fseventsSource) Remove(h Handle) error {
	if _, ok := s.handles.release(h); !ok {
		return ErrUnknownHandle
	}
	return nil
}

func (s *fseventsSource) Next(ctx context.Context) (Batch, error) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	var events <-chan []fsevents.Event
	if stream != nil {
		events = stream.Events
	}

	for {
		select {
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		case <-s.done:
			return Batch{}, ErrClosed
		case raw := <-events:
			batch := Batch{Handle: s.rootHandle}
			for _, ev := range raw {
				if ce, ok := s.translate(ev); ok {
					batch.Events = append(batch.Events, ce)
				}
			}
			if len(batch.Events) > 0 {
				return batch, nil
			}
		}
	}
}

// translate converts one FSEvents record. Flags are coalesced by the OS, so
// the entry's current existence decides between created and deleted.
func (s *fseventsSource) translate(ev fsevents.Event) (ChangeEvent, bool) {
	if ev.Flags&(fsevents.MustScanSubDirs|fsevents.KernelDropped|fsevents.UserDropped) != 0 {
		return ChangeEvent{Kind: Overflow}, true
	}
	if ev.Flags&(fsevents.ItemCreated|fsevents.ItemRemoved|fsevents.ItemRenamed) == 0 {
		return ChangeEvent{}, false
	}

	path := ev.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	rel, err := filepath.Rel(s.real, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		s.log.WithField("path", path).Trace("dropping event outside stream root")
		return ChangeEvent{}, false
	}

	kind := Deleted
	if _, err := os.Lstat(filepath.Join(s.root, rel)); err == nil {
		kind = Created
	}
	return ChangeEvent{Kind: kind, Name: rel}, true
}

func (s *fseventsSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.stream != nil {
			s.stream.Stop()
		}
		s.mu.Unlock()
	})
	return nil
}
