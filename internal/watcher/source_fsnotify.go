package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// fsnotifySource watches each directory individually through one
// fsnotify.Watcher (inotify, kqueue or ReadDirectoryChangesW).
type fsnotifySource struct {
	w       *fsnotify.Watcher
	handles *handleTable
	log     *logrus.Entry

	// pending holds the first event of the next batch. Only Next touches it.
	pending *Batch

	closeOnce sync.Once
	done      chan struct{}
}

func newFSNotifySource(log *logrus.Entry) (*fsnotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &fsnotifySource{
		w:       w,
		handles: newHandleTable(),
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

func (s *fsnotifySource) Add(path string) (Handle, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	if h, ok := s.handles.lookup(path); ok {
		return h, nil
	}
	if err := s.w.Add(path); err != nil {
		return 0, fmt.Errorf("watch %s: %w", path, err)
	}
	return s.handles.issue(path), nil
}

func (s *fsnotifySource) Remove(h Handle) error {
	path, ok := s.handles.release(h)
	if !ok {
		return ErrUnknownHandle
	}
	if err := s.w.Remove(path); err != nil {
		return fmt.Errorf("unwatch %s: %w", path, err)
	}
	return nil
}

// Next blocks for the first event, then drains events for the same
// directory that are already queued. The first event for another directory
// is kept for the following call so OS order is preserved.
func (s *fsnotifySource) Next(ctx context.Context) (Batch, error) {
	batch, err := s.first(ctx)
	if err != nil {
		return Batch{}, err
	}

	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return batch, nil
			}
			next, ok := s.translate(ev)
			if !ok {
				continue
			}
			if next.Handle != batch.Handle {
				s.pending = &next
				return batch, nil
			}
			batch.Events = append(batch.Events, next.Events...)
		default:
			return batch, nil
		}
	}
}

// first returns a one-event batch, waiting for it if none is pending
func (s *fsnotifySource) first(ctx context.Context) (Batch, error) {
	if s.pending != nil {
		b := *s.pending
		s.pending = nil
		return b, nil
	}

	for {
		select {
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		case <-s.done:
			return Batch{}, ErrClosed
		case ev, ok := <-s.w.Events:
			if !ok {
				return Batch{}, ErrClosed
			}
			if b, ok := s.translate(ev); ok {
				return b, nil
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return Batch{}, ErrClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				return Batch{Events: []ChangeEvent{{Kind: Overflow}}}, nil
			}
			s.log.WithError(err).Debug("fsnotify error")
		}
	}
}

// translate maps an fsnotify event onto the handle of its directory.
// Writes and attribute changes are dropped.
func (s *fsnotifySource) translate(ev fsnotify.Event) (Batch, bool) {
	var kind Kind
	switch {
	case ev.Has(fsnotify.Create):
		kind = Created
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = Deleted
	default:
		return Batch{}, false
	}

	dir, name := filepath.Split(ev.Name)
	dir = filepath.Clean(dir)
	h, ok := s.handles.lookup(dir)
	if !ok {
		s.log.WithField("path", ev.Name).WithField("op", ev.Op.String()).
			Debug("dropping event for unwatched directory")
		return Batch{}, false
	}
	return Batch{Handle: h, Events: []ChangeEvent{{Kind: kind, Name: name}}}, true
}

func (s *fsnotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.w.Close()
	})
	return err
}

func (s *fsnotifySource) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
