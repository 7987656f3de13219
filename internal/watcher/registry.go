package watcher

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps watch handles to the directories they observe
type Registry struct {
	source Source
	log    *logrus.Entry

	mu     sync.RWMutex
	paths  map[Handle]string
	byPath map[string]Handle
}

// NewRegistry creates an empty registry backed by source
func NewRegistry(source Source, log *logrus.Entry) *Registry {
	return &Registry{
		source: source,
		log:    log,
		paths:  make(map[Handle]string),
		byPath: make(map[string]Handle),
	}
}

// Register watches path and records its handle. A path that is already
// registered keeps its handle.
func (r *Registry) Register(path string) (Handle, error) {
	r.mu.RLock()
	h, ok := r.byPath[path]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	h, err := r.source.Add(path)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.paths[h] = path
	r.byPath[path] = h
	r.mu.Unlock()
	return h, nil
}

// Resolve returns the directory behind h
func (r *Registry) Resolve(h Handle) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.paths[h]
	return p, ok
}

// Unregister releases path and every registered directory below it and
// returns how many were dropped. Release failures are expected when the
// OS already discarded the watch of a deleted directory, so they are only
// logged.
func (r *Registry) Unregister(path string) int {
	prefix := path + string(filepath.Separator)

	r.mu.Lock()
	var dropped []Handle
	for p, h := range r.byPath {
		if p == path || strings.HasPrefix(p, prefix) {
			dropped = append(dropped, h)
			delete(r.byPath, p)
			delete(r.paths, h)
		}
	}
	r.mu.Unlock()

	for _, h := range dropped {
		if err := r.source.Remove(h); err != nil {
			r.log.WithError(err).WithField("handle", h).Debug("releasing watch")
		}
	}
	return len(dropped)
}

// Len returns the number of watched directories
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths)
}

// Paths returns the watched directories in sorted order
func (r *Registry) Paths() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
