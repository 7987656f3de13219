package watcher

import "sync"

// handleTable issues sequential handles for watched paths
type handleTable struct {
	mu     sync.Mutex
	last   Handle
	byPath map[string]Handle
	paths  map[Handle]string
}

func newHandleTable() *handleTable {
	return &handleTable{
		byPath: make(map[string]Handle),
		paths:  make(map[Handle]string),
	}
}

// lookup returns the handle for path, if one was issued
func (t *handleTable) lookup(path string) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.byPath[path]
	return h, ok
}

// path returns the path behind h
func (t *handleTable) path(h Handle) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.paths[h]
	return p, ok
}

// issue records path and returns its new handle
func (t *handleTable) issue(path string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.byPath[path]; ok {
		return h
	}
	t.last++
	t.byPath[path] = t.last
	t.paths[t.last] = path
	return t.last
}

// release forgets h and returns the path it stood for
func (t *handleTable) release(h Handle) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.paths[h]
	if !ok {
		return "", false
	}
	delete(t.paths, h)
	delete(t.byPath, p)
	return p, true
}
