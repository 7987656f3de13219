// Package treesync mirrors file-system paths into a hierarchical node graph.
//
// A Synchronizer walks from a root node one path component at a time,
// matching children by display value. Inserts create missing levels and
// removals detach the final node; both are idempotent so that repeated or
// reordered file-system notifications converge on the same tree.
package treesync

import (
	"path/filepath"
	"strings"
	"sync"
)

// Node is the capability a tree element needs to be synchronized.
// N is the concrete node type, usually a pointer.
type Node[N any] interface {
	// Value is compared against path components with exact string equality.
	Value() string
	Children() []N
	AppendChild(child N)
	RemoveChild(child N) bool
	// Parent reports the non-owning back-reference, ok is false for roots
	// and detached nodes.
	Parent() (N, bool)
}

// Synchronizer applies path insertions and removals to a tree rooted at root.
type Synchronizer[N Node[N]] struct {
	root    N
	newNode func(absPath string) N
	lock    sync.Locker
}

// New returns a Synchronizer for root. newNode builds the node for an
// absolute path; its Value must be the path's base name. lock, when not nil,
// is held for every mutation.
func New[N Node[N]](root N, newNode func(absPath string) N, lock sync.Locker) *Synchronizer[N] {
	return &Synchronizer[N]{
		root:    root,
		newNode: newNode,
		lock:    lock,
	}
}

// Root returns the root node
func (s *Synchronizer[N]) Root() N {
	return s.root
}

// Insert ensures a node chain for rel exists below the root, creating the
// missing levels in order. abs is the absolute path of the final component.
// It reports whether any node was created.
func (s *Synchronizer[N]) Insert(rel []string, abs string) bool {
	if len(rel) == 0 {
		return false
	}
	paths := prefixes(rel, abs)

	s.acquire()
	defer s.release()

	created := false
	cur := s.root
	for i, component := range rel {
		if child, ok := findChild(cur, component); ok {
			cur = child
			continue
		}
		child := s.newNode(paths[i])
		cur.AppendChild(child)
		cur = child
		created = true
	}
	return created
}

// Remove detaches the node at rel. A path that is not in the tree, at any
// level, leaves the tree untouched and returns false.
func (s *Synchronizer[N]) Remove(rel []string) bool {
	if len(rel) == 0 {
		return false
	}

	s.acquire()
	defer s.release()

	parent := s.root
	var target N
	for i, component := range rel {
		child, ok := findChild(parent, component)
		if !ok {
			return false
		}
		if i == len(rel)-1 {
			target = child
			break
		}
		parent = child
	}

	if p, ok := target.Parent(); ok {
		parent = p
	}
	return parent.RemoveChild(target)
}

// Find returns the node at rel, if present. The empty path is the root.
func (s *Synchronizer[N]) Find(rel []string) (N, bool) {
	s.acquire()
	defer s.release()

	cur := s.root
	for _, component := range rel {
		child, ok := findChild(cur, component)
		if !ok {
			var zero N
			return zero, false
		}
		cur = child
	}
	return cur, true
}

// Paths returns the relative path of every node below the root, parents
// before their children
func (s *Synchronizer[N]) Paths() [][]string {
	s.acquire()
	defer s.release()

	var out [][]string
	var walk func(n N, prefix []string)
	walk = func(n N, prefix []string) {
		for _, child := range n.Children() {
			rel := append(append(make([]string, 0, len(prefix)+1), prefix...), child.Value())
			out = append(out, rel)
			walk(child, rel)
		}
	}
	walk(s.root, nil)
	return out
}

func (s *Synchronizer[N]) acquire() {
	if s.lock != nil {
		s.lock.Lock()
	}
}

func (s *Synchronizer[N]) release() {
	if s.lock != nil {
		s.lock.Unlock()
	}
}

func findChild[N Node[N]](parent N, value string) (N, bool) {
	for _, child := range parent.Children() {
		if child.Value() == value {
			return child, true
		}
	}
	var zero N
	return zero, false
}

// prefixes returns the absolute path reached after each component of rel,
// derived by trimming trailing components from abs.
func prefixes(rel []string, abs string) []string {
	paths := make([]string, len(rel))
	p := abs
	for i := len(rel) - 1; i >= 0; i-- {
		paths[i] = p
		p = filepath.Dir(p)
	}
	return paths
}

// Split turns a relative path into its components. "." and "" yield nil.
func Split(rel string) []string {
	rel = filepath.Clean(rel)
	if rel == "." {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}
