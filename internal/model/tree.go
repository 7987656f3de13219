package model

import (
	"sort"
	"sync"
)

// Tree owns a node graph shared between the watcher goroutine and the UI.
// Writers hold the write lock for the duration of a mutation; readers use View.
type Tree struct {
	sync.RWMutex
	root *Node
}

// NewTree wraps root in a lockable tree
func NewTree(root *Node) *Tree {
	return &Tree{root: root}
}

// Root returns the root node. Walking below it requires the read lock.
func (t *Tree) Root() *Node {
	return t.root
}

// View runs fn with the read lock held
func (t *Tree) View(fn func(root *Node)) {
	t.RLock()
	defer t.RUnlock()
	fn(t.root)
}

// Update runs fn with the write lock held
func (t *Tree) Update(fn func(root *Node)) {
	t.Lock()
	defer t.Unlock()
	fn(t.root)
}

// SortBySize sorts nodes by total size descending, then by name ascending
func SortBySize(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		si, sj := nodes[i].TotalSize(), nodes[j].TotalSize()
		if si != sj {
			return si > sj
		}
		return nodes[i].Name < nodes[j].Name
	})
}
