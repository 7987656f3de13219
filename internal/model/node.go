package model

import (
	"os"
	"path/filepath"
	"weak"
)

// Node represents a file or directory in the mirrored tree.
// Path, Name, IsDir and Size are fixed at creation; the child list and the
// parent link change only under the owning Tree's write lock.
type Node struct {
	Path  string
	Name  string
	IsDir bool
	Size  int64 // direct size for files, cached total for dirs after ComputeSizes

	children []*Node
	parent   weak.Pointer[Node]
}

// NewNode creates a node for the entry at path, deriving its display value
// from the base name. The entry is inspected with Lstat so symlinks are
// reported as themselves; a vanished entry yields a plain file node.
func NewNode(path string) *Node {
	n := &Node{
		Path: path,
		Name: filepath.Base(path),
	}
	if info, err := os.Lstat(path); err == nil {
		n.IsDir = info.IsDir()
		if !n.IsDir {
			n.Size = info.Size()
		}
	}
	return n
}

// Value returns the display value used for path lookups
func (n *Node) Value() string {
	return n.Name
}

// Children returns the ordered child list. The slice is owned by the node.
func (n *Node) Children() []*Node {
	return n.children
}

// AppendChild adds child as the last child of n
func (n *Node) AppendChild(child *Node) {
	child.parent = weak.Make(n)
	n.children = append(n.children, child)
}

// RemoveChild detaches the first occurrence of child. It reports whether
// child was found.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.children {
		if c != child {
			continue
		}
		copy(n.children[i:], n.children[i+1:])
		n.children[len(n.children)-1] = nil
		n.children = n.children[:len(n.children)-1]
		child.parent = weak.Pointer[Node]{}
		return true
	}
	return false
}

// Parent returns the parent node, if the node is attached
func (n *Node) Parent() (*Node, bool) {
	p := n.parent.Value()
	return p, p != nil
}

// Depth returns the number of ancestors above n
func (n *Node) Depth() int {
	depth := 0
	for p, ok := n.Parent(); ok; p, ok = p.Parent() {
		depth++
	}
	return depth
}

// TotalSize returns the cached total size (call ComputeSizes first)
func (n *Node) TotalSize() int64 {
	return n.Size
}

// ComputeSizes calculates and caches sizes for the entire tree
// Call this once after building the tree
func (n *Node) ComputeSizes() int64 {
	if !n.IsDir {
		return n.Size
	}
	var total int64
	for _, child := range n.children {
		total += child.ComputeSizes()
	}
	n.Size = total
	return total
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.children {
		child.walk(fn, depth+1)
	}
}

// CountFiles counts the non-directory entries below n
func (n *Node) CountFiles() int {
	if !n.IsDir {
		return 1
	}
	count := 0
	for _, child := range n.children {
		count += child.CountFiles()
	}
	return count
}
