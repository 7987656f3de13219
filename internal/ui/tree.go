package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumipallolabs/treewatch/internal/model"
)

const treeSizeBarWidth = 4 // Width of size proportion bar [████]

// treeRow is a snapshot of one visible node, taken under the read lock so
// rendering never touches the live graph
type treeRow struct {
	node       *model.Node
	depth      int
	size       int64
	parentSize int64
	expanded   bool
	children   int
}

// TreePanel displays the folder tree in insertion order
type TreePanel struct {
	tree       *model.Tree
	cursor     int
	expanded   map[string]bool
	rows       []treeRow
	fresh      map[string]bool
	showHidden bool
	width      int
	height     int
	focused    bool
	offset     int // scroll offset
}

// NewTreePanel creates a new tree panel
func NewTreePanel() TreePanel {
	return TreePanel{
		expanded:   make(map[string]bool),
		showHidden: true,
	}
}

// SetTree attaches the panel to tree and resets navigation
func (t *TreePanel) SetTree(tree *model.Tree) {
	t.tree = tree
	t.cursor = 0
	t.offset = 0
	t.expanded = make(map[string]bool)
	if tree != nil {
		t.expanded[tree.Root().Path] = true
	}
	t.Refresh()
}

// Refresh rebuilds the visible rows from the live tree. The cursor stays on
// the same path when it still exists, otherwise it moves to the nearest row.
func (t *TreePanel) Refresh() {
	selected := ""
	if node := t.Selected(); node != nil {
		selected = node.Path
	}

	t.rows = nil
	if t.tree == nil {
		return
	}
	t.tree.View(func(root *model.Node) {
		t.collect(root, 0, 0)
	})

	if selected == "" {
		t.clampCursor()
		return
	}
	if i := t.indexOf(selected); i >= 0 {
		t.cursor = i
	} else {
		t.clampCursor()
	}
	t.ensureVisible()
}

func (t *TreePanel) collect(node *model.Node, depth int, parentSize int64) {
	row := treeRow{
		node:       node,
		depth:      depth,
		size:       node.TotalSize(),
		parentSize: parentSize,
		expanded:   node.IsDir && t.expanded[node.Path],
		children:   len(node.Children()),
	}
	t.rows = append(t.rows, row)

	if !row.expanded {
		return
	}
	for _, child := range node.Children() {
		if !t.showHidden && isHidden(child.Name) {
			continue
		}
		t.collect(child, depth+1, row.size)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// SetSize sets the panel dimensions
func (t *TreePanel) SetSize(w, h int) {
	t.width = w
	t.height = h
	t.ensureVisible()
}

// SetFocused sets focus state
func (t *TreePanel) SetFocused(focused bool) {
	t.focused = focused
}

// SetShowHidden toggles dotfile visibility
func (t *TreePanel) SetShowHidden(show bool) {
	t.showHidden = show
	t.Refresh()
}

// SetFresh marks paths that were created recently
func (t *TreePanel) SetFresh(paths map[string]bool) {
	t.fresh = paths
}

// Selected returns the currently selected node
func (t TreePanel) Selected() *model.Node {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor].node
	}
	return nil
}

// Len returns the number of visible rows
func (t TreePanel) Len() int {
	return len(t.rows)
}

// MoveUp moves cursor up
func (t *TreePanel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureVisible()
	}
}

// MoveDown moves cursor down
func (t *TreePanel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.ensureVisible()
	}
}

// PageUp moves cursor up by quarter page
func (t *TreePanel) PageUp() {
	t.cursor -= t.pageSize()
	t.clampCursor()
	t.ensureVisible()
}

// PageDown moves cursor down by quarter page
func (t *TreePanel) PageDown() {
	t.cursor += t.pageSize()
	t.clampCursor()
	t.ensureVisible()
}

func (t TreePanel) pageSize() int {
	pageSize := (t.height - 4) / 4
	if pageSize < 1 {
		pageSize = 1
	}
	return pageSize
}

// Collapse collapses the current folder, or jumps to the parent row
func (t *TreePanel) Collapse() {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return
	}
	row := t.rows[t.cursor]
	if row.expanded && row.depth > 0 {
		delete(t.expanded, row.node.Path)
		t.Refresh()
		return
	}
	for i := t.cursor - 1; i >= 0; i-- {
		if t.rows[i].depth < row.depth {
			t.cursor = i
			t.ensureVisible()
			return
		}
	}
}

// Expand expands current folder
func (t *TreePanel) Expand() {
	if node := t.Selected(); node != nil && node.IsDir {
		t.expanded[node.Path] = true
		t.Refresh()
	}
}

// Toggle toggles expand/collapse of current folder
func (t *TreePanel) Toggle() {
	if node := t.Selected(); node != nil && node.IsDir {
		if t.expanded[node.Path] {
			delete(t.expanded, node.Path)
		} else {
			t.expanded[node.Path] = true
		}
		t.Refresh()
	}
}

// GoToTop moves to first item
func (t *TreePanel) GoToTop() {
	t.cursor = 0
	t.offset = 0
}

// GoToBottom moves to last item
func (t *TreePanel) GoToBottom() {
	t.cursor = len(t.rows) - 1
	t.clampCursor()
	t.ensureVisible()
}

// ExpandTo expands the ancestors of path and selects it
func (t *TreePanel) ExpandTo(path string) {
	if t.tree == nil {
		return
	}
	t.tree.View(func(root *model.Node) {
		var node *model.Node
		root.Walk(func(n *model.Node, _ int) bool {
			if node != nil {
				return false
			}
			if n.Path == path {
				node = n
				return false
			}
			return n.IsDir
		})
		if node == nil {
			return
		}
		for p, ok := node.Parent(); ok; p, ok = p.Parent() {
			t.expanded[p.Path] = true
		}
	})
	t.Refresh()
	if i := t.indexOf(path); i >= 0 {
		t.cursor = i
		t.ensureVisible()
	}
}

func (t TreePanel) indexOf(path string) int {
	for i, row := range t.rows {
		if row.node.Path == path {
			return i
		}
	}
	return -1
}

func (t *TreePanel) clampCursor() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreePanel) ensureVisible() {
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	maxVisible := t.height - 2 // account for borders
	if maxVisible < 1 {
		maxVisible = 1
	}
	if t.cursor >= t.offset+maxVisible {
		t.offset = t.cursor - maxVisible + 1
	}
}

// RequiredWidth calculates the minimum width needed to display all visible content
func (t TreePanel) RequiredWidth() int {
	if len(t.rows) == 0 {
		return 30
	}
	maxWidth := 0
	for _, row := range t.rows {
		if w := lipgloss.Width(t.buildLine(row)); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth + 2
}

// buildLine renders the unstyled text of a row
func (t TreePanel) buildLine(row treeRow) string {
	prefix := strings.Repeat("  ", row.depth)
	switch {
	case row.node.IsDir && row.expanded:
		prefix += "▼ " // down triangle
	case row.node.IsDir:
		prefix += "▶ " // right triangle
	default:
		prefix += "  "
	}

	var badge string
	if t.fresh[row.node.Path] {
		badge = " " + NewBadge.Render("NEW")
	}

	var sizeBar string
	if row.node.IsDir && row.parentSize > 0 {
		sizeBar = " " + sizeBarFor(float64(row.size)/float64(row.parentSize))
	}

	return fmt.Sprintf("%s%s%s%s %s", prefix, row.node.Name, badge, sizeBar, FormatSize(row.size))
}

func sizeBarFor(pct float64) string {
	filledFloat := pct * float64(treeSizeBarWidth)
	filled := int(filledFloat)
	var bar strings.Builder
	for j := 0; j < treeSizeBarWidth; j++ {
		switch {
		case j < filled:
			bar.WriteRune('█')
		case float64(j) < filledFloat+0.5 && filled < treeSizeBarWidth:
			bar.WriteRune('▓')
		default:
			bar.WriteRune('░')
		}
	}
	return "[" + bar.String() + "]"
}

// View renders the tree
func (t TreePanel) View() string {
	if len(t.rows) == 0 {
		return TreePanelStyle.Width(t.width).Height(t.height).Render("No data")
	}

	maxVisible := t.height - 2
	if maxVisible < 1 {
		maxVisible = 1
	}
	maxW := t.width - 2

	var lines []string
	for i := t.offset; i < len(t.rows) && len(lines) < maxVisible; i++ {
		row := t.rows[i]

		var itemStyle lipgloss.Style
		switch {
		case i == t.cursor && t.focused:
			itemStyle = TreeItemSelected.Width(maxW)
		case i == t.cursor:
			itemStyle = TreeItemSelectedUnfocused.Width(maxW)
		case t.fresh[row.node.Path]:
			itemStyle = CreatedStyle
		case row.node.IsDir:
			itemStyle = lipgloss.NewStyle().Foreground(ColorDir)
		default:
			itemStyle = lipgloss.NewStyle().Foreground(ColorFile)
		}
		lines = append(lines, itemStyle.MaxWidth(maxW).Render(t.buildLine(row)))
	}

	style := TreePanelStyle.Width(t.width).Height(t.height)
	if t.focused {
		style = style.BorderForeground(ColorPrimary)
	}
	return style.Render(strings.Join(lines, "\n"))
}
