package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jeffwilliams/squarify"

	"github.com/lumipallolabs/treewatch/internal/model"
)

// Block represents a rectangle in the treemap
type Block struct {
	Node          *model.Node
	Size          int64
	X, Y          int
	Width, Height int
	// For grouped items (when Node is nil)
	IsGrouped  bool
	GroupCount int
}

const (
	minBlockWidth   = 8  // minimum width for any block (fits short label)
	minBlockHeight  = 3  // minimum height for any block (border + 1 line text)
	maxVisibleItems = 15 // max items before grouping remainder into "N more"

	treemapMarginH = 2 // margin for rightmost block borders
)

// TreemapPanel displays the children of the focused directory as nested
// rectangles sized by their total size
type TreemapPanel struct {
	tree       *model.Tree
	focus      *model.Node
	selected   *model.Node
	blocks     []Block
	fresh      map[string]bool
	showHidden bool
	width      int
	height     int
	focused    bool
}

// NewTreemapPanel creates a new treemap panel
func NewTreemapPanel() TreemapPanel {
	return TreemapPanel{showHidden: true}
}

// SetTree attaches the panel to tree and focuses its root
func (t *TreemapPanel) SetTree(tree *model.Tree) {
	t.tree = tree
	t.focus = nil
	t.selected = nil
	if tree != nil {
		t.focus = tree.Root()
		t.selected = tree.Root()
	}
	t.Refresh()
}

// SetSize sets the panel dimensions
func (t *TreemapPanel) SetSize(w, h int) {
	if t.width != w || t.height != h {
		t.width = w
		t.height = h
		t.Refresh()
	}
}

// SetFocused sets focus state
func (t *TreemapPanel) SetFocused(focused bool) {
	t.focused = focused
}

// SetShowHidden toggles dotfile visibility
func (t *TreemapPanel) SetShowHidden(show bool) {
	t.showHidden = show
	t.Refresh()
}

// SetFresh marks paths that were created recently
func (t *TreemapPanel) SetFresh(paths map[string]bool) {
	t.fresh = paths
}

// SetSelected selects node and shows its parent directory so the node
// appears among its siblings. The root shows itself.
func (t *TreemapPanel) SetSelected(node *model.Node) {
	if node == nil || t.tree == nil {
		return
	}
	t.tree.View(func(root *model.Node) {
		t.selected = node
		t.focus = node
		if p, ok := node.Parent(); ok {
			t.focus = p
		}
		t.layout(root)
	})
}

// Selected returns the currently selected node
func (t TreemapPanel) Selected() *model.Node {
	return t.selected
}

// Focus returns the directory being displayed
func (t TreemapPanel) Focus() *model.Node {
	return t.focus
}

// Blocks returns the current layout
func (t TreemapPanel) Blocks() []Block {
	return t.blocks
}

// SelectFirst selects the first non-grouped block
func (t *TreemapPanel) SelectFirst() {
	for _, b := range t.blocks {
		if !b.IsGrouped && b.Node != nil {
			t.selected = b.Node
			return
		}
	}
}

// ZoomIn focuses on the selected folder
func (t *TreemapPanel) ZoomIn() {
	if t.tree == nil || t.selected == nil || !t.selected.IsDir {
		return
	}
	t.tree.View(func(root *model.Node) {
		if len(t.selected.Children()) == 0 {
			return
		}
		t.focus = t.selected
		t.layout(root)
	})
	t.SelectFirst()
}

// ZoomOut goes to parent folder
func (t *TreemapPanel) ZoomOut() {
	if t.tree == nil || t.focus == nil {
		return
	}
	t.tree.View(func(root *model.Node) {
		p, ok := t.focus.Parent()
		if !ok {
			return
		}
		t.selected = t.focus
		t.focus = p
		t.layout(root)
	})
}

// Refresh recomputes the layout from the live tree. A focus or selection
// that has been removed falls back to its closest attached ancestor.
func (t *TreemapPanel) Refresh() {
	if t.tree == nil {
		t.blocks = nil
		return
	}
	t.tree.View(func(root *model.Node) {
		t.layout(root)
	})
}

// MoveToBlock moves selection to an adjacent block
func (t *TreemapPanel) MoveToBlock(dx, dy int) {
	var current *Block
	for i := range t.blocks {
		if !t.blocks[i].IsGrouped && t.blocks[i].Node == t.selected {
			current = &t.blocks[i]
			break
		}
	}
	if current == nil {
		t.SelectFirst()
		return
	}

	cx := current.X + current.Width/2
	cy := current.Y + current.Height/2

	var best *Block
	bestDist := -1
	for i := range t.blocks {
		block := &t.blocks[i]
		if block.IsGrouped || block.Node == nil || block.Node == t.selected {
			continue
		}

		bx := block.X + block.Width/2
		by := block.Y + block.Height/2

		if (dx > 0 && bx <= cx) || (dx < 0 && bx >= cx) ||
			(dy > 0 && by <= cy) || (dy < 0 && by >= cy) {
			continue
		}

		if dist := abs(bx-cx) + abs(by-cy); bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = block
		}
	}
	if best != nil {
		t.selected = best.Node
	}
}

// treemapItem wraps a node for the squarify algorithm
type treemapItem struct {
	node     *model.Node
	size     float64
	children []*treemapItem
}

// Size implements squarify.TreeSizer
func (t *treemapItem) Size() float64 {
	return t.size
}

// NumChildren implements squarify.TreeSizer
func (t *treemapItem) NumChildren() int {
	return len(t.children)
}

// Child implements squarify.TreeSizer
func (t *treemapItem) Child(i int) squarify.TreeSizer {
	return t.children[i]
}

func (t TreemapPanel) contentSize() (int, int) {
	return max(t.width-treemapMarginH, 1), max(t.height, 1)
}

// layout calculates block positions. Caller holds the read lock.
func (t *TreemapPanel) layout(root *model.Node) {
	t.blocks = nil
	t.focus = attachedAncestor(t.focus, root)
	t.selected = attachedAncestor(t.selected, root)

	if t.focus == nil || t.width <= 2 || t.height <= 2 {
		return
	}

	var nodes []*model.Node
	for _, n := range t.focus.Children() {
		if !t.showHidden && isHidden(n.Name) {
			continue
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		// Single file or empty dir - show as single block
		nodes = []*model.Node{t.focus}
	}
	model.SortBySize(nodes)

	items := make([]*treemapItem, len(nodes))
	for i, n := range nodes {
		items[i] = &treemapItem{node: n, size: math.Max(float64(n.TotalSize()), 1)}
	}

	contentW, contentH := t.contentSize()
	rect := squarify.Rect{W: float64(contentW), H: float64(contentH)}
	canGroup := contentH >= 2*minBlockHeight

	for visible := min(len(items), maxVisibleItems); visible >= 1; visible-- {
		rest := len(items) - visible
		if rest == 1 {
			// Never show "1 more"
			continue
		}

		mainRect := rect
		if rest > 0 && canGroup {
			mainRect.H -= minBlockHeight
		}
		blocks := squarifyItems(items[:visible], mainRect, contentW, contentH)
		if visible > 1 && (len(blocks) < visible || !allFit(blocks)) {
			continue
		}

		t.blocks = blocks
		if rest > 0 && canGroup {
			t.blocks = append(t.blocks, groupBlock(items[visible:], blocks, contentW, contentH))
		}
		return
	}
}

// squarifyItems lays items out in rect and snaps the result to the grid
func squarifyItems(items []*treemapItem, rect squarify.Rect, contentW, contentH int) []Block {
	root := &treemapItem{children: items}
	for _, item := range items {
		root.size += item.size
	}

	sqBlocks, metas := squarify.Squarify(root, rect, squarify.Options{
		MaxDepth: 1,
		Sort:     true,
	})

	var blocks []Block
	for i, b := range sqBlocks {
		// depth 0 holds the children of root
		if i >= len(metas) || metas[i].Depth != 0 {
			continue
		}
		item, ok := b.TreeSizer.(*treemapItem)
		if !ok {
			continue
		}

		// Round both edges so neighbours share a boundary
		x := int(math.Round(b.X))
		y := int(math.Round(b.Y))
		endX := min(int(math.Round(b.X+b.W)), contentW)
		endY := min(int(math.Round(b.Y+b.H)), contentH)
		x, y = max(x, 0), max(y, 0)
		if endX-x < 1 || endY-y < 1 {
			continue
		}

		blocks = append(blocks, Block{
			Node:   item.node,
			Size:   item.node.TotalSize(),
			X:      x,
			Y:      y,
			Width:  endX - x,
			Height: endY - y,
		})
	}
	return blocks
}

func allFit(blocks []Block) bool {
	for _, b := range blocks {
		if b.Width < minBlockWidth || b.Height < minBlockHeight {
			return false
		}
	}
	return true
}

// groupBlock builds the "N more" strip directly below the main blocks
func groupBlock(rest []*treemapItem, main []Block, contentW, contentH int) Block {
	var size int64
	for _, item := range rest {
		size += item.node.TotalSize()
	}
	top := 0
	for _, b := range main {
		top = max(top, b.Y+b.Height)
	}
	return Block{
		Size:       size,
		X:          0,
		Y:          top,
		Width:      contentW,
		Height:     max(contentH-top, 1),
		IsGrouped:  true,
		GroupCount: len(rest),
	}
}

// attachedAncestor returns n if it is still reachable from root, otherwise
// its nearest ancestor that is. Detached chains resolve to root.
func attachedAncestor(n, root *model.Node) *model.Node {
	if n == nil {
		return root
	}
	for cur := n; ; {
		if reachable(cur, root) {
			return cur
		}
		p, ok := cur.Parent()
		if !ok {
			return root
		}
		cur = p
	}
}

func reachable(n, root *model.Node) bool {
	for cur := n; ; {
		if cur == root {
			return true
		}
		p, ok := cur.Parent()
		if !ok {
			return false
		}
		cur = p
	}
}

// View renders the treemap
func (t TreemapPanel) View() string {
	if t.focus == nil {
		return TreemapPanelStyle.Render("No data")
	}

	_, contentH := t.contentSize()

	type renderedBlock struct {
		block Block
		lines []string
	}
	var rendered []renderedBlock
	for _, block := range t.blocks {
		rendered = append(rendered, renderedBlock{block, strings.Split(t.renderBlock(block), "\n")})
	}

	// Composite line by line, padding the gaps between blocks
	type segment struct {
		x, width int
		line     string
	}
	var out []string
	for y := 0; y < contentH; y++ {
		var segments []segment
		for _, rb := range rendered {
			idx := y - rb.block.Y
			if idx >= 0 && idx < len(rb.lines) && idx < rb.block.Height {
				segments = append(segments, segment{rb.block.X, rb.block.Width, rb.lines[idx]})
			}
		}
		sort.Slice(segments, func(i, j int) bool {
			return segments[i].x < segments[j].x
		})

		var line strings.Builder
		x := 0
		for _, seg := range segments {
			if seg.x > x {
				line.WriteString(strings.Repeat(" ", seg.x-x))
			}
			line.WriteString(seg.line)
			x = seg.x + seg.width
		}
		out = append(out, line.String())
	}

	return lipgloss.NewStyle().Height(t.height).MaxHeight(t.height).Render(strings.Join(out, "\n"))
}

// renderBlock renders a complete block with its border
func (t TreemapPanel) renderBlock(block Block) string {
	var fgColor, borderColor lipgloss.Color
	switch {
	case block.IsGrouped:
		fgColor = ColorMuted
		borderColor = lipgloss.Color("#4B5563")
	case block.Node != nil && t.fresh[block.Node.Path]:
		fgColor = ColorCreated
		borderColor = ColorCreated
	case block.Node != nil && block.Node.IsDir:
		fgColor = ColorDir
		borderColor = ColorDir
	default:
		fgColor = ColorFile
		borderColor = ColorMuted
	}

	isSelected := block.Node != nil && block.Node == t.selected
	if isSelected && t.focused {
		fgColor = lipgloss.Color("#FFFFFF")
		borderColor = ColorPrimary
	} else if isSelected {
		fgColor = lipgloss.Color("#E0E0E0")
		borderColor = lipgloss.Color("#9D7CD8") // dimmer violet
	}

	label := ""
	if block.IsGrouped {
		label = fmt.Sprintf("%d more", block.GroupCount)
	} else if block.Node != nil {
		label = block.Node.Name
	}

	innerW := max(block.Width-2, 0)
	innerH := max(block.Height-2, 0)

	text := label
	if innerH > 1 {
		text = label + "\n" + FormatSize(block.Size)
	}

	style := lipgloss.NewStyle().
		Width(innerW).
		Height(innerH).
		MaxWidth(block.Width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Foreground(fgColor).
		Bold(isSelected)

	return style.Render(text)
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
