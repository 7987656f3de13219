package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lumipallolabs/treewatch/internal/core"
	"github.com/lumipallolabs/treewatch/internal/logging"
)

// Panel identifies which panel is active
type Panel int

const (
	PanelTree Panel = iota
	PanelTreemap
)

// scanStartMsg triggers the actual scan start (after UI has rendered)
type scanStartMsg struct{}

// coreEventMsg carries one controller event. gen ties it to the scan that
// produced it so events from a replaced channel are ignored.
type coreEventMsg struct {
	gen   int
	event core.Event
}

// channelClosedMsg is sent when a controller channel is drained
type channelClosedMsg struct {
	gen   int
	watch bool
}

// refreshMsg applies pending live changes to the panels
type refreshMsg struct{}

// spinnerTickMsg triggers spinner animation
type spinnerTickMsg struct{}

// Spinner frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Timing constants
const (
	spinnerTickInterval = 80 * time.Millisecond
	borderRotationSpeed = 50  // milliseconds per frame
	dotAnimationSpeed   = 400 // milliseconds per frame
	refreshDelay        = 150 * time.Millisecond
	freshTTL            = 5 * time.Second
)

var scanPhases = []core.ScanPhase{core.PhaseScanning, core.PhaseComputingSizes}

// App is the main application model
type App struct {
	// Components
	header  Header
	tree    TreePanel
	treemap TreemapPanel
	help    HelpOverlay

	keys KeyMap
	ctrl *core.Controller

	// Controller channels, replaced on every rescan
	gen         int
	scanEvents  <-chan core.Event
	watchEvents <-chan core.Event

	// UI state
	activePanel    Panel
	showHidden     bool
	scanning       bool
	scanPhase      core.ScanPhase
	scanFileCount  string
	scanBytesFound string
	refreshPending bool
	fresh          map[string]time.Time
	err            error

	// Dimensions
	width  int
	height int
}

// NewApp creates the application model for a controller
func NewApp(ctrl *core.Controller, showHidden bool) App {
	state := ctrl.State()

	app := App{
		header:      NewHeader(state.Root, state.Volume),
		tree:        NewTreePanel(),
		treemap:     NewTreemapPanel(),
		help:        NewHelpOverlay(),
		keys:        DefaultKeyMap(),
		ctrl:        ctrl,
		activePanel: PanelTree,
		showHidden:  showHidden,
		scanning:    true,
		fresh:       make(map[string]time.Time),
	}

	app.tree.showHidden = showHidden
	app.treemap.showHidden = showHidden
	app.tree.SetFocused(true)
	app.treemap.SetFocused(false)
	app.header.SetScanning(true, "")

	return app
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	// scanStartMsg lets the first frame render before scanning begins
	return tea.Batch(
		tea.SetWindowTitle("TREEWATCH "+a.ctrl.Root()),
		func() tea.Msg { return scanStartMsg{} },
	)
}

// listen waits for the next event on ch
func listen(ch <-chan core.Event, gen int, watch bool) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{gen: gen, watch: watch}
		}
		return coreEventMsg{gen: gen, event: event}
	}
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerTickInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateLayout()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case scanStartMsg:
		return a, a.startScan()

	case coreEventMsg:
		if msg.gen != a.gen {
			return a, nil
		}
		return a.handleEvent(msg.event)

	case channelClosedMsg:
		if msg.gen != a.gen {
			return a, nil
		}
		if msg.watch {
			a.watchEvents = nil
			a.header.SetWatch(a.ctrl.WatchState())
		} else {
			a.scanEvents = nil
		}
		return a, nil

	case refreshMsg:
		a.refreshPending = false
		a.applyChanges()
		if len(a.fresh) > 0 {
			return a, a.scheduleRefresh(freshTTL)
		}
		return a, nil

	case spinnerTickMsg:
		if a.scanning {
			return a, spinnerTick()
		}
		return a, nil
	}

	return a, nil
}

// startScan resets the views and starts a new scan
func (a *App) startScan() tea.Cmd {
	a.gen++
	a.scanning = true
	a.scanPhase = core.PhaseScanning
	a.scanFileCount = ""
	a.scanBytesFound = ""
	a.err = nil
	a.fresh = make(map[string]time.Time)
	a.header.SetScanning(true, "")
	a.header.SetWatch(core.WatchState{})
	a.tree.SetTree(nil)
	a.treemap.SetTree(nil)

	ch, err := a.ctrl.StartScan(context.Background())
	if err != nil {
		a.scanning = false
		a.err = err
		return nil
	}
	a.scanEvents = ch
	return tea.Batch(listen(ch, a.gen, false), spinnerTick())
}

// handleEvent applies a controller event and keeps listening
func (a App) handleEvent(event core.Event) (tea.Model, tea.Cmd) {
	next := listen(a.scanEvents, a.gen, false)

	switch e := event.(type) {
	case core.ScanProgressEvent:
		a.scanFileCount = fmt.Sprintf("%d files", e.FilesScanned)
		a.scanBytesFound = FormatSize(e.BytesFound)
		a.header.SetScanning(true, fmt.Sprintf("%s, %s", a.scanFileCount, a.scanBytesFound))

	case core.ScanPhaseChangedEvent:
		a.scanPhase = e.Phase

	case core.ScanCompletedEvent:
		a.scanning = false
		a.header.SetScanning(false, "")
		if e.Err != nil {
			a.err = e.Err
			logging.Debug.WithError(e.Err).Warn("scan failed")
			return a, next
		}
		a.ctrl.FinalizeScan()
		a.tree.SetTree(e.Tree)
		a.treemap.SetTree(e.Tree)
		a.updateLayout()

		ch, err := a.ctrl.StartWatching()
		if err != nil {
			a.err = err
			logging.Debug.WithError(err).Warn("watching failed")
			return a, next
		}
		a.watchEvents = ch
		return a, tea.Batch(next, listen(ch, a.gen, true))

	case core.WatchStartedEvent:
		a.header.SetWatch(a.ctrl.WatchState())
		return a, listen(a.watchEvents, a.gen, true)

	case core.CreationDetectedEvent:
		a.fresh[e.Path] = time.Now()
		return a, tea.Batch(listen(a.watchEvents, a.gen, true), a.scheduleRefresh(refreshDelay))

	case core.DeletionDetectedEvent:
		delete(a.fresh, e.Path)
		return a, tea.Batch(listen(a.watchEvents, a.gen, true), a.scheduleRefresh(refreshDelay))

	case core.EventsDroppedEvent:
		return a, tea.Batch(listen(a.watchEvents, a.gen, true), a.scheduleRefresh(refreshDelay))

	case core.ErrorEvent:
		a.err = e.Err
	}

	return a, next
}

// scheduleRefresh coalesces bursts of changes into one refresh
func (a *App) scheduleRefresh(after time.Duration) tea.Cmd {
	if a.refreshPending {
		return nil
	}
	a.refreshPending = true
	return tea.Tick(after, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// applyChanges recomputes sizes and redraws the panels from the live tree
func (a *App) applyChanges() {
	now := time.Now()
	paths := make(map[string]bool, len(a.fresh))
	for p, at := range a.fresh {
		if now.Sub(at) >= freshTTL {
			delete(a.fresh, p)
			continue
		}
		paths[p] = true
	}

	a.ctrl.RefreshSizes()
	a.tree.SetFresh(paths)
	a.treemap.SetFresh(paths)
	a.tree.Refresh()
	a.treemap.Refresh()
	a.header.SetWatch(a.ctrl.WatchState())
	a.updateLayout()
}

// handleKey handles keyboard input
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help overlay takes precedence
	if a.help.IsVisible() {
		if key.Matches(msg, a.keys.Help) || key.Matches(msg, a.keys.Back) {
			a.help.SetVisible(false)
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.ctrl.Stop()
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.Toggle()
		return a, nil

	case key.Matches(msg, a.keys.Rescan):
		if a.scanning {
			return a, nil
		}
		a.ctrl.Stop()
		return a, a.startScan()
	}

	if a.scanning {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Tab):
		if a.activePanel == PanelTree {
			a.activePanel = PanelTreemap
			a.tree.SetFocused(false)
			a.treemap.SetFocused(true)
		} else {
			a.activePanel = PanelTree
			a.tree.SetFocused(true)
			a.treemap.SetFocused(false)
			a.syncSelection()
		}

	case key.Matches(msg, a.keys.Up):
		a.move(a.tree.MoveUp, 0, -1)

	case key.Matches(msg, a.keys.Down):
		a.move(a.tree.MoveDown, 0, 1)

	case key.Matches(msg, a.keys.Left):
		a.move(a.tree.Collapse, -1, 0)

	case key.Matches(msg, a.keys.Right):
		a.move(a.tree.Expand, 1, 0)

	case key.Matches(msg, a.keys.Top):
		a.move(a.tree.GoToTop, 0, 0)

	case key.Matches(msg, a.keys.Bottom):
		a.move(a.tree.GoToBottom, 0, 0)

	case key.Matches(msg, a.keys.PageUp):
		a.move(a.tree.PageUp, 0, 0)

	case key.Matches(msg, a.keys.PageDown):
		a.move(a.tree.PageDown, 0, 0)

	case key.Matches(msg, a.keys.Enter):
		if a.activePanel == PanelTreemap {
			a.treemap.ZoomIn()
			if node := a.treemap.Selected(); node != nil {
				a.tree.ExpandTo(node.Path)
			}
		} else {
			a.tree.Toggle()
			a.syncSelection()
		}
		a.updateLayout()

	case key.Matches(msg, a.keys.Back):
		if a.activePanel == PanelTreemap {
			a.treemap.ZoomOut()
		} else {
			a.tree.Collapse()
			a.syncSelection()
		}
		a.updateLayout()

	case key.Matches(msg, a.keys.ToggleHidden):
		a.showHidden = !a.showHidden
		a.tree.SetShowHidden(a.showHidden)
		a.treemap.SetShowHidden(a.showHidden)
		a.syncSelection()
		a.updateLayout()

	case key.Matches(msg, a.keys.OpenExplorer):
		a.openSelected(openInFileManager, true)

	case key.Matches(msg, a.keys.Preview):
		a.openSelected(previewFile, false)
	}

	return a, nil
}

// move applies a tree navigation, or a block move when the treemap is active
func (a *App) move(treeMove func(), dx, dy int) {
	if a.activePanel == PanelTree {
		treeMove()
		a.syncSelection()
		a.updateLayout()
		return
	}
	if dx != 0 || dy != 0 {
		a.treemap.MoveToBlock(dx, dy)
	}
}

// syncSelection syncs the tree selection to the treemap
func (a *App) syncSelection() {
	if node := a.tree.Selected(); node != nil {
		a.treemap.SetSelected(node)
	}
}

// selected returns the node under the cursor of the active panel
func (a App) selected() (path string, isDir bool, ok bool) {
	node := a.tree.Selected()
	if a.activePanel == PanelTreemap {
		node = a.treemap.Selected()
	}
	if node == nil {
		return "", false, false
	}
	return node.Path, node.IsDir, true
}

// openSelected runs open on the selection. Files are opened through their
// directory when dirOnly is set.
func (a App) openSelected(open func(string) error, dirOnly bool) {
	path, isDir, ok := a.selected()
	if !ok {
		return
	}
	if dirOnly && !isDir {
		path = filepath.Dir(path)
	}
	log := logging.Debug.WithField("path", path)
	log.Debug("opening")
	if err := open(path); err != nil {
		log.WithError(err).Warn("open failed")
	}
}

// updateLayout calculates component sizes based on window dimensions
func (a *App) updateLayout() {
	// header, details line and help bar
	panelHeight := max(a.height-3-2, 1)

	// Tree panel takes only what it needs, max 50% of screen
	treeWidth := min(a.tree.RequiredWidth(), a.width/2)
	treeWidth = max(treeWidth, 20)

	a.header.SetWidth(a.width)
	a.tree.SetSize(treeWidth, panelHeight)
	// The tree panel draws a border around its height, blocks bring their own
	a.treemap.SetSize(a.width-treeWidth, panelHeight+2)
	a.help.SetSize(a.width, a.height)
}

// View implements tea.Model
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Scanning " + a.ctrl.Root() + "..."
	}

	sections := []string{a.header.View()}

	if a.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(ColorDanger).Padding(0, 1)
		sections = append(sections, errStyle.Render(fmt.Sprintf("Error: %v", a.err)))
	}

	if a.scanning {
		sections = append(sections, a.scanView())
	} else {
		panels := lipgloss.JoinHorizontal(lipgloss.Top, a.tree.View(), a.treemap.View())
		node := a.tree.Selected()
		if a.activePanel == PanelTreemap {
			node = a.treemap.Selected()
		}
		sections = append(sections, panels, DetailsLine(a.ctrl.Tree(), node, a.width))
	}

	sections = append(sections, HelpBar(a.keys.ShortHelp(), a.width))
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if a.help.IsVisible() {
		return lipgloss.Place(
			a.width, a.height,
			lipgloss.Center, lipgloss.Center,
			a.help.View(),
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(ColorBackground),
		)
	}
	return content
}

// scanView renders the boot-style progress log shown while scanning
func (a App) scanView() string {
	panelHeight := max(a.height-4, 1)

	doneStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	activeStyle := lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)

	now := time.Now()
	spinner := spinnerFrames[int(now.UnixMilli()/spinnerTickInterval.Milliseconds())%len(spinnerFrames)]
	dots := strings.Repeat(".", int(now.UnixMilli()/dotAnimationSpeed)%3+1)

	var lines []string
	for _, phase := range scanPhases {
		if phase > a.scanPhase {
			break
		}
		style, mark, suffix := activeStyle, spinner, dots
		if phase < a.scanPhase {
			style, mark, suffix = doneStyle, "✓", ""
		}
		line := fmt.Sprintf("  %s %s%s", style.Render(mark), style.Render(phase.String()), style.Render(suffix))
		if phase == core.PhaseScanning && a.scanFileCount != "" {
			line += style.Render(fmt.Sprintf(" · %s · %s", a.scanFileCount, a.scanBytesFound))
		}
		lines = append(lines, line)
	}
	for len(lines) < len(scanPhases) {
		lines = append([]string{""}, lines...)
	}

	inner := lipgloss.NewStyle().
		Padding(1, 3).
		Width(48).
		Height(len(scanPhases)).
		Render(strings.Join(lines, "\n"))

	box := renderSpinningBorder(inner, 50, len(scanPhases)+4, now)
	return lipgloss.Place(a.width, panelHeight, lipgloss.Center, lipgloss.Center, box)
}

// renderSpinningBorder draws a rounded box whose gradient border rotates over time
func renderSpinningBorder(content string, width, height int, t time.Time) string {
	shades := []string{
		"#00FFFF", "#00D4FF", "#00AAFF", "#0080FF", "#4060FF", "#8040FF",
		"#A020F0", "#C020C0", "#E040A0", "#FF60B0", "#E040A0", "#C020C0",
		"#A020F0", "#8040FF", "#4060FF", "#0080FF", "#00AAFF", "#00D4FF",
	}

	innerW := width - 2
	innerH := height - 2
	perimeter := 2*innerW + 2*innerH + 4
	offset := int(t.UnixMilli()/borderRotationSpeed) % perimeter

	color := func(pos int) lipgloss.Style {
		adjusted := (pos - offset + perimeter) % perimeter
		return lipgloss.NewStyle().Foreground(lipgloss.Color(shades[adjusted*len(shades)/perimeter%len(shades)]))
	}

	var b strings.Builder
	pos := 0

	b.WriteString(color(pos).Render("╭"))
	pos++
	for i := 0; i < innerW; i++ {
		b.WriteString(color(pos).Render("─"))
		pos++
	}
	b.WriteString(color(pos).Render("╮"))
	pos++
	b.WriteString("\n")

	lines := strings.Split(content, "\n")
	for i := 0; i < innerH; i++ {
		// Left side runs backwards around the perimeter
		b.WriteString(color(perimeter - 1 - i).Render("│"))
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		if w := lipgloss.Width(line); w < innerW {
			line += strings.Repeat(" ", innerW-w)
		}
		b.WriteString(line)
		b.WriteString(color(pos).Render("│"))
		pos++
		b.WriteString("\n")
	}

	b.WriteString(color(perimeter - innerH - 1).Render("╰"))
	for i := 0; i < innerW; i++ {
		b.WriteString(color(pos + innerW - i).Render("─"))
	}
	b.WriteString(color(pos).Render("╯"))

	return b.String()
}
