package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumipallolabs/treewatch/internal/core"
	"github.com/lumipallolabs/treewatch/internal/model"
)

const headerProgressBarWidth = 20 // Width of disk usage progress bar

// Header displays the watched root, live status and volume usage
type Header struct {
	root         string
	volume       *model.Volume
	watch        core.WatchState
	width        int
	scanning     bool
	scanProgress string
}

// NewHeader creates a new header component
func NewHeader(root string, volume *model.Volume) Header {
	return Header{
		root:   root,
		volume: volume,
	}
}

// SetScanning sets the scanning state
func (h *Header) SetScanning(scanning bool, progress string) {
	h.scanning = scanning
	h.scanProgress = progress
}

// ScanProgress returns the current scan progress text
func (h Header) ScanProgress() string {
	return h.scanProgress
}

// SetWatch updates the live watch status
func (h *Header) SetWatch(w core.WatchState) {
	h.watch = w
}

// SetWidth sets the header width
func (h *Header) SetWidth(w int) {
	h.width = w
}

// View renders the header
func (h Header) View() string {
	appName := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#C084FC")). // soft violet
		Bold(true).
		Render("TREEWATCH")

	rootTab := RootTab.Render(h.root)

	// Live status in the middle
	var live string
	if h.watch.Active {
		label := LiveBadge.Render("LIVE")
		dirs := lipgloss.NewStyle().Foreground(ColorMuted).Render(fmt.Sprintf(" %d dirs ", h.watch.Dirs))
		created := CreatedStyle.Render(fmt.Sprintf("+%d", h.watch.Created))
		deleted := DeletedStyle.Render(fmt.Sprintf(" -%d", h.watch.Deleted))
		live = label + dirs + created + deleted
	} else if h.scanning && h.scanProgress != "" {
		live = lipgloss.NewStyle().Foreground(ColorMuted).Render(h.scanProgress)
	}

	// Volume usage on the right
	var stats, statsCompact string
	if v := h.volume; v != nil && !h.scanning {
		usedPct := v.UsedPercent()
		barWidth := headerProgressBarWidth
		filled := int(usedPct / 100 * float64(barWidth))
		if filled > barWidth {
			filled = barWidth
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		stats = StatsStyle.Render(fmt.Sprintf(
			"Used: %s / %s  [%s] %.0f%%",
			FormatSize(v.UsedBytes()),
			FormatSize(v.TotalBytes),
			bar,
			usedPct,
		))
		statsCompact = StatsStyle.Render(fmt.Sprintf(
			"Used: %s / %s",
			FormatSize(v.UsedBytes()),
			FormatSize(v.TotalBytes),
		))
	}

	appNameWidth := lipgloss.Width(appName)
	rootWidth := lipgloss.Width(rootTab)
	liveWidth := lipgloss.Width(live)
	statsWidth := lipgloss.Width(stats)

	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(" │ ")
	sepWidth := lipgloss.Width(sep)

	totalContent := appNameWidth + sepWidth + rootWidth + liveWidth + statsWidth + 4 // +4 for min gaps

	// For narrow terminals, progressively hide elements
	if h.width < totalContent && statsCompact != "" {
		stats = statsCompact
		statsWidth = lipgloss.Width(stats)
		totalContent = appNameWidth + sepWidth + rootWidth + liveWidth + statsWidth + 4
	}
	if h.width < totalContent && statsWidth > 0 {
		stats = ""
		statsWidth = 0
		totalContent = appNameWidth + sepWidth + rootWidth + liveWidth + 2
	}

	remainingSpace := h.width - totalContent
	if remainingSpace < 2 {
		remainingSpace = 2
	}
	leftGap := remainingSpace / 2
	rightGap := remainingSpace - leftGap
	if leftGap < 1 {
		leftGap = 1
	}
	if rightGap < 1 {
		rightGap = 1
	}

	line := appName + sep + rootTab + strings.Repeat(" ", leftGap) + live + strings.Repeat(" ", rightGap) + stats

	return HeaderStyle.MaxHeight(1).Render(line)
}
