package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorPrimary    = lipgloss.Color("#7D56F4")
	ColorSecondary  = lipgloss.Color("#5A4FCF")
	ColorSuccess    = lipgloss.Color("#73F59F")
	ColorWarning    = lipgloss.Color("#F5A623")
	ColorDanger     = lipgloss.Color("#F56565")
	ColorMuted      = lipgloss.Color("#6B7280")
	ColorBorder     = lipgloss.Color("#3F3F46")
	ColorBackground = lipgloss.Color("#1F1F23")
	ColorCyan       = lipgloss.Color("#00FFFF")
	ColorDir        = lipgloss.Color("#22D3EE") // neon cyan
	ColorFile       = lipgloss.Color("#A1A1AA")

	// Live change colors
	ColorCreated = lipgloss.Color("#FDE047") // yellow
	ColorDeleted = lipgloss.Color("#FCA5A5") // light red
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Background(ColorBackground).
			Padding(0, 1)

	RootTab = lipgloss.NewStyle().
		Background(ColorPrimary).
		Foreground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1).
		Bold(true)

	StatsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E4E4E7"))

	LiveBadge = lipgloss.NewStyle().
			Background(ColorSuccess).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Bold(true)

	// Tree
	TreePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TreeItemSelected = lipgloss.NewStyle().
				Background(ColorPrimary).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	TreeItemSelectedUnfocused = lipgloss.NewStyle().
					Background(lipgloss.Color("#3B2F6B")).
					Foreground(lipgloss.Color("#E0E0E0"))

	// Treemap
	TreemapPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1)

	// Details line
	DetailsStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	// Help bar
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	HelpKey = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	// Change indicators
	CreatedStyle = lipgloss.NewStyle().
			Foreground(ColorCreated)

	DeletedStyle = lipgloss.NewStyle().
			Foreground(ColorDeleted)

	NewBadge = lipgloss.NewStyle().
			Background(ColorCreated).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)
)

// FormatSize formats bytes to human readable string
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1fTB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1fGB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1fMB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1fKB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
