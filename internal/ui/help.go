package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

const helpKeyColumnWidth = 12 // Width for key column in help text

// helpSections lists the overlay content as {key, description} pairs
var helpSections = []struct {
	title string
	lines [][2]string
}{
	{"NAVIGATION", [][2]string{
		{"arrows/hjkl", "Navigate"},
		{"PgUp/PgDn", "Scroll faster"},
		{"g/G", "Jump to top/bottom"},
		{"Tab", "Switch panel"},
	}},
	{"ACTIONS", [][2]string{
		{"Enter", "Expand / zoom into directory"},
		{"Esc/⌫", "Go back / Close overlay"},
		{"Space", "Preview file"},
		{"o", "Open in file manager"},
		{".", "Show/hide dotfiles"},
		{"r", "Rescan and restart watching"},
	}},
	{"OTHER", [][2]string{
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}},
}

// HelpOverlay displays keyboard shortcuts in a centered overlay
type HelpOverlay struct {
	visible bool
	width   int
	height  int
}

// NewHelpOverlay creates a new help overlay component
func NewHelpOverlay() HelpOverlay {
	return HelpOverlay{}
}

// Toggle toggles the visibility of the help overlay
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// SetVisible sets the visibility of the help overlay
func (h *HelpOverlay) SetVisible(visible bool) {
	h.visible = visible
}

// IsVisible returns whether the help overlay is visible
func (h HelpOverlay) IsVisible() bool {
	return h.visible
}

// SetSize sets the dimensions of the help overlay
func (h *HelpOverlay) SetSize(w, ht int) {
	h.width = w
	h.height = ht
}

// View renders the help overlay
func (h HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)

	titleStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Bold(true).
		MarginTop(1)

	keyStyle := HelpKey
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E4E4E7"))

	var content strings.Builder
	content.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	content.WriteString("\n")

	for _, section := range helpSections {
		content.WriteString(sectionStyle.Render(section.title))
		content.WriteString("\n")
		for _, line := range section.lines {
			content.WriteString(formatHelpLine(keyStyle, descStyle, line[0], line[1]))
		}
	}

	content.WriteString(sectionStyle.Render("LIVE CHANGES"))
	content.WriteString("\n")
	content.WriteString(formatColorLine(ColorCreated, "Created in the last few seconds"))
	content.WriteString(strings.TrimSuffix(formatColorLine(ColorDeleted, "Deletions counted in the header"), "\n"))

	box := boxStyle.Render(content.String())

	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, box)
}

// formatHelpLine formats a single help line with key and description
func formatHelpLine(keyStyle, descStyle lipgloss.Style, key, desc string) string {
	return keyStyle.Width(helpKeyColumnWidth).Render(key) + descStyle.Render(desc) + "\n"
}

// formatColorLine formats a color indicator line
func formatColorLine(color lipgloss.Color, desc string) string {
	colorStyle := lipgloss.NewStyle().Foreground(color)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E4E4E7"))
	return colorStyle.Width(helpKeyColumnWidth).Render("████") + descStyle.Render(desc) + "\n"
}

// HelpBar renders a bottom help bar with key hints
func HelpBar(bindings []key.Binding, width int) string {
	var parts []string
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, HelpKey.Render(h.Key)+HelpStyle.Render(" "+h.Desc))
	}

	bar := strings.Join(parts, HelpStyle.Render("  |  "))

	return HelpStyle.Width(width).MaxHeight(1).Render(bar)
}
