package ui

import "github.com/charmbracelet/lipgloss"

// Palette colors (Dracula).
const (
	colorText    = "#F8F8F2"
	colorMuted   = "#6272A4"
	colorAccent  = "#BD93F9"
	colorSuccess = "#50FA7B"
	colorWarning = "#FFB86C"
	colorDanger  = "#FF5555"
	colorSelBg   = "#44475A"
	colorFav     = "#F1FA8C"
)

// Styles contains pre-built Lipgloss styles for the menu.
type Styles struct {
	Title      lipgloss.Style
	Section    lipgloss.Style
	Item       lipgloss.Style
	Selected   lipgloss.Style
	Current    lipgloss.Style
	Favorite   lipgloss.Style
	Risky      lipgloss.Style
	MutedText  lipgloss.Style
	StatusOK   lipgloss.Style
	StatusErr  lipgloss.Style
	ModalFrame lipgloss.Style
}

// DefaultStyles returns the menu styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAccent)).
			Bold(true).
			Padding(0, 1),

		Section: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted)).
			Bold(true).
			MarginTop(1),

		Item: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(colorSelBg)).
			Foreground(lipgloss.Color(colorText)).
			Bold(true),

		Current: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess)),

		Favorite: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorFav)),

		Risky: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWarning)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted)),

		StatusOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess)),

		StatusErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDanger)).
			Bold(true),

		ModalFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorWarning)).
			Padding(1, 2),
	}
}
