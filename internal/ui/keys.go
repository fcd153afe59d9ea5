package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the menu's keyboard bindings.
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Apply       key.Binding
	Favorite    key.Binding
	Previous    key.Binding
	Refresh     key.Binding
	NextDisplay key.Binding
	PrevDisplay key.Binding
	Help        key.Binding
	Quit        key.Binding

	// Confirmation modal
	Yes key.Binding
	No  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "Switch to mode"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Toggle favorite"),
		),
		Previous: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Previous mode"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh displays"),
		),
		NextDisplay: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next display"),
		),
		PrevDisplay: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous display"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "Switch anyway"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Apply, k.Favorite, k.Previous, k.NextDisplay, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextDisplay, k.PrevDisplay},
		{k.Apply, k.Favorite, k.Previous, k.Refresh},
		{k.Help, k.Quit},
	}
}
