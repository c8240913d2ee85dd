package app

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings used in handleKey.
type keyMap struct {
	StartStop key.Binding
	Left      key.Binding
	Right     key.Binding
	Highlight key.Binding
	Device    key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		StartStop: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("Space", "Start/Stop"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "Prev word"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "Next word"),
		),
		Highlight: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "Highlight"),
		),
		Device: key.NewBinding(
			key.WithKeys("i", "I"),
			key.WithHelp("i", "Device"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
	}
}

// footer lists the bindings shown after Start/Stop in the footer.
func (k keyMap) footer() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Highlight, k.Device, k.Quit}
}
