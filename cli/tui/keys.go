package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings shared by all views.
type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// scroll moves offset by delta within [0, n-1].
func scroll(offset, delta, n int) int {
	offset += delta
	if offset > n-1 {
		offset = n - 1
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// visibleRows is how many list rows fit beside the fixed chrome.
func visibleRows(height, chrome int) int {
	if height <= chrome {
		return 10
	}
	return height - chrome
}
