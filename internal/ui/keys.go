package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings available while a command runs.
type keyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "Abort"),
		),
	}
}
