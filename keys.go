package stopmotion

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap binds keys to session operations.
type KeyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Play    key.Binding
	Capture key.Binding
	Live    key.Binding
	Delete  key.Binding
	Undo    key.Binding
	Export  key.Binding
	Reset   key.Binding
	Reload  key.Binding
	Overlay key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the bindings of the capture station keyboard.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Prev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev"),
		),
		Next: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next"),
		),
		Faster: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "fps+"),
		),
		Slower: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "fps-"),
		),
		Play: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play"),
		),
		Capture: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "capture"),
		),
		Live: key.NewBinding(
			key.WithKeys("f12"),
			key.WithHelp("f12", "live"),
		),
		Delete: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "delete"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("^z", "undo"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("^e", "export"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("^r", "reset"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("^l", "reload"),
		),
		Overlay: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Prev, k.Next, k.Play, k.Delete, k.Undo, k.Live, k.Overlay, k.Export, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Capture, k.Live, k.Overlay},
		{k.Prev, k.Next, k.Play, k.Faster, k.Slower},
		{k.Delete, k.Undo, k.Reload},
		{k.Export, k.Reset, k.Quit},
	}
}
