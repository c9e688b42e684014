package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Add     key.Binding
	Delete  key.Binding
	Refresh key.Binding
	SignOut key.Binding
	Quit    key.Binding

	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
	Abort  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		SignOut: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign out")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),

		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Abort:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// listHelp is shown under the signed-in list.
type listHelp keyMap

func (k listHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Delete, k.Refresh, k.SignOut, k.Quit}
}

func (k listHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type gateHelp keyMap

func (k gateHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Abort}
}

func (k gateHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type addHelp keyMap

func (k addHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

func (k addHelp) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
