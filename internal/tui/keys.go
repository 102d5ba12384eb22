package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Pick    key.Binding
	Upload  key.Binding
	Submit  key.Binding
	Retry   key.Binding
	History key.Binding
	Select  key.Binding
	Back    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Pick:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "choose PDF")),
	Upload:  key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload")),
	Submit:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit query")),
	Retry:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
	History: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "history")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// footer renders bindings as "[key] Action" pairs.
func footer(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, "["+h.Key+"] "+h.Desc)
	}
	return footerStyle.Render(strings.Join(parts, "  "))
}
