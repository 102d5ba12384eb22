package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/policyqa/internal/document"
)

type pdfItem struct {
	entry  document.Entry
	recent bool
}

func (i pdfItem) FilterValue() string { return i.entry.Name }

type pdfItemDelegate struct{}

func (d pdfItemDelegate) Height() int                             { return 1 }
func (d pdfItemDelegate) Spacing() int                            { return 0 }
func (d pdfItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d pdfItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(pdfItem)
	if !ok {
		return
	}
	line := fmt.Sprintf("%-40s %8s", it.entry.Name, document.HumanSize(it.entry.Size))
	if it.recent {
		line += "  " + labelStyle.Render("recent")
	}
	if index == m.Index() {
		fmt.Fprint(w, selectedStyle.Render("> "+line))
		return
	}
	fmt.Fprint(w, "  "+line)
}

// filePicker lists recently selected PDFs followed by the PDFs of one
// folder, narrowed by a substring filter.
type filePicker struct {
	dir     string
	input   textinput.Model
	list    list.Model
	recent  []document.Entry
	entries []document.Entry
}

func newFilePicker(dir string) filePicker {
	inp := textinput.New()
	inp.Placeholder = "filter"
	inp.Prompt = "> "
	inp.Cursor.SetMode(cursor.CursorStatic)
	inp.Focus()
	lst := list.New(nil, pdfItemDelegate{}, 60, 12)
	lst.SetShowTitle(false)
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	return filePicker{dir: dir, input: inp, list: lst}
}

// setEntries drops folder entries already shown in the recent group.
func (p *filePicker) setEntries(recent, entries []document.Entry) {
	seen := make(map[string]bool, len(recent))
	for _, e := range recent {
		seen[e.Path] = true
	}
	p.recent = recent
	p.entries = nil
	for _, e := range entries {
		if !seen[e.Path] {
			p.entries = append(p.entries, e)
		}
	}
	p.input.SetValue("")
	p.refresh()
}

func (p *filePicker) refresh() {
	q := strings.ToLower(strings.TrimSpace(p.input.Value()))
	items := make([]list.Item, 0, len(p.recent)+len(p.entries))
	for _, e := range p.recent {
		if q == "" || strings.Contains(strings.ToLower(e.Name), q) {
			items = append(items, pdfItem{entry: e, recent: true})
		}
	}
	for _, e := range p.entries {
		if q == "" || strings.Contains(strings.ToLower(e.Name), q) {
			items = append(items, pdfItem{entry: e})
		}
	}
	_ = p.list.SetItems(items)
	p.list.Select(0)
}

// selected returns the highlighted entry, if any.
func (p *filePicker) selected() (document.Entry, bool) {
	it, ok := p.list.SelectedItem().(pdfItem)
	if !ok {
		return document.Entry{}, false
	}
	return it.entry, true
}

func (p *filePicker) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		p.list, cmd = p.list.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.refresh()
	}
	return cmd
}

func (p *filePicker) view(width, height int) string {
	if width > 0 {
		p.list.SetWidth(width)
	}
	if height > 0 {
		p.list.SetHeight(max(4, height-8))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Choose a PDF") + "\n")
	b.WriteString(labelStyle.Render(p.dir) + "\n")
	b.WriteString(p.input.View() + "\n")
	if len(p.recent)+len(p.entries) == 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf(msgNoPDFsInFolder, p.dir)) + "\n")
	} else {
		b.WriteString(p.list.View() + "\n")
	}
	b.WriteString(footer(keys.Select, keys.Back))
	return b.String()
}
