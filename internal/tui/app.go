package tui

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/database/repository"
	"github.com/jask/policyqa/internal/document"
	"github.com/jask/policyqa/internal/service"
)

// Asker submits a query text.
type Asker interface {
	Ask(ctx context.Context, text string) (backend.Answer, error)
}

// Uploader sends a selected document.
type Uploader interface {
	Upload(ctx context.Context, sel document.Selection) (backend.UploadReceipt, error)
}

// HistoryReader lists past queries.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]repository.QueryRecord, error)
	Similar(ctx context.Context, text string, limit int) ([]service.ScoredRecord, error)
}

type Services struct {
	Query   Asker
	Upload  Uploader
	History HistoryReader // optional
}

type Options struct {
	PickerDir    string
	File         string // preselected at startup when set
	HistoryLimit int
	// Recent holds previously selected files, newest first.
	Recent []string
	// Remember is called with each selected path; errors are ignored.
	Remember func(path string) error
}

const recentShown = 5

// App is the page controller: one form, one status region, one result panel.
type App struct {
	ctx      context.Context
	services Services
	opts     Options
	state    appState
	width    int
	height   int

	selection *document.Selection
	query     textarea.Model
	result    *backend.QueryResult

	uploadStatus CallStatus
	queryStatus  CallStatus

	// Only the response carrying the latest sequence number is applied.
	uploadSeq    int
	querySeq     int
	uploadCancel context.CancelFunc
	queryCancel  context.CancelFunc
	lastUpload   document.Selection
	lastQuery    string

	picker  filePicker
	recent  []string
	notice  string
	history historyView
}

type appState string

const (
	viewForm          appState = "form"
	viewPicker        appState = "picker"
	viewHistory       appState = "history"
	viewHistoryDetail appState = "historyDetail"
)

func New(ctx context.Context, services Services, opts Options) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PickerDir == "" {
		opts.PickerDir = "."
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	ta := textarea.New()
	ta.Placeholder = "Enter your query..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(5)
	ta.SetWidth(80)
	ta.Cursor.SetMode(cursor.CursorStatic)
	ta.Focus()
	return &App{
		ctx:          ctx,
		services:     services,
		opts:         opts,
		state:        viewForm,
		query:        ta,
		uploadStatus: idle(),
		queryStatus:  idle(),
		picker:       newFilePicker(opts.PickerDir),
		recent:       append([]string(nil), opts.Recent...),
	}
}

func (a *App) Init() tea.Cmd {
	if a.opts.File != "" {
		return selectFileCmd(a.opts.File)
	}
	return nil
}

// Selection returns the currently selected file, or nil.
func (a *App) Selection() *document.Selection { return a.selection }

// Result returns the displayed query result, or nil before the first success.
func (a *App) Result() *backend.QueryResult { return a.result }

func (a *App) UploadStatus() CallStatus { return a.uploadStatus }
func (a *App) QueryStatus() CallStatus  { return a.queryStatus }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		if m.Width > 4 {
			a.query.SetWidth(m.Width - 4)
		}
		return a, nil
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			a.cancelAll()
			return a, tea.Quit
		}
		switch a.state {
		case viewPicker:
			return a.handlePickerKey(m)
		case viewHistory, viewHistoryDetail:
			return a.handleHistoryKey(m)
		}
		return a.handleFormKey(m)
	case pdfListMsg:
		if m.err != nil {
			a.notice = "error: " + m.err.Error()
			a.state = viewForm
			return a, nil
		}
		a.picker.setEntries(m.recent, m.entries)
		a.state = viewPicker
	case fileSelectedMsg:
		a.state = viewForm
		if m.err != nil {
			a.notice = "error: " + m.err.Error()
			return a, nil
		}
		sel := m.sel
		a.selection = &sel
		a.picker.dir = filepath.Dir(sel.Path)
		a.pushRecent(sel.Path)
		a.notice = ""
		if !sel.IsPDF() {
			a.notice = fmt.Sprintf("%s looks like %s, not a PDF", sel.Name, sel.MediaType)
		}
		if remember := a.opts.Remember; remember != nil {
			return a, func() tea.Msg {
				_ = remember(sel.Path)
				return nil
			}
		}
	case uploadDoneMsg:
		if m.seq != a.uploadSeq {
			return a, nil
		}
		a.uploadCancel = nil
		if m.err != nil {
			a.uploadStatus = failed(backend.Describe(m.err))
			return a, nil
		}
		a.uploadStatus = succeeded(msgUploaded)
	case queryDoneMsg:
		if m.seq != a.querySeq {
			return a, nil
		}
		a.queryCancel = nil
		if m.err != nil {
			a.queryStatus = failed(backend.Describe(m.err))
			return a, nil
		}
		res := m.answer.Result
		a.result = &res
		a.queryStatus = succeeded(msgAnswered)
	case historyMsg:
		if m.seq != a.history.seq {
			return a, nil
		}
		a.history.loading = false
		a.history.err = m.err
		a.history.rows = m.rows
		a.history.cursor = 0
	}
	return a, nil
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+o":
		return a, listPDFsCmd(a.picker.dir, a.recent)
	case "ctrl+u":
		return a, a.startUpload()
	case "ctrl+s":
		return a, a.startQuery(a.query.Value())
	case "ctrl+r":
		return a, a.retry()
	case "ctrl+l":
		return a, a.openHistory()
	}
	var cmd tea.Cmd
	a.query, cmd = a.query.Update(m)
	return a, cmd
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.state = viewForm
		return a, nil
	case "enter":
		entry, ok := a.picker.selected()
		if !ok {
			return a, nil
		}
		return a, selectFileCmd(entry.Path)
	}
	return a, a.picker.update(m)
}

// startUpload guards the missing-file case and otherwise sends the current selection.
func (a *App) startUpload() tea.Cmd {
	if a.selection == nil {
		a.uploadStatus = missingInput(msgSelectPDF)
		return nil
	}
	return a.sendUpload(*a.selection)
}

func (a *App) sendUpload(sel document.Selection) tea.Cmd {
	if a.uploadCancel != nil {
		a.uploadCancel()
	}
	a.uploadSeq++
	seq := a.uploadSeq
	ctx, cancel := context.WithCancel(a.ctx)
	a.uploadCancel = cancel
	a.lastUpload = sel
	a.uploadStatus = pending()
	svc := a.services.Upload
	return func() tea.Msg {
		defer cancel()
		receipt, err := svc.Upload(ctx, sel)
		return uploadDoneMsg{seq: seq, receipt: receipt, err: err}
	}
}

// startQuery guards the empty-text case. Text is sent as typed.
// An empty submit while a query is in flight leaves that query running.
func (a *App) startQuery(text string) tea.Cmd {
	if text == "" {
		if a.queryStatus.Phase != PhasePending {
			a.queryStatus = missingInput(msgEnterQuery)
		}
		return nil
	}
	if a.queryCancel != nil {
		a.queryCancel()
	}
	a.querySeq++
	seq := a.querySeq
	ctx, cancel := context.WithCancel(a.ctx)
	a.queryCancel = cancel
	a.lastQuery = text
	a.queryStatus = pending()
	svc := a.services.Query
	return func() tea.Msg {
		defer cancel()
		ans, err := svc.Ask(ctx, text)
		return queryDoneMsg{seq: seq, answer: ans, err: err}
	}
}

// retry resends whichever calls last failed.
func (a *App) retry() tea.Cmd {
	var cmds []tea.Cmd
	if a.uploadStatus.Retryable() {
		cmds = append(cmds, a.sendUpload(a.lastUpload))
	}
	if a.queryStatus.Retryable() {
		cmds = append(cmds, a.startQuery(a.lastQuery))
	}
	return tea.Batch(cmds...)
}

func (a *App) pushRecent(path string) {
	out := []string{path}
	for _, p := range a.recent {
		if p != path {
			out = append(out, p)
		}
	}
	if len(out) > recentShown {
		out = out[:recentShown]
	}
	a.recent = out
}

func (a *App) cancelAll() {
	if a.uploadCancel != nil {
		a.uploadCancel()
	}
	if a.queryCancel != nil {
		a.queryCancel()
	}
}

func (a *App) View() string {
	switch a.state {
	case viewPicker:
		return a.picker.view(a.width, a.height)
	case viewHistory:
		return a.renderHistory()
	case viewHistoryDetail:
		return a.renderHistoryDetail()
	}
	return a.renderForm()
}

// commands

func listPDFsCmd(dir string, recent []string) tea.Cmd {
	recent = append([]string(nil), recent...)
	return func() tea.Msg {
		entries, err := document.ListPDFs(dir)
		if err != nil {
			return pdfListMsg{err: err}
		}
		var rows []document.Entry
		for _, p := range recent {
			if len(rows) == recentShown {
				break
			}
			if e, err := document.StatPDF(p); err == nil {
				rows = append(rows, e)
			}
		}
		return pdfListMsg{recent: rows, entries: entries}
	}
}

func selectFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		sel, err := document.Select(path)
		if err != nil {
			return fileSelectedMsg{err: fmt.Errorf("select %s: %w", filepath.Base(path), err)}
		}
		return fileSelectedMsg{sel: sel}
	}
}

type pdfListMsg struct {
	recent  []document.Entry
	entries []document.Entry
	err     error
}

type fileSelectedMsg struct {
	sel document.Selection
	err error
}

type uploadDoneMsg struct {
	seq     int
	receipt backend.UploadReceipt
	err     error
}

type queryDoneMsg struct {
	seq    int
	answer backend.Answer
	err    error
}
