package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/policyqa/internal/database/repository"
	"github.com/jask/policyqa/internal/service"
)

type historyRow struct {
	rec      repository.QueryRecord
	distance float64
	ranked   bool
}

type historyView struct {
	seq     int
	probe   string
	rows    []historyRow
	cursor  int
	loading bool
	err     error
}

type historyMsg struct {
	seq  int
	rows []historyRow
	err  error
}

// openHistory switches to the history list. A non-blank query text ranks
// records by similarity instead of recency.
func (a *App) openHistory() tea.Cmd {
	a.state = viewHistory
	a.history.seq++
	a.history.probe = strings.TrimSpace(a.query.Value())
	a.history.rows = nil
	a.history.cursor = 0
	a.history.err = nil
	if a.services.History == nil {
		a.history.err = service.ErrHistoryDisabled
		return nil
	}
	a.history.loading = true
	seq, probe, limit, svc, ctx := a.history.seq, a.history.probe, a.opts.HistoryLimit, a.services.History, a.ctx
	return func() tea.Msg {
		if probe == "" {
			recs, err := svc.Recent(ctx, limit)
			rows := make([]historyRow, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, historyRow{rec: r})
			}
			return historyMsg{seq: seq, rows: rows, err: err}
		}
		scored, err := svc.Similar(ctx, probe, limit)
		rows := make([]historyRow, 0, len(scored))
		for _, s := range scored {
			rows = append(rows, historyRow{rec: s.Record, distance: s.Distance, ranked: true})
		}
		return historyMsg{seq: seq, rows: rows, err: err}
	}
}

func (a *App) handleHistoryKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := &a.history
	switch m.String() {
	case "esc":
		if a.state == viewHistoryDetail {
			a.state = viewHistory
		} else {
			a.state = viewForm
		}
	case "up", "k":
		if a.state == viewHistory && h.cursor > 0 {
			h.cursor--
		}
	case "down", "j":
		if a.state == viewHistory && h.cursor < len(h.rows)-1 {
			h.cursor++
		}
	case "enter":
		if a.state == viewHistory && len(h.rows) > 0 {
			a.state = viewHistoryDetail
		}
	}
	return a, nil
}

func (a *App) renderHistory() string {
	h := a.history
	title := "Query History"
	if h.probe != "" {
		title += " (similar to \"" + truncate(h.probe, 40) + "\")"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	switch {
	case h.err != nil:
		msg := h.err.Error()
		if errors.Is(h.err, service.ErrHistoryDisabled) {
			msg = msgHistoryOff
		}
		b.WriteString(errorStyle.Render(msg) + "\n")
	case h.loading:
		b.WriteString(pendingStyle.Render("Loading...") + "\n")
	case len(h.rows) == 0:
		b.WriteString(labelStyle.Render("No queries yet.") + "\n")
	default:
		for i, r := range h.rows {
			line := fmt.Sprintf("%s  %-10s %s", r.rec.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(r.rec.Decision, 10), truncate(r.rec.Title(), 60))
			if r.ranked {
				line += labelStyle.Render(fmt.Sprintf("  %.0f%%", (1-r.distance)*100))
			}
			if i == h.cursor {
				b.WriteString(selectedStyle.Render("> "+line) + "\n")
				continue
			}
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + footer(keys.Select, keys.Back))
	return b.String()
}

func (a *App) renderHistoryDetail() string {
	h := a.history
	if h.cursor >= len(h.rows) {
		return a.renderHistory()
	}
	rec := h.rows[h.cursor].rec
	var b strings.Builder
	b.WriteString(titleStyle.Render("Past Query") + "\n")
	b.WriteString(labelStyle.Render(rec.CreatedAt.Local().Format("2006-01-02 15:04:05")) + "\n\n")
	b.WriteString(textStyle.Render(rec.QueryText) + "\n\n")
	b.WriteString(renderDecision(rec.Decision, rec.Justification, rec.PolicyClauses, rec.ParsedInfo))
	if rec.RequestID != nil {
		b.WriteString("\n" + labelStyle.Render("request "+*rec.RequestID))
	}
	b.WriteString("\n\n" + footer(keys.Back))
	return b.String()
}
