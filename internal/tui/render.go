package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jask/policyqa/internal/document"
)

func (a *App) renderForm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Insurance Policy QA") + "\n\n")

	b.WriteString(headingStyle.Render("Policy PDF") + "\n")
	if a.selection == nil {
		b.WriteString(labelStyle.Render("no file selected") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("%s  %s\n", textStyle.Render(a.selection.Name), labelStyle.Render(document.HumanSize(a.selection.Size))))
	}
	if a.notice != "" {
		b.WriteString(warningStyle.Render(a.notice) + "\n")
	}

	b.WriteString("\n" + headingStyle.Render("Query") + "\n")
	b.WriteString(a.query.View() + "\n\n")

	b.WriteString(a.renderStatus() + "\n")

	if a.result != nil {
		b.WriteString("\n" + panelStyle.Render(renderDecision(a.result.Decision, a.result.Justification, a.result.PolicyClauses, a.result.ParsedInfo)) + "\n")
	}

	retry := keys.Retry
	retry.SetEnabled(a.uploadStatus.Retryable() || a.queryStatus.Retryable())
	b.WriteString("\n" + footer(keys.Pick, keys.Upload, keys.Submit, retry, keys.History, keys.Quit))
	return b.String()
}

func (a *App) renderStatus() string {
	return statusLine("Upload", msgUploading, a.uploadStatus) + "\n" + statusLine("Query ", msgQuerying, a.queryStatus)
}

func statusLine(label, pendingText string, s CallStatus) string {
	var text string
	switch s.Phase {
	case PhaseIdle:
		text = "-"
	case PhasePending:
		text = pendingText
	case PhaseFailed:
		text = "failed: " + s.Reason + "  (ctrl+r to retry)"
	default:
		text = s.Reason
	}
	return labelStyle.Render(label+"  ") + phaseStyle(s.Phase).Render(text)
}

// renderDecision draws the result panel body. Clauses keep response order.
func renderDecision(decision, justification string, clauses []string, parsed map[string]any) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Decision: "+decision) + "\n")
	b.WriteString(textStyle.Render(justification) + "\n\n")
	b.WriteString(headingStyle.Render("Policy Clauses:") + "\n")
	for _, c := range clauses {
		b.WriteString("  • " + c + "\n")
	}
	if len(parsed) > 0 {
		b.WriteString("\n" + labelStyle.Render("Parsed details") + "\n")
		names := make([]string, 0, len(parsed))
		for k := range parsed {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			b.WriteString(fmt.Sprintf("  %s: %v\n", k, parsed[k]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

