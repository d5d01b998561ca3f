package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

// statusTag renders the colored status label of an entry.
func statusTag(e review.Entry) string {
	ds := model.Classify(e.ReviewStatus)
	text := ds.Text
	if ds.Automated {
		text = "🤖 " + text
	}
	if e.Speculative {
		text += "*"
	}
	return severityStyle(ds.Severity).Render(text)
}

func (m Model) renderList(width, height int) string {
	innerWidth := width - 4 // borders + padding
	innerHeight := height - 2

	if len(m.entries) == 0 {
		empty := "No materials"
		if m.loading {
			empty = "Loading materials..."
		} else if m.filter.Status != review.FilterAll || m.filter.Search != "" {
			empty = "No materials match the current filter"
		}
		return listStyle.Width(width).Height(innerHeight).Render(helpBarStyle.Render(empty))
	}

	// Keep the cursor on screen.
	start := 0
	if m.cursor >= innerHeight {
		start = m.cursor - innerHeight + 1
	}
	end := min(start+innerHeight, len(m.entries))

	var b strings.Builder
	for i := start; i < end; i++ {
		e := m.entries[i]
		tag := statusTag(e)

		titleWidth := innerWidth - 8 - lipgloss.Width(tag) - 2
		title := truncate(e.Title, titleWidth)
		line := fmt.Sprintf("%s  %-*s %s", idStyle.Render(fmt.Sprintf("#%d", e.ID)), max(titleWidth, 0), title, tag)

		style := itemStyle
		if i == m.cursor {
			style = itemSelectedStyle
		}
		b.WriteString(style.Width(innerWidth).Render(line))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}

	return listStyle.Width(width).Height(innerHeight).Render(b.String())
}

func (m Model) renderDetail(width, height int) string {
	innerWidth := width - 4
	innerHeight := height - 2

	e, ok := m.selected()
	if !ok {
		return detailStyle.Width(width).Height(innerHeight).Render("Nothing selected")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(truncate(e.Title, innerWidth)))
	b.WriteByte('\n')

	field := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(truncate(value, innerWidth-10))
		b.WriteByte('\n')
	}
	field("ID", fmt.Sprintf("%d", e.ID))
	field("Type", string(e.Type))
	field("Status", statusTag(e))
	field("Preview", e.Preview())
	if !e.UpdatedAt.IsZero() {
		field("Updated", e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	if e.ReviewStatus == model.StatusRejected {
		b.WriteByte('\n')
		b.WriteString(reasonStyle.Width(innerWidth).Render(verdict.RejectionReason(e.Material)))
		b.WriteByte('\n')
	}

	if e.ReviewResult != nil {
		b.WriteByte('\n')
		b.WriteString(headerStyle.Render("Verdict"))
		b.WriteByte('\n')
		for _, line := range verdict.HighlightJSON(verdict.RawJSON(e.ReviewResult)) {
			b.WriteString(renderLine(line))
			b.WriteByte('\n')
		}
	}

	return detailStyle.Width(width).Height(innerHeight).Render(strings.TrimRight(b.String(), "\n"))
}

func renderLine(line verdict.Line) string {
	var b strings.Builder
	for _, span := range line {
		if span.Color == "" {
			b.WriteString(span.Text)
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(span.Color)).Render(span.Text))
	}
	return b.String()
}

func (m Model) renderForm() string {
	mat := m.form.Material()

	var b strings.Builder
	b.WriteString(modalTitleStyle.Render(fmt.Sprintf("Manual review: #%d %s", mat.ID, mat.Title)))
	b.WriteByte('\n')
	b.WriteString("Current status: " + statusTag(review.Entry{Material: mat}))
	b.WriteString("\n\n")

	b.WriteString("Rejection reason (required to reject):\n")
	b.WriteString(m.reason.View())
	b.WriteByte('\n')
	if msg := m.form.FieldError("reason"); msg != "" {
		b.WriteString(fieldErrorStyle.Render(msg))
		b.WriteByte('\n')
	}
	if err := m.form.Err(); err != nil {
		b.WriteString(noticeErrorStyle.Render(fmt.Sprintf("Submit failed: %v", err)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	switch m.form.State() {
	case review.FormSubmittingApprove:
		b.WriteString(noticeInfoStyle.Render("Approving..."))
	case review.FormSubmittingReject:
		b.WriteString(noticeInfoStyle.Render("Rejecting..."))
	default:
		b.WriteString(helpLine(formKeys.Approve.Help().Key, "approve",
			formKeys.Reject.Help().Key, "reject",
			formKeys.Cancel.Help().Key, "cancel"))
	}

	return modalStyle.Render(b.String())
}

func (m Model) renderStatusBar() string {
	stats := m.ctrl.Stats()

	left := fmt.Sprintf(" %d/%d shown  filter: %s", len(m.entries), stats.Total, m.filter.Status)
	if m.searching {
		left += "  " + m.search.View()
	} else if m.filter.Search != "" {
		left += fmt.Sprintf("  search: %q", m.filter.Search)
	}
	if m.loading {
		left += "  refreshing..."
	}

	right := ""
	if m.notice.Message != "" {
		right = noticeStyle(m.notice.Level).Render(m.notice.Message) + " "
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func noticeStyle(l review.Level) lipgloss.Style {
	switch l {
	case review.LevelSuccess:
		return noticeSuccessStyle
	case review.LevelError:
		return noticeErrorStyle
	default:
		return noticeInfoStyle
	}
}

func (m Model) renderHelpBar() string {
	return helpLine(
		keys.Trigger.Help().Key, "AI",
		keys.Manual.Help().Key, "manual",
		keys.Filter.Help().Key, "filter",
		keys.Search.Help().Key, "search",
		keys.Detail.Help().Key, "detail",
		keys.Help.Help().Key, "help",
		keys.Quit.Help().Key, "quit",
	)
}

// helpLine renders key/description pairs.
func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, statusKeyStyle.Render(pairs[i])+helpBarStyle.Render(" "+pairs[i+1]))
	}
	return " " + strings.Join(parts, helpBarStyle.Render("  "))
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("adreview: Keyboard Shortcuts"))
	b.WriteString("\n\n")

	bindings := []struct{ key, desc string }{
		{keys.Up.Help().Key, "Previous material"},
		{keys.Down.Help().Key, "Next material"},
		{keys.Filter.Help().Key, "Cycle status filter"},
		{keys.Search.Help().Key, "Search titles (enter keeps, esc clears)"},
		{keys.Trigger.Help().Key, "Start AI review"},
		{keys.Manual.Help().Key, "Open manual review"},
		{keys.Refresh.Help().Key, "Reload materials"},
		{keys.Detail.Help().Key, "Toggle verdict detail"},
		{keys.Copy.Help().Key, "Copy rejection reason"},
		{keys.Help.Help().Key, "Toggle this help"},
		{keys.Quit.Help().Key, "Quit"},
	}

	for _, item := range bindings {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			helpKeyStyle.Width(12).Render(item.key),
			item.desc,
		))
	}

	b.WriteString("\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))

	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
