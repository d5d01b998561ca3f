package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ActionKind is what the reviewer did to a material.
type ActionKind int

const (
	ActionAITrigger ActionKind = iota
	ActionApprove
	ActionReject
)

func (k ActionKind) String() string {
	switch k {
	case ActionAITrigger:
		return "AI review"
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	default:
		return "unknown"
	}
}

// Action is one completed reviewer action.
type Action struct {
	MaterialID int64
	Title      string
	Kind       ActionKind
	Reason     string
	Err        error
}

// Session holds the outcome of an interactive review session.
type Session struct {
	Actions []Action
}

func (s *Session) record(a Action) {
	s.Actions = append(s.Actions, a)
}

func (s *Session) filter(kind ActionKind, failed bool) []Action {
	var out []Action
	for _, a := range s.Actions {
		if a.Kind == kind && (a.Err != nil) == failed {
			out = append(out, a)
		}
	}
	return out
}

// Approved returns successful manual approvals.
func (s *Session) Approved() []Action { return s.filter(ActionApprove, false) }

// Rejected returns successful manual rejections.
func (s *Session) Rejected() []Action { return s.filter(ActionReject, false) }

// Triggered returns AI reviews the backend accepted.
func (s *Session) Triggered() []Action { return s.filter(ActionAITrigger, false) }

// Failed returns every action that returned an error.
func (s *Session) Failed() []Action {
	var out []Action
	for _, a := range s.Actions {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Empty reports whether nothing was done.
func (s *Session) Empty() bool {
	return s == nil || len(s.Actions) == 0
}

// Summary renders the session for the terminal after the TUI exits.
func (s *Session) Summary() string {
	if s.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(summaryHeaderStyle.Render("Review session"))
	b.WriteByte('\n')

	section := func(title string, actions []Action, style lipgloss.Style) {
		if len(actions) == 0 {
			return
		}
		b.WriteString(style.Render(fmt.Sprintf("%s (%d):", title, len(actions))))
		b.WriteByte('\n')
		for _, a := range actions {
			line := fmt.Sprintf("  - #%d %s", a.MaterialID, a.Title)
			switch {
			case a.Err != nil:
				line += fmt.Sprintf(" [%s: %v]", a.Kind, a.Err)
			case a.Reason != "":
				line += fmt.Sprintf(" (%s)", a.Reason)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	section("Approved", s.Approved(), summaryApprovedStyle)
	section("Rejected", s.Rejected(), summaryRejectedStyle)
	section("Sent to AI review", s.Triggered(), summaryPendingStyle)
	section("Failed", s.Failed(), summaryRejectedStyle)

	return b.String()
}
