// Package tui implements the Bubble Tea review console.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
	"github.com/sprite-ai/adreview/internal/verdict"
)

// statusFilters is the cycle order of the status filter.
var statusFilters = []string{
	review.FilterAll,
	string(model.StatusPending),
	string(model.StatusReviewing),
	string(model.StatusApproved),
	string(model.StatusRejected),
	string(model.StatusReview),
}

type (
	changedMsg     struct{}
	noticeMsg      review.Notice
	refreshDoneMsg struct{ err error }

	triggerDoneMsg struct {
		entry review.Entry
		err   error
	}

	manualDoneMsg struct {
		entry  review.Entry
		intent review.Intent
		err    error
	}
)

// Model is the top-level Bubble Tea model for the review console.
type Model struct {
	ctx     context.Context
	ctrl    *review.Controller
	client  *review.Client
	changes <-chan struct{}
	notices <-chan review.Notice
	clip    func(string) error

	// UI state
	width  int
	height int

	// Current filtered view of the collection
	entries []review.Entry
	version uint64
	loading bool
	cursor  int
	filter  review.Filter

	// Search input
	searching bool
	search    textinput.Model

	// Manual review modal
	form   review.Form
	reason textarea.Model

	notice     review.Notice
	showDetail bool
	showHelp   bool

	session *Session
}

// New creates a console over ctrl. changes should come from
// ctrl.Subscribe; notices may be nil.
func New(ctx context.Context, ctrl *review.Controller, client *review.Client, changes <-chan struct{}, notices <-chan review.Notice) Model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "title"
	search.CharLimit = 120

	reason := textarea.New()
	reason.Placeholder = "Why is this material rejected?"
	reason.ShowLineNumbers = false
	reason.CharLimit = 500
	reason.SetHeight(4)

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		client:  client,
		changes: changes,
		notices: notices,
		clip:    clipboard.WriteAll,
		filter:  review.Filter{Status: review.FilterAll},
		search:  search,
		reason:  reason,
		session: &Session{},
	}
	m.reload()
	return m
}

// Session returns the actions taken so far.
func (m Model) Session() *Session {
	return m.session
}

// reload rebuilds the visible list from the controller, keeping the
// cursor on the same material when it is still visible.
func (m *Model) reload() {
	var selected int64
	if e, ok := m.selected(); ok {
		selected = e.ID
	}

	m.entries = m.ctrl.View(m.filter)
	m.version = m.ctrl.Version()
	m.loading = m.ctrl.Loading()

	m.cursor = 0
	for i, e := range m.entries {
		if e.ID == selected {
			m.cursor = i
			break
		}
	}
}

func (m Model) selected() (review.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return review.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m *Model) setNotice(level review.Level, text string) {
	m.notice = review.Notice{Level: level, Message: text}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		waitForChange(m.changes),
		waitForNotice(m.notices),
	)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func waitForNotice(ch <-chan review.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return refreshDoneMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m Model) dispatch(e review.Entry) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		_, err := client.DispatchAIReview(ctx, e.ID)
		return triggerDoneMsg{entry: e, err: err}
	}
}

func (m Model) submit(e review.Entry, intent review.Intent) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		err := client.SubmitManual(ctx, e.ID, intent)
		return manualDoneMsg{entry: e, intent: intent, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reason.SetWidth(max(20, min(70, m.width-10)))
		return m, nil

	case changedMsg:
		m.reload()
		return m, waitForChange(m.changes)

	case noticeMsg:
		m.notice = review.Notice(msg)
		return m, waitForNotice(m.notices)

	case refreshDoneMsg:
		m.reload()
		return m, nil

	case triggerDoneMsg:
		m.session.record(Action{MaterialID: msg.entry.ID, Title: msg.entry.Title, Kind: ActionAITrigger, Err: msg.err})
		m.reload()
		return m, nil

	case manualDoneMsg:
		a := Action{MaterialID: msg.entry.ID, Title: msg.entry.Title, Kind: ActionApprove, Err: msg.err}
		if r, ok := msg.intent.(review.Reject); ok {
			a.Kind = ActionReject
			a.Reason = r.Reason
		}
		m.session.record(a)

		m.form.Resolve(msg.err)
		if m.form.State() == review.FormClosed {
			m.reason.Reset()
			m.reason.Blur()
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		if m.form.State() != review.FormClosed {
			return m.updateForm(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Filter):
		m.filter.Status = nextFilter(m.filter.Status)
		m.reload()

	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue(m.filter.Search)
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, m.refresh()

	case key.Matches(msg, keys.Trigger):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.client.MarkReviewing(e.ID); err != nil {
			m.setNotice(review.LevelError, refusal(e, err))
			return m, nil
		}
		m.reload()
		return m, m.dispatch(e)

	case key.Matches(msg, keys.Manual):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.form.Open(e.Material)
		m.reason.Reset()
		cmd := m.reason.Focus()
		return m, cmd

	case key.Matches(msg, keys.Detail):
		m.showDetail = !m.showDetail

	case key.Matches(msg, keys.Copy):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		reason := verdict.RejectionReason(e.Material)
		if reason == verdict.NoReason {
			m.setNotice(review.LevelInfo, "Only rejected materials have a rejection reason")
			return m, nil
		}
		if err := m.clip(reason); err != nil {
			m.setNotice(review.LevelError, fmt.Sprintf("Copy failed: %v", err))
			return m, nil
		}
		m.setNotice(review.LevelSuccess, "Rejection reason copied")

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, searchKeys.Apply):
		m.searching = false
		m.search.Blur()
		return m, nil

	case key.Matches(msg, searchKeys.Clear):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.filter.Search = ""
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filter.Search = m.search.Value()
	m.reload()
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.State().Submitting() {
		return m, nil
	}
	e := review.Entry{Material: m.form.Material()}

	switch {
	case key.Matches(msg, formKeys.Cancel):
		m.form.Cancel()
		m.reason.Blur()
		return m, nil

	case key.Matches(msg, formKeys.Approve):
		intent, err := m.form.Approve()
		if err != nil {
			return m, nil
		}
		return m, m.submit(e, intent)

	case key.Matches(msg, formKeys.Reject):
		m.form.SetReason(m.reason.Value())
		intent, err := m.form.Reject()
		if err != nil {
			// Field error is rendered by the modal.
			return m, nil
		}
		return m, m.submit(e, intent)
	}

	var cmd tea.Cmd
	m.reason, cmd = m.reason.Update(msg)
	m.form.SetReason(m.reason.Value())
	return m, cmd
}

func nextFilter(current string) string {
	for i, f := range statusFilters {
		if f == current {
			return statusFilters[(i+1)%len(statusFilters)]
		}
	}
	return review.FilterAll
}

func refusal(e review.Entry, err error) string {
	switch {
	case errors.Is(err, review.ErrNotEligible):
		return fmt.Sprintf("#%d is %s; AI review is not available", e.ID, model.Classify(e.ReviewStatus).Text)
	case errors.Is(err, review.ErrNotFound):
		return fmt.Sprintf("#%d is no longer loaded", e.ID)
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.form.State() != review.FormClosed {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderForm())
	}

	bodyHeight := m.height - 2
	var body string
	if m.showDetail {
		listWidth := m.width / 2
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderList(listWidth, bodyHeight),
			" ",
			m.renderDetail(m.width-listWidth-1, bodyHeight),
		)
	} else {
		body = m.renderList(m.width, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar(), m.renderHelpBar())
}

// Run starts the console and returns the session once the user quits.
func Run(ctx context.Context, ctrl *review.Controller, client *review.Client, notices <-chan review.Notice) (*Session, error) {
	changes, cancel := ctrl.Subscribe()
	defer cancel()

	m := New(ctx, ctrl, client, changes, notices)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return m.session, err
	}
	if fm, ok := final.(Model); ok {
		return fm.session, nil
	}
	return m.session, nil
}
