package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
	"github.com/sprite-ai/adreview/internal/review"
)

type stubBackend struct {
	mu         sync.Mutex
	materials  []model.Material
	triggers   int
	manual     []backend.ManualReview
	triggerErr error
}

func (s *stubBackend) ListMaterials(ctx context.Context, p backend.ListParams) (*backend.MaterialPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]model.Material(nil), s.materials...)
	return &backend.MaterialPage{Total: len(list), List: list}, nil
}

func (s *stubBackend) TriggerReview(ctx context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers++
	if s.triggerErr != nil {
		return "", s.triggerErr
	}
	return "review started", nil
}

func (s *stubBackend) SubmitManualReview(ctx context.Context, id int64, req backend.ManualReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = append(s.manual, req)
	for i := range s.materials {
		if s.materials[i].ID == id {
			s.materials[i].ReviewStatus = req.ReviewStatus
		}
	}
	return nil
}

func testMaterials() []model.Material {
	return []model.Material{
		{ID: 1, Title: "Spring banner", Type: model.TypeImage, ReviewStatus: model.StatusPending},
		{ID: 2, Title: "Shoe promo", Type: model.TypeImage, ReviewStatus: model.StatusApproved},
		{ID: 3, Title: "Night club flyer", Type: model.TypeImage, ReviewStatus: model.StatusRejected,
			ReviewResult: &model.ReviewResult{Success: true, Details: model.ReviewDetails{
				Label: "Sexy", SubLabel: "exposure", Score: 92.5, Suggestion: "Block",
			}}},
		{ID: 4, Title: "Summer banner", Type: model.TypeImage, ReviewStatus: model.StatusReview},
	}
}

func setupModel(t *testing.T) (Model, *stubBackend) {
	t.Helper()
	sb := &stubBackend{materials: testMaterials()}
	ctrl := review.NewController(sb, review.DefaultListParams, nil, nil)
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	client := review.NewClient(sb, ctrl, review.ClientConfig{RefreshDelay: 1 << 40}, nil, nil)
	t.Cleanup(func() {
		client.Close()
		ctrl.Close()
	})

	m := New(context.Background(), ctrl, client, nil, nil)
	newM, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return newM.(Model), sb
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "ctrl+a":
			msg = tea.KeyMsg{Type: tea.KeyCtrlA}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var newM tea.Model
		newM, cmd = m.Update(msg)
		m = newM.(Model)
	}
	return m, cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	newM, _ := m.Update(cmd())
	return newM.(Model)
}

func TestModelInit(t *testing.T) {
	m, _ := setupModel(t)

	if len(m.entries) != 4 {
		t.Errorf("expected 4 entries, got %d", len(m.entries))
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}
	if m.filter.Status != review.FilterAll {
		t.Errorf("expected filter %q, got %q", review.FilterAll, m.filter.Status)
	}
}

func TestNavigation(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "j", "j")
	if m.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.cursor)
	}

	m, _ = press(t, m, "j", "j", "j")
	if m.cursor != 3 {
		t.Errorf("expected cursor to stop at 3, got %d", m.cursor)
	}

	m, _ = press(t, m, "k", "k", "k", "k", "k")
	if m.cursor != 0 {
		t.Errorf("expected cursor 0 at top, got %d", m.cursor)
	}
}

func TestFilterCycle(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "f")
	if m.filter.Status != string(model.StatusPending) {
		t.Fatalf("expected pending filter, got %q", m.filter.Status)
	}
	if len(m.entries) != 1 || m.entries[0].ID != 1 {
		t.Errorf("expected only #1, got %+v", m.entries)
	}

	// reviewing, approved, rejected
	m, _ = press(t, m, "f", "f", "f")
	if m.filter.Status != string(model.StatusRejected) {
		t.Fatalf("expected rejected filter, got %q", m.filter.Status)
	}
	if len(m.entries) != 1 || m.entries[0].ID != 3 {
		t.Errorf("expected only #3, got %+v", m.entries)
	}

	// review, then back to all
	m, _ = press(t, m, "f", "f")
	if m.filter.Status != review.FilterAll {
		t.Errorf("expected filter to wrap to all, got %q", m.filter.Status)
	}
}

func TestSearch(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "/")
	if !m.searching {
		t.Fatal("expected search mode")
	}
	m, _ = press(t, m, "B", "A", "N")
	if len(m.entries) != 2 {
		t.Errorf("expected 2 banner entries, got %d", len(m.entries))
	}

	m, _ = press(t, m, "enter")
	if m.searching {
		t.Error("expected search mode to end on enter")
	}
	if m.filter.Search != "BAN" {
		t.Errorf("expected search to be kept, got %q", m.filter.Search)
	}

	m, _ = press(t, m, "/", "esc")
	if m.filter.Search != "" || len(m.entries) != 4 {
		t.Errorf("expected search cleared, got %q with %d entries", m.filter.Search, len(m.entries))
	}
}

func TestTriggerIsOptimistic(t *testing.T) {
	m, sb := setupModel(t)

	m, cmd := press(t, m, "a")
	if m.entries[0].ReviewStatus != model.StatusReviewing {
		t.Errorf("expected reviewing before dispatch, got %s", m.entries[0].ReviewStatus)
	}
	if sb.triggers != 0 {
		t.Errorf("expected no backend call yet, got %d", sb.triggers)
	}

	m = run(t, m, cmd)
	if sb.triggers != 1 {
		t.Errorf("expected one trigger, got %d", sb.triggers)
	}
	if got := len(m.session.Triggered()); got != 1 {
		t.Errorf("expected 1 triggered action, got %d", got)
	}
}

func TestTriggerRefusedForApproved(t *testing.T) {
	m, sb := setupModel(t)

	m, cmd := press(t, m, "j", "a")
	if cmd != nil {
		t.Error("expected no command for an approved material")
	}
	if sb.triggers != 0 {
		t.Errorf("expected no backend call, got %d", sb.triggers)
	}
	if m.notice.Level != review.LevelError {
		t.Errorf("expected an error notice, got %s", m.notice.Level)
	}
}

func TestFailedTriggerClearsReviewing(t *testing.T) {
	m, sb := setupModel(t)
	sb.triggerErr = errors.New("classifier offline")

	m, cmd := press(t, m, "a")
	m = run(t, m, cmd)

	if m.entries[0].ReviewStatus != model.StatusPending {
		t.Errorf("expected pending after failed trigger, got %s", m.entries[0].ReviewStatus)
	}
	if got := len(m.session.Failed()); got != 1 {
		t.Errorf("expected 1 failed action, got %d", got)
	}
}

func TestManualRejectRequiresReason(t *testing.T) {
	m, sb := setupModel(t)

	m, _ = press(t, m, "m")
	if m.form.State() != review.FormOpen {
		t.Fatalf("expected open form, got %s", m.form.State())
	}

	m, cmd := press(t, m, "ctrl+s")
	if cmd != nil {
		t.Error("expected no submit without a reason")
	}
	if m.form.State() != review.FormOpen {
		t.Errorf("expected form to stay open, got %s", m.form.State())
	}
	if m.form.FieldError("reason") == "" {
		t.Error("expected reason field error")
	}
	if len(sb.manual) != 0 {
		t.Errorf("expected no backend call, got %d", len(sb.manual))
	}
	if !strings.Contains(m.View(), "rejection reason is required") {
		t.Error("expected modal to show the field error")
	}
}

func TestManualReject(t *testing.T) {
	m, sb := setupModel(t)

	m, _ = press(t, m, "m", "off-brand")
	m, cmd := press(t, m, "ctrl+s")
	if m.form.State() != review.FormSubmittingReject {
		t.Fatalf("expected submitting-reject, got %s", m.form.State())
	}

	m = run(t, m, cmd)
	if m.form.State() != review.FormClosed {
		t.Errorf("expected closed form, got %s", m.form.State())
	}
	if m.entries[0].ReviewStatus != model.StatusRejected {
		t.Errorf("expected rejected, got %s", m.entries[0].ReviewStatus)
	}
	if len(sb.manual) != 1 || sb.manual[0].Reason != "off-brand" {
		t.Errorf("unexpected manual submissions: %+v", sb.manual)
	}

	rejected := m.session.Rejected()
	if len(rejected) != 1 || rejected[0].Reason != "off-brand" {
		t.Errorf("unexpected session: %+v", m.session.Actions)
	}
}

func TestManualApproveAndCancel(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "m", "esc")
	if m.form.State() != review.FormClosed {
		t.Errorf("expected esc to close the form, got %s", m.form.State())
	}

	m, _ = press(t, m, "j", "j", "j", "m")
	m, cmd := press(t, m, "ctrl+a")
	m = run(t, m, cmd)

	e, _ := m.selected()
	if e.ReviewStatus != model.StatusApproved {
		t.Errorf("expected #4 approved, got %s", e.ReviewStatus)
	}
}

func TestCopyRejectionReason(t *testing.T) {
	m, _ := setupModel(t)
	var copied string
	m.clip = func(s string) error {
		copied = s
		return nil
	}

	m, _ = press(t, m, "y")
	if copied != "" {
		t.Errorf("expected nothing copied for a pending material, got %q", copied)
	}

	m, _ = press(t, m, "j", "j", "y")
	if !strings.Contains(copied, "suggestive") || !strings.Contains(copied, "92.5") {
		t.Errorf("unexpected copied reason %q", copied)
	}
	if m.notice.Level != review.LevelSuccess {
		t.Errorf("expected success notice, got %s", m.notice.Level)
	}
}

func TestDetailRendersVerdict(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "j", "j", "d")
	if !m.showDetail {
		t.Fatal("expected detail panel")
	}
	view := m.View()
	if !strings.Contains(view, "Verdict") {
		t.Error("expected verdict section")
	}
	if !strings.Contains(view, "exposure") {
		t.Error("expected sub-label in detail")
	}
}

func TestViewRenders(t *testing.T) {
	m, _ := setupModel(t)

	view := m.View()
	for _, want := range []string{"Spring banner", "Approved", "Rejected", "Needs re-review", "Awaiting review"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := setupModel(t)

	m, _ = press(t, m, "?")
	if !m.showHelp {
		t.Error("expected help to be shown")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("expected help view to contain shortcuts")
	}
}

func TestSessionSummary(t *testing.T) {
	s := &Session{}
	if s.Summary() != "" {
		t.Error("expected empty summary for an empty session")
	}

	s.record(Action{MaterialID: 1, Title: "Spring banner", Kind: ActionApprove})
	s.record(Action{MaterialID: 3, Title: "Flyer", Kind: ActionReject, Reason: "nudity"})
	s.record(Action{MaterialID: 4, Title: "Summer", Kind: ActionAITrigger, Err: errors.New("offline")})

	if len(s.Approved()) != 1 || len(s.Rejected()) != 1 || len(s.Failed()) != 1 || len(s.Triggered()) != 0 {
		t.Errorf("unexpected partition: %+v", s.Actions)
	}

	out := s.Summary()
	for _, want := range []string{"Approved (1)", "Rejected (1)", "nudity", "Failed (1)", "offline"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q:\n%s", want, out)
		}
	}
}
