package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
)

// fakeBackend serves an in-memory collection and counts calls.
type fakeBackend struct {
	mu        sync.Mutex
	materials []model.Material

	listCalls    int
	triggerCalls int
	manualCalls  int
	manualReqs   []backend.ManualReview

	listErr    error
	triggerErr error
	manualErr  error

	// triggerGate, when set, blocks TriggerReview until it is closed.
	triggerGate chan struct{}
	// onTrigger is applied to the stored material when a trigger succeeds.
	onTrigger model.ReviewStatus

	// listGate, when set, blocks ListMaterials after it has copied the
	// collection, so the page it returns may be stale when it lands.
	// listEntered receives once per gated call.
	listGate    chan struct{}
	listEntered chan struct{}
}

func newFakeBackend(ms ...model.Material) *fakeBackend {
	return &fakeBackend{materials: ms}
}

func (f *fakeBackend) ListMaterials(ctx context.Context, p backend.ListParams) (*backend.MaterialPage, error) {
	f.mu.Lock()
	f.listCalls++
	err := f.listErr
	list := make([]model.Material, len(f.materials))
	copy(list, f.materials)
	gate, entered := f.listGate, f.listEntered
	f.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &backend.MaterialPage{Total: len(list), List: list}, nil
}

func (f *fakeBackend) failLists(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeBackend) gateLists() (entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listEntered = make(chan struct{}, 1)
	f.listGate = make(chan struct{})
	return f.listEntered, f.listGate
}

func (f *fakeBackend) TriggerReview(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	f.triggerCalls++
	gate := f.triggerGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.triggerErr != nil {
		return "", f.triggerErr
	}
	if f.onTrigger != "" {
		f.setLocked(id, f.onTrigger)
	}
	return "review started", nil
}

func (f *fakeBackend) SubmitManualReview(ctx context.Context, id int64, req backend.ManualReview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manualCalls++
	f.manualReqs = append(f.manualReqs, req)
	if f.manualErr != nil {
		return f.manualErr
	}
	f.setLocked(id, req.ReviewStatus)
	return nil
}

func (f *fakeBackend) set(id int64, s model.ReviewStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(id, s)
}

func (f *fakeBackend) setLocked(id int64, s model.ReviewStatus) {
	for i := range f.materials {
		if f.materials[i].ID == id {
			f.materials[i].ReviewStatus = s
		}
	}
}

func (f *fakeBackend) counts() (list, trigger, manual int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.triggerCalls, f.manualCalls
}

func material(id int64, s model.ReviewStatus) model.Material {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.Material{
		ID:           id,
		Title:        fmt.Sprintf("Creative %d", id),
		Type:         model.TypeImage,
		Data:         fmt.Sprintf("https://cdn.example.com/%d.png", id),
		ReviewStatus: s,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *recorder) last() (Notice, bool) {
	all := r.all()
	if len(all) == 0 {
		return Notice{}, false
	}
	return all[len(all)-1], true
}
