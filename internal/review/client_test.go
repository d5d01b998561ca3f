package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
)

func newTestClient(t *testing.T, fb *fakeBackend, cfg ClientConfig) (*Client, *Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	ctrl := loadedController(t, fb, rec)
	if cfg.RefreshDelay == 0 {
		cfg.RefreshDelay = time.Hour
	}
	c := NewClient(fb, ctrl, cfg, rec, nil)
	t.Cleanup(c.Close)
	return c, ctrl, rec
}

func TestTriggerRefusedWhenApproved(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusApproved))
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	_, err := c.TriggerAI(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, triggers, _ := fb.counts()
	assert.Zero(t, triggers)
	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusApproved, e.ReviewStatus)
}

func TestTriggerRefusedWhenReviewing(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusReviewing))
	c, _, _ := newTestClient(t, fb, ClientConfig{})

	_, err := c.TriggerAI(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotEligible)
	_, triggers, _ := fb.counts()
	assert.Zero(t, triggers)
}

func TestTriggerUnknownMaterial(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	c, _, _ := newTestClient(t, fb, ClientConfig{})

	_, err := c.TriggerAI(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, triggers, _ := fb.counts()
	assert.Zero(t, triggers)
}

func TestTriggerIsOptimistic(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	gate := make(chan struct{})
	fb.triggerGate = gate
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	done := make(chan error, 1)
	go func() {
		_, err := c.TriggerAI(context.Background(), 1)
		done <- err
	}()

	// The response is held back, so reviewing can only come from the
	// optimistic patch.
	require.Eventually(t, func() bool {
		e, _ := ctrl.Get(1)
		return e.ReviewStatus == model.StatusReviewing
	}, time.Second, 5*time.Millisecond)
	e, _ := ctrl.Get(1)
	assert.True(t, e.Speculative)
	assert.Nil(t, e.ReviewResult)

	close(gate)
	require.NoError(t, <-done)
}

func TestMarkReviewingBeforeDispatch(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	require.NoError(t, c.MarkReviewing(1))
	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusReviewing, e.ReviewStatus)
	_, triggers, _ := fb.counts()
	assert.Zero(t, triggers)

	msg, err := c.DispatchAIReview(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "review started", msg)
}

func TestRetriggerFromRejected(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusRejected))
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	_, err := c.TriggerAI(context.Background(), 1)
	require.NoError(t, err)
	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusReviewing, e.ReviewStatus)
}

func TestFailedTriggerRefetches(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending), material(2, model.StatusApproved))
	fb.triggerErr = &backend.APIError{Op: "trigger review", Status: 500, Message: "classifier offline"}
	c, ctrl, rec := newTestClient(t, fb, ClientConfig{})

	listBefore, _, _ := fb.counts()
	_, err := c.TriggerAI(context.Background(), 1)
	require.Error(t, err)

	var apiErr *backend.APIError
	assert.True(t, errors.As(err, &apiErr))

	listAfter, _, _ := fb.counts()
	assert.Equal(t, listBefore+1, listAfter)

	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
	assert.False(t, e.Speculative)
	for _, e := range ctrl.Snapshot() {
		assert.NotEqual(t, model.StatusReviewing, e.ReviewStatus)
	}

	n, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, int64(1), n.MaterialID)
}

func TestScheduledRefreshPicksUpVerdict(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	fb.onTrigger = model.StatusApproved
	c, ctrl, rec := newTestClient(t, fb, ClientConfig{RefreshDelay: 20 * time.Millisecond})

	_, err := c.TriggerAI(context.Background(), 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		e, _ := ctrl.Get(1)
		return e.ReviewStatus == model.StatusApproved
	}, 2*time.Second, 10*time.Millisecond)

	var sawSuccess bool
	for _, n := range rec.all() {
		if n.Level == LevelSuccess && n.Message == "review started" {
			sawSuccess = true
		}
	}
	assert.True(t, sawSuccess)

	// Resolved on the first poll, so no follow-ups.
	time.Sleep(100 * time.Millisecond)
	list, _, _ := fb.counts()
	assert.Equal(t, 2, list)
}

func TestScheduledRefreshRepollsWhileOutstanding(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	fb.onTrigger = model.StatusReviewing
	c, _, _ := newTestClient(t, fb, ClientConfig{RefreshDelay: 10 * time.Millisecond, RefreshAttempts: 3})

	_, err := c.TriggerAI(context.Background(), 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		list, _, _ := fb.counts()
		return list == 4
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	list, _, _ := fb.counts()
	assert.Equal(t, 4, list, "polling stops after the configured attempts")
}

func TestCloseCancelsScheduledRefresh(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	c, _, _ := newTestClient(t, fb, ClientConfig{RefreshDelay: 30 * time.Millisecond})

	_, err := c.TriggerAI(context.Background(), 1)
	require.NoError(t, err)
	c.Close()

	time.Sleep(100 * time.Millisecond)
	list, _, _ := fb.counts()
	assert.Equal(t, 1, list)

	_, err = c.TriggerAI(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmitManualRejectWithoutReason(t *testing.T) {
	fb := newFakeBackend(material(42, model.StatusPending))
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})
	v := ctrl.Version()

	err := c.SubmitManual(context.Background(), 42, Reject{Reason: "   "})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reason", verr.Field)

	_, _, manual := fb.counts()
	assert.Zero(t, manual)
	assert.Equal(t, v, ctrl.Version())
	e, _ := ctrl.Get(42)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
}

func TestSubmitManualReject(t *testing.T) {
	fb := newFakeBackend(material(42, model.StatusPending))
	c, ctrl, rec := newTestClient(t, fb, ClientConfig{})

	require.NoError(t, c.SubmitManual(context.Background(), 42, Reject{Reason: " misleading claim "}))

	e, _ := ctrl.Get(42)
	assert.Equal(t, model.StatusRejected, e.ReviewStatus)
	require.Len(t, fb.manualReqs, 1)
	assert.Equal(t, "misleading claim", fb.manualReqs[0].Reason)

	n, _ := rec.last()
	assert.Equal(t, LevelSuccess, n.Level)
}

func TestSubmitManualApprove(t *testing.T) {
	fb := newFakeBackend(material(5, model.StatusReview))
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	require.NoError(t, c.SubmitManual(context.Background(), 5, Approve{}))
	e, _ := ctrl.Get(5)
	assert.Equal(t, model.StatusApproved, e.ReviewStatus)
	assert.Empty(t, fb.manualReqs[0].Reason)
}

func TestSubmitManualFailureLeavesState(t *testing.T) {
	fb := newFakeBackend(material(42, model.StatusPending))
	fb.manualErr = errors.New("timeout")
	c, ctrl, rec := newTestClient(t, fb, ClientConfig{})
	v := ctrl.Version()

	err := c.SubmitManual(context.Background(), 42, Approve{})
	require.Error(t, err)

	assert.Equal(t, v, ctrl.Version())
	e, _ := ctrl.Get(42)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
	n, _ := rec.last()
	assert.Equal(t, LevelError, n.Level)
}

func TestFailedTriggerAndRefetchRevert(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	fb.triggerErr = errors.New("classifier offline")
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})
	fb.failLists(errors.New("backend down"))

	_, err := c.TriggerAI(context.Background(), 1)
	require.Error(t, err)

	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
	assert.False(t, e.Speculative)
	assert.True(t, model.CanTriggerAI(e.ReviewStatus))

	fb.failLists(nil)
	fb.triggerErr = nil
	_, err = c.TriggerAI(context.Background(), 1)
	assert.NoError(t, err, "the material can be triggered again")
}

func TestFailedTriggerJoiningOlderRefreshReverts(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	fb.triggerErr = errors.New("classifier offline")
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	entered, release := fb.gateLists()
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Refresh(context.Background()) }()
	<-entered

	done := make(chan error, 1)
	go func() {
		_, err := c.TriggerAI(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, func() bool {
		_, triggers, _ := fb.counts()
		return triggers == 1
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-errc)
	require.Error(t, <-done)

	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
	assert.False(t, e.Speculative)
}

func TestStaleRefreshDuringTriggerKeepsReviewing(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	gate := make(chan struct{})
	fb.triggerGate = gate
	c, ctrl, _ := newTestClient(t, fb, ClientConfig{})

	entered, release := fb.gateLists()
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Refresh(context.Background()) }()
	<-entered

	done := make(chan error, 1)
	go func() {
		_, err := c.TriggerAI(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, func() bool {
		e, _ := ctrl.Get(1)
		return e.Speculative
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-errc)

	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusReviewing, e.ReviewStatus)
	assert.ErrorIs(t, c.MarkReviewing(1), ErrNotEligible)

	close(gate)
	require.NoError(t, <-done)
}

func TestScheduledRefreshFailuresRevert(t *testing.T) {
	fb := newFakeBackend(material(1, model.StatusPending))
	c, ctrl, rec := newTestClient(t, fb, ClientConfig{RefreshDelay: 20 * time.Millisecond, RefreshAttempts: 3})

	_, err := c.TriggerAI(context.Background(), 1)
	require.NoError(t, err)
	fb.failLists(errors.New("backend down"))

	require.Eventually(t, func() bool {
		n, ok := rec.last()
		return ok && n.Level == LevelError && n.MaterialID == 1
	}, 2*time.Second, 5*time.Millisecond)

	e, _ := ctrl.Get(1)
	assert.Equal(t, model.StatusPending, e.ReviewStatus)
	assert.False(t, e.Speculative)
	list, _, _ := fb.counts()
	assert.Equal(t, 4, list, "every attempt is spent before reverting")
}
