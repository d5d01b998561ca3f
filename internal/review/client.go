package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sprite-ai/adreview/internal/metrics"
	"github.com/sprite-ai/adreview/internal/model"
)

// DefaultRefreshDelay is how long after a trigger the collection is reloaded
// to pick up the AI verdict.
const DefaultRefreshDelay = 1500 * time.Millisecond

// DefaultRefreshAttempts bounds the follow-up reloads while a triggered
// material is still pending or reviewing.
const DefaultRefreshAttempts = 3

// ClientConfig tunes the post-trigger reconciliation.
type ClientConfig struct {
	RefreshDelay    time.Duration
	RefreshAttempts int
}

// Client runs review actions against the backend and keeps the controller
// in step with their outcome.
type Client struct {
	backend  Backend
	ctrl     *Controller
	notify   Notifier
	log      logrus.FieldLogger
	delay    time.Duration
	attempts int

	// ctx scopes scheduled refreshes; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// NewClient creates a client that reports outcomes to notify. notify and
// log may be nil.
func NewClient(b Backend, ctrl *Controller, cfg ClientConfig, notify Notifier, log logrus.FieldLogger) *Client {
	if cfg.RefreshDelay <= 0 {
		cfg.RefreshDelay = DefaultRefreshDelay
	}
	if cfg.RefreshAttempts <= 0 {
		cfg.RefreshAttempts = DefaultRefreshAttempts
	}
	if notify == nil {
		notify = discardNotices
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		backend:  b,
		ctrl:     ctrl,
		notify:   notify,
		log:      log,
		delay:    cfg.RefreshDelay,
		attempts: cfg.RefreshAttempts,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// TriggerAI starts an AI review of id. The entry shows reviewing before the
// request is sent. It returns the backend's acknowledgement.
func (c *Client) TriggerAI(ctx context.Context, id int64) (string, error) {
	if err := c.MarkReviewing(id); err != nil {
		return "", err
	}
	return c.DispatchAIReview(ctx, id)
}

// MarkReviewing is the first half of TriggerAI: it checks eligibility
// against the current collection and applies the optimistic reviewing
// status. No network call is made.
func (c *Client) MarkReviewing(id int64) error {
	if c.isClosed() {
		return ErrClosed
	}

	_, err := c.ctrl.markReviewing(id)
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			metrics.AITriggers.WithLabelValues("refused").Inc()
		}
		c.log.WithError(err).WithField("material_id", id).Debug("AI review refused")
		return err
	}
	return nil
}

// DispatchAIReview is the second half of TriggerAI: it sends the trigger
// and reconciles. On failure the collection is reloaded immediately and the
// speculative reviewing status is dropped even when the reload fails.
func (c *Client) DispatchAIReview(ctx context.Context, id int64) (string, error) {
	log := c.log.WithField("material_id", id)

	var mark uint64
	if e, ok := c.ctrl.Get(id); ok && e.Speculative {
		mark = e.mark
	}

	msg, err := c.backend.TriggerReview(ctx, id)
	if err != nil {
		metrics.AITriggers.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("AI review trigger failed")
		c.notify.Notify(notice(LevelError, id, fmt.Sprintf("AI review failed: %v", err), err))

		if rerr := c.ctrl.refresh(c.ctx, "trigger_failed"); rerr != nil {
			log.WithError(rerr).Warn("refresh after failed trigger")
		}
		// A reload that started before the patch keeps it.
		if mark != 0 && c.ctrl.revert(id, mark) {
			log.Debug("speculative reviewing status reverted")
		}
		return "", err
	}

	metrics.AITriggers.WithLabelValues("dispatched").Inc()
	if msg == "" {
		msg = "AI review started"
	}
	log.Info("AI review dispatched")
	c.notify.Notify(notice(LevelSuccess, id, msg, nil))

	c.scheduleRefresh(id, mark, 1)
	return msg, nil
}

// SubmitManual records a human decision. Invalid intents are rejected
// before any network call. On failure local state is left untouched.
func (c *Client) SubmitManual(ctx context.Context, id int64, intent Intent) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := Validate(intent); err != nil {
		return err
	}
	decision := intent.Decision()
	e, ok := c.ctrl.Get(id)
	if !ok {
		return ErrNotFound
	}
	if !model.CanTransition(e.ReviewStatus, decision) {
		return fmt.Errorf("%w: cannot move %s to %s", ErrNotEligible, e.ReviewStatus, decision)
	}

	log := c.log.WithFields(logrus.Fields{"material_id": id, "decision": decision})

	err := c.backend.SubmitManualReview(ctx, id, intent.request())
	metrics.ManualReviews.WithLabelValues(string(decision), metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithError(err).Warn("manual review failed")
		c.notify.Notify(notice(LevelError, id, fmt.Sprintf("Manual review failed: %v", err), err))
		return err
	}

	if _, err := c.ctrl.setStatus(id, decision); err != nil {
		// The decision is recorded server side; the next refresh shows it.
		log.WithError(err).Debug("manual review not applied locally")
	}
	log.Info("manual review submitted")
	c.notify.Notify(notice(LevelSuccess, id, manualMessage(decision), nil))
	return nil
}

func manualMessage(s model.ReviewStatus) string {
	if s == model.StatusApproved {
		return "Material approved"
	}
	return "Material rejected"
}

func (c *Client) scheduleRefresh(id int64, mark uint64, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		delete(c.timers, t)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.reconcile(id, mark, attempt)
	})
	c.timers[t] = struct{}{}
}

// reconcile reloads the collection and polls again while the verdict is
// still outstanding. A failed reload counts as an attempt. When attempts run
// out the speculative patch, if still installed, is reverted.
func (c *Client) reconcile(id int64, mark uint64, attempt int) {
	err := c.ctrl.refresh(c.ctx, "scheduled")
	if err != nil && (c.ctx.Err() != nil || errors.Is(err, ErrClosed)) {
		return
	}

	e, ok := c.ctrl.Get(id)
	if !ok {
		return
	}
	if err == nil && !outstanding(e) {
		return
	}
	if attempt < c.attempts {
		c.scheduleRefresh(id, mark, attempt+1)
		return
	}
	if mark != 0 && c.ctrl.revert(id, mark) {
		c.log.WithError(err).WithField("material_id", id).Warn("AI verdict unconfirmed, status reverted")
		c.notify.Notify(notice(LevelError, id, "Could not confirm AI review; status restored", err))
	}
}

func outstanding(e Entry) bool {
	if e.Speculative {
		return true
	}
	return e.ReviewStatus == model.StatusPending || e.ReviewStatus == model.StatusReviewing
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close cancels pending refreshes. Timers that already fired become no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for t := range c.timers {
		t.Stop()
		delete(c.timers, t)
	}
	c.mu.Unlock()
	c.cancel()
}
