// Package review implements the review workflow: the list controller that
// owns the loaded material collection, the client that triggers AI and
// manual reviews against it, and the manual review form.
package review

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/metrics"
	"github.com/sprite-ai/adreview/internal/model"
)

// Backend is the subset of the REST API the review workflow needs.
type Backend interface {
	ListMaterials(ctx context.Context, p backend.ListParams) (*backend.MaterialPage, error)
	TriggerReview(ctx context.Context, id int64) (string, error)
	SubmitManualReview(ctx context.Context, id int64, req backend.ManualReview) error
}

// DefaultListParams mirrors what the review page loads.
var DefaultListParams = backend.ListParams{Page: 1, PageSize: 100, Type: model.TypeImage}

// FilterAll matches every status.
const FilterAll = "all"

// Entry is a material in the collection. Speculative is set while the
// status is a local guess that the server has not confirmed.
type Entry struct {
	model.Material
	Speculative bool

	// confirmed is the server state a speculative patch replaced and mark
	// the collection version the patch was installed at.
	confirmed model.Material
	mark      uint64
}

// Filter narrows the collection for display.
type Filter struct {
	Status string // FilterAll or a ReviewStatus
	Search string // case-insensitive title substring
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Entry) bool {
	if f.Status != "" && f.Status != FilterAll && string(e.ReviewStatus) != f.Status {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		return strings.Contains(strings.ToLower(e.Title), strings.ToLower(q))
	}
	return true
}

// Stats counts the collection by status.
type Stats struct {
	Total    int
	ByStatus map[model.ReviewStatus]int
}

// Controller holds the loaded collection. All methods are safe for
// concurrent use. Every mutation installs a fresh slice, so snapshots
// returned to callers never change underneath them.
type Controller struct {
	backend Backend
	params  backend.ListParams
	notify  Notifier
	log     logrus.FieldLogger
	flight  singleflight.Group

	mu      sync.RWMutex
	entries []Entry
	version uint64
	loading bool
	closed  bool
	nextSub int
	subs    map[int]chan struct{}
}

// NewController creates an empty controller. notify and log may be nil.
func NewController(b Backend, params backend.ListParams, notify Notifier, log logrus.FieldLogger) *Controller {
	if notify == nil {
		notify = discardNotices
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Controller{
		backend: b,
		params:  params,
		notify:  notify,
		log:     log,
		subs:    make(map[int]chan struct{}),
	}
}

// Refresh replaces the collection with the server's. Concurrent calls share
// one request. On failure the previous collection is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "manual")
}

func (c *Controller) refresh(ctx context.Context, reason string) error {
	_, err, _ := c.flight.Do("refresh", func() (any, error) {
		return nil, c.load(ctx, reason)
	})
	return err
}

func (c *Controller) load(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	start := c.version
	c.loading = true
	c.publishLocked()
	c.mu.Unlock()

	page, err := c.backend.ListMaterials(ctx, c.params)
	metrics.Refreshes.WithLabelValues(reason, metrics.Outcome(err)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.publishLocked()
		c.log.WithError(err).WithField("reason", reason).Warn("refresh failed")
		c.notify.Notify(notice(LevelError, 0, fmt.Sprintf("Failed to load materials: %v", err), err))
		return err
	}
	if c.closed {
		return ErrClosed
	}

	entries := make([]Entry, len(page.List))
	for i, m := range page.List {
		entries[i] = Entry{Material: m}
	}
	c.keepNewerPatchesLocked(entries, start)
	c.entries = entries
	c.version++
	c.publishLocked()
	observeStats(c.statsLocked())

	c.log.WithFields(logrus.Fields{"reason": reason, "count": len(entries)}).Debug("collection refreshed")
	return nil
}

// keepNewerPatchesLocked carries over speculative patches installed after
// the page was requested. The page cannot know about them.
func (c *Controller) keepNewerPatchesLocked(entries []Entry, start uint64) {
	newer := make(map[int64]Entry)
	for _, e := range c.entries {
		if e.Speculative && e.mark > start {
			newer[e.ID] = e
		}
	}
	if len(newer) == 0 {
		return
	}
	for i := range entries {
		if e, ok := newer[entries[i].ID]; ok {
			e.confirmed = entries[i].Material
			entries[i] = e
		}
	}
}

// Loading reports whether a refresh is in flight.
func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Version increases on every change to the collection.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns the whole collection. The slice must not be modified.
func (c *Controller) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}

// View returns the entries matching f in collection order.
func (c *Controller) View(f Filter) []Entry {
	entries := c.Snapshot()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry for id.
func (c *Controller) Get(id int64) (Entry, bool) {
	for _, e := range c.Snapshot() {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Stats counts the current collection.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

func (c *Controller) statsLocked() Stats {
	s := Stats{Total: len(c.entries), ByStatus: make(map[model.ReviewStatus]int, len(model.Statuses))}
	for _, e := range c.entries {
		s.ByStatus[e.ReviewStatus]++
	}
	return s
}

func observeStats(s Stats) {
	for _, st := range model.Statuses {
		metrics.Materials.WithLabelValues(string(st)).Set(float64(s.ByStatus[st]))
	}
}

// Subscribe returns a channel that receives a value after each change to
// the collection or the loading flag. Bursts coalesce into one wakeup. The
// channel is closed by Close or by the returned cancel function.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) publishLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close releases subscribers. Later refreshes return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// update applies fn to a copy of the entry for id and installs a new
// collection holding the result.
func (c *Controller) update(id int64, fn func(*Entry) error) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Entry{}, ErrClosed
	}

	idx := -1
	for i, e := range c.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, ErrNotFound
	}

	e := c.entries[idx]
	if err := fn(&e); err != nil {
		return Entry{}, err
	}

	next := make([]Entry, len(c.entries))
	copy(next, c.entries)
	next[idx] = e
	c.entries = next
	c.version++
	c.publishLocked()
	observeStats(c.statsLocked())
	return e, nil
}

// markReviewing checks eligibility against the current collection and
// patches the entry to reviewing in one step. The returned entry's mark
// identifies the patch for revert.
func (c *Controller) markReviewing(id int64) (Entry, error) {
	return c.update(id, func(e *Entry) error {
		if !model.CanTransition(e.ReviewStatus, model.StatusReviewing) {
			return fmt.Errorf("%w: status is %s", ErrNotEligible, e.ReviewStatus)
		}
		e.confirmed = e.Material
		e.mark = c.version + 1 // the version update installs
		e.ReviewStatus = model.StatusReviewing
		e.ReviewResult = nil
		e.Speculative = true
		return nil
	})
}

// revert restores the confirmed state of id when the speculative patch made
// at mark is still installed. It reports whether the entry changed.
func (c *Controller) revert(id int64, mark uint64) bool {
	_, err := c.update(id, func(e *Entry) error {
		if !e.Speculative || e.mark != mark {
			return errSettled
		}
		*e = Entry{Material: e.confirmed}
		return nil
	})
	return err == nil
}

// setStatus records a status the server has confirmed.
func (c *Controller) setStatus(id int64, status model.ReviewStatus) (Entry, error) {
	return c.update(id, func(e *Entry) error {
		if !model.CanTransition(e.ReviewStatus, status) {
			return fmt.Errorf("%w: %s to %s", ErrNotEligible, e.ReviewStatus, status)
		}
		m := e.Material
		m.ReviewStatus = status
		if status == model.StatusPending || status == model.StatusReviewing {
			m.ReviewResult = nil
		}
		*e = Entry{Material: m}
		return nil
	})
}
