package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"feedcurator/internal/dispatch"
	"feedcurator/internal/feed"
	"feedcurator/internal/fingerprint"
	"feedcurator/internal/logging"
	"feedcurator/internal/memo"
	"feedcurator/internal/rescache"
	"feedcurator/internal/sanitize"
	"feedcurator/internal/services"
)

const (
	defaultDebounce = 2 * time.Second
	eventBuffer     = 64
)

// ErrStopped is returned by Snapshot once the loop has exited.
var ErrStopped = errors.New("coordinator stopped")

// Renderer receives presentation requests. Calls are made from the
// coordinator loop, one at a time, and must not call Trigger or Leave
// synchronously: the loop is blocked until they return, so a full event
// buffer would deadlock it. Hand such calls off to another goroutine.
type Renderer interface {
	ShowLoading()
	ShowGroups(groups []feed.Group)
	ShowFallback(items []feed.CandidateItem, err error)
}

// Dispatcher sends a capped candidate set to the reranking service.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []feed.CandidateItem) (dispatch.Response, error)
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithDebounce sets the trigger debounce delay (defaults to 2s).
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithMaxItems caps candidates before fingerprinting and dispatch (defaults to 30).
func WithMaxItems(max int) Option {
	return func(c *Coordinator) {
		if max > 0 {
			c.maxItems = max
		}
	}
}

// WithCache supplies the result cache; a default cache is created otherwise.
func WithCache(cache *rescache.Cache) Option {
	return func(c *Coordinator) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAfterFunc overrides how debounce timers are scheduled (useful for tests).
func WithAfterFunc(afterFunc AfterFunc) Option {
	return func(c *Coordinator) {
		if afterFunc != nil {
			c.afterFunc = afterFunc
		}
	}
}

// WithRequestIDs overrides how per-dispatch correlation ids are generated.
func WithRequestIDs(next func() string) Option {
	return func(c *Coordinator) {
		if next != nil {
			c.requestID = next
		}
	}
}

// Coordinator debounces triggers, serves cached groupings, dispatches
// misses, and suppresses stale results.
type Coordinator struct {
	dispatcher Dispatcher
	renderer   Renderer
	cache      *rescache.Cache
	results    *memo.Group[sanitize.Result]
	debounce   time.Duration
	maxItems   int
	afterFunc  AfterFunc
	requestID  func() string
	logger     *slog.Logger

	events chan event
	done   chan struct{}

	// Loop-owned state.
	state       State
	outcome     Outcome
	generations Generations
	lastFP      string
	cycle       *cycle
	timer       Timer
}

// cycle is the candidate set the current ticket was issued for.
type cycle struct {
	ticket      Ticket
	fingerprint string
	items       []feed.CandidateItem
	head        []feed.CandidateItem
	overflow    []feed.CandidateItem
}

// New constructs a coordinator. Run must be called to start its loop.
func New(dispatcher Dispatcher, renderer Renderer, opts ...Option) *Coordinator {
	c := &Coordinator{
		dispatcher: dispatcher,
		renderer:   renderer,
		debounce:   defaultDebounce,
		maxItems:   feed.DefaultMaxItems,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		requestID: uuid.NewString,
		logger:    logging.NewNop(),
		events:    make(chan event, eventBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = rescache.New(rescache.Options{Logger: c.logger})
	}
	c.logger = logging.NewComponentLogger(c.logger, "coordinator")
	c.results = memo.New[sanitize.Result](resultStore{cache: c.cache})
	return c
}

// Trigger reports that the candidate set changed. It never blocks on
// network work; the set is evaluated on the loop.
func (c *Coordinator) Trigger(items []feed.CandidateItem) {
	c.post(triggerEvent{items: feed.CloneItems(items)})
}

// Leave reports that the content is no longer eligible for reranking.
func (c *Coordinator) Leave() {
	c.post(leaveEvent{})
}

// Snapshot returns the loop state once every previously posted event has
// been handled.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case c.events <- snapshotEvent{reply: reply}:
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Run processes events until ctx is canceled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.stopTimer()

	c.logger.Debug("coordinator started",
		logging.Duration("debounce", c.debounce),
		logging.Int("max_items", c.maxItems))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Coordinator) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case triggerEvent:
		c.onTrigger(ev.items)
	case leaveEvent:
		c.onLeave()
	case debounceEvent:
		c.onDebounce(ctx, ev.ticket)
	case resultEvent:
		c.onResult(ev)
	case snapshotEvent:
		ev.reply <- c.snapshot()
	}
}

func (c *Coordinator) onTrigger(items []feed.CandidateItem) {
	head, overflow := feed.Split(items, c.maxItems)
	if !slices.ContainsFunc(head, func(item feed.CandidateItem) bool { return item.URL != "" }) {
		c.logger.Debug("ignoring candidate set without urls",
			logging.ItemCount(len(items)))
		return
	}
	fp := fingerprint.Compute(head, c.maxItems)
	if fp == c.lastFP {
		c.logger.Debug("candidate set unchanged",
			logging.Fingerprint(fp))
		return
	}

	c.stopTimer()
	c.lastFP = fp
	c.cycle = &cycle{
		ticket:      c.generations.Next(),
		fingerprint: fp,
		items:       items,
		head:        head,
		overflow:    overflow,
	}

	if result, ok := c.results.Lookup(fp); ok {
		c.deliverCached(c.cycle, result)
		return
	}

	c.state = StateDebouncing
	ticket := c.cycle.ticket
	c.timer = c.afterFunc(c.debounce, func() {
		c.post(debounceEvent{ticket: ticket})
	})
	c.logger.Debug("debounce scheduled",
		logging.Fingerprint(fp),
		logging.Generation(ticket.Generation()),
		logging.ItemCount(len(head)))
}

func (c *Coordinator) onLeave() {
	c.stopTimer()
	c.generations.Invalidate()
	c.lastFP = ""
	c.cycle = nil
	c.state = StateIdle
	c.outcome = OutcomeNone
	c.logger.Debug("left eligible content",
		logging.Generation(c.generations.Current()))
}

func (c *Coordinator) onDebounce(ctx context.Context, ticket Ticket) {
	if !c.commit(ticket, "debounce") {
		return
	}
	c.timer = nil
	cyc := c.cycle

	if result, ok := c.results.Lookup(cyc.fingerprint); ok {
		c.deliverCached(cyc, result)
		return
	}

	c.state = StateDispatching
	c.renderer.ShowLoading()

	dispatchCtx := services.WithRequestID(ctx, c.requestID())
	dispatchCtx = services.WithGeneration(dispatchCtx, ticket.Generation())
	dispatchCtx = services.WithFingerprint(dispatchCtx, cyc.fingerprint)
	logging.WithContext(dispatchCtx, c.logger).Info("dispatching candidate set",
		logging.ItemCount(len(cyc.head)))

	go c.runDispatch(dispatchCtx, cyc)
}

// runDispatch runs off the loop and reports back through a resultEvent.
func (c *Coordinator) runDispatch(ctx context.Context, cyc *cycle) {
	head := cyc.head
	result, _, err := c.results.Do(ctx, cyc.fingerprint, func(ctx context.Context) (sanitize.Result, error) {
		resp, err := c.dispatcher.Dispatch(ctx, head)
		if err != nil {
			return sanitize.Result{}, err
		}
		return sanitize.Decode(resp.Body, head), nil
	})
	c.post(resultEvent{ticket: cyc.ticket, cycle: cyc, result: result, err: err})
}

func (c *Coordinator) onResult(ev resultEvent) {
	if !c.commit(ev.ticket, "dispatch result") {
		return
	}
	cyc := ev.cycle
	c.state = StateResolved

	if ev.err != nil {
		c.outcome = OutcomeFallback
		hint := "check the reranking service logs"
		if dispatch.IsUnreachable(ev.err) {
			hint = "start the reranking service or check rerank.endpoints"
		}
		logging.WarnWithContext(c.logger, "reranking unavailable", "rerank_fallback",
			logging.Fingerprint(cyc.fingerprint),
			logging.String("error_kind", services.Kind(ev.err)),
			logging.Error(ev.err),
			logging.Hint(hint),
			logging.Impact("showing candidates in their original order"))
		c.renderer.ShowFallback(feed.CloneItems(cyc.items), ev.err)
		return
	}

	if !ev.result.OK() {
		logging.WarnWithContext(c.logger, "reranking response malformed", "rerank_malformed",
			logging.Fingerprint(cyc.fingerprint),
			logging.String("reason", ev.result.Reason),
			logging.Hint("check the reranking service logs"),
			logging.Impact("result shown but not cached"))
	}
	c.results.Remember(cyc.fingerprint, ev.result)
	c.outcome = OutcomeReranked
	c.logger.Info("reranked candidate set",
		logging.Fingerprint(cyc.fingerprint),
		logging.Generation(ev.ticket.Generation()),
		logging.Int("groups", len(ev.result.Groups)),
		logging.Int("dropped", ev.result.Dropped))
	c.renderer.ShowGroups(feed.WithOverflow(ev.result.Groups, cyc.overflow))
}

// commit reports whether work started under ticket may still act. Every
// asynchronous resumption passes through here before touching the cache or
// the renderer.
func (c *Coordinator) commit(ticket Ticket, stage string) bool {
	if c.generations.Valid(ticket) && c.cycle != nil {
		return true
	}
	c.logger.Debug("discarding stale work",
		logging.String("stage", stage),
		logging.Uint64("ticket_generation", ticket.Generation()),
		logging.Generation(c.generations.Current()))
	return false
}

func (c *Coordinator) deliverCached(cyc *cycle, result sanitize.Result) {
	c.state = StateResolved
	c.outcome = OutcomeCached
	c.logger.Debug("serving cached grouping",
		logging.Fingerprint(cyc.fingerprint))
	c.renderer.ShowGroups(feed.WithOverflow(result.Groups, cyc.overflow))
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) snapshot() Snapshot {
	entries := c.cache.Entries()
	cached := make([]string, len(entries))
	for i, entry := range entries {
		cached[i] = entry.Fingerprint
	}
	return Snapshot{
		State:           c.state,
		Outcome:         c.outcome,
		Generation:      c.generations.Current(),
		LastFingerprint: c.lastFP,
		DebouncePending: c.timer != nil,
		CacheEntries:    len(entries),
		Cached:          cached,
	}
}

// resultStore adapts the result cache to memo.Store. Only well-formed
// results are stored; cached groupings always read back as OK.
type resultStore struct {
	cache *rescache.Cache
}

func (s resultStore) Get(fp string) (sanitize.Result, bool) {
	groups, ok := s.cache.Get(fp)
	if !ok {
		return sanitize.Result{}, false
	}
	return sanitize.Result{Status: sanitize.StatusOK, Groups: groups}, true
}

func (s resultStore) Put(fp string, result sanitize.Result) {
	if !result.OK() {
		return
	}
	s.cache.Put(fp, result.Groups)
}
