package handoff

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"order-handoff/internal/models"

	"github.com/google/uuid"
)

// Cursor tracks which orders have already been surfaced to the business and
// the current unread count. It is owned by the caller and injected into the
// poller, so independent businesses (and tests) can run concurrent pollers
// without sharing state.
type Cursor struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	unread int
}

// NewCursor returns an empty cursor.
func NewCursor() *Cursor {
	return &Cursor{seen: make(map[string]struct{})}
}

// LoadCursor restores a cursor persisted with Save. A missing or corrupt
// file yields an empty cursor: the remote feed is the source of truth.
func LoadCursor(path string) *Cursor {
	c := NewCursor()
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var state struct {
		Seen   []string `json:"seen"`
		Unread int      `json:"unread"`
	}
	if json.Unmarshal(data, &state) != nil {
		return c
	}
	for _, id := range state.Seen {
		c.seen[id] = struct{}{}
	}
	c.unread = state.Unread
	return c
}

// Save persists the cursor for resilience across restarts.
func (c *Cursor) Save(path string) error {
	c.mu.Lock()
	state := struct {
		Seen   []string `json:"seen"`
		Unread int      `json:"unread"`
	}{Seen: make([]string, 0, len(c.seen)), Unread: c.unread}
	for id := range c.seen {
		state.Seen = append(state.Seen, id)
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// diff returns the orders not yet seen and replaces the seen set with the
// full fetched set: an order that leaves the feed (e.g. cancelled) drops out
// naturally.
func (c *Cursor) diff(fetched []models.PendingOrder, unread int) []models.PendingOrder {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []models.PendingOrder
	next := make(map[string]struct{}, len(fetched))
	for _, po := range fetched {
		next[po.OrderID] = struct{}{}
		if _, ok := c.seen[po.OrderID]; !ok {
			fresh = append(fresh, po)
		}
	}
	c.seen = next
	c.unread = unread
	return fresh
}

// Unread returns the current unread count.
func (c *Cursor) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

func (c *Cursor) decrementUnread() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unread > 0 {
		c.unread--
	}
}

func (c *Cursor) resetUnread() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread = 0
}

// PendingFetcher supplies one poll cycle's worth of feed. *Client
// implements it; tests substitute fakes.
type PendingFetcher interface {
	FetchPendingOrders(ctx context.Context) (*models.PendingOrdersResponse, error)
}

// ViewMarker propagates "seen it" acknowledgements to the authority.
// *Client implements it.
type ViewMarker interface {
	MarkViewed(ctx context.Context, orderID string) error
	MarkAllViewed(ctx context.Context) error
}

// Event is delivered to every subscriber when a cycle discovers orders the
// business has not been shown before.
type Event struct {
	NewOrders   []models.PendingOrder
	UnreadCount int
}

// Subscriber receives new-order events. Each subscriber is isolated: a
// panicking subscriber is logged and the rest still run.
type Subscriber func(Event)

// DefaultPollInterval is the design-default poll cadence.
const DefaultPollInterval = 10 * time.Second

// Poller periodically fetches the pending-order feed, diffs it against its
// cursor and fans new orders out to subscribers exactly once each. A fetch
// failure is logged and swallowed; the next tick retries naturally.
type Poller struct {
	fetcher PendingFetcher
	marker  ViewMarker
	cursor  *Cursor

	// AlertHook, when set, fires once per cycle that found new orders,
	// before subscribers run. Hook up device alerting (haptics, banner)
	// here.
	AlertHook func(newCount int)

	mu     sync.Mutex
	subs   map[string]Subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller over the given feed. cursor may be nil, in
// which case a fresh empty cursor is used. marker may be nil if the caller
// never acknowledges views through the poller.
func NewPoller(fetcher PendingFetcher, marker ViewMarker, cursor *Cursor) *Poller {
	if cursor == nil {
		cursor = NewCursor()
	}
	return &Poller{
		fetcher: fetcher,
		marker:  marker,
		cursor:  cursor,
		subs:    make(map[string]Subscriber),
	}
}

// Subscribe registers a callback and returns its unsubscribe function.
// Multiple concurrent subscribers are supported.
func (p *Poller) Subscribe(fn Subscriber) (unsubscribe func()) {
	id := uuid.NewString()
	p.mu.Lock()
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Start begins polling at the given interval (DefaultPollInterval when
// interval <= 0). Starting an already running poller stops the prior loop
// first: there are never overlapping intervals for one poller.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(loopCtx, interval, done)
}

// Stop cancels the polling loop and waits for the in-flight cycle to
// finish. Safe to call when not running, and more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// MarkViewed acknowledges one order. The remote write is best-effort: on
// failure the local unread count still drops so the operator is not stuck
// staring at a stale badge.
func (p *Poller) MarkViewed(ctx context.Context, orderID string) {
	if p.marker != nil {
		if err := p.marker.MarkViewed(ctx, orderID); err != nil {
			log.Printf("poller: mark viewed %s failed, keeping optimistic count: %v", orderID, err)
		}
	}
	p.cursor.decrementUnread()
}

// MarkAllViewed acknowledges the whole feed, best-effort like MarkViewed.
func (p *Poller) MarkAllViewed(ctx context.Context) {
	if p.marker != nil {
		if err := p.marker.MarkAllViewed(ctx); err != nil {
			log.Printf("poller: mark all viewed failed, keeping optimistic count: %v", err)
		}
	}
	p.cursor.resetUnread()
}

// Unread returns the cursor's current unread count.
func (p *Poller) Unread() int {
	return p.cursor.Unread()
}

func (p *Poller) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One immediate cycle so a fresh start does not wait a full interval.
	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle runs one fetch-diff-dispatch round. Errors never escape: a failed
// fetch is this cycle's problem only.
func (p *Poller) cycle(ctx context.Context) {
	resp, err := p.fetcher.FetchPendingOrders(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("poller: fetch failed, retrying next cycle: %v", err)
		}
		return
	}

	fresh := p.cursor.diff(resp.Orders, resp.UnreadCount)
	if len(fresh) == 0 {
		return
	}

	if p.AlertHook != nil {
		p.AlertHook(len(fresh))
	}

	event := Event{NewOrders: fresh, UnreadCount: resp.UnreadCount}
	for _, fn := range p.snapshotSubs() {
		p.dispatch(fn, event)
	}
}

func (p *Poller) snapshotSubs() []Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := make([]Subscriber, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	return subs
}

// dispatch isolates one subscriber invocation so a panic cannot starve the
// remaining subscribers.
func (p *Poller) dispatch(fn Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("poller: subscriber panicked: %v", r)
		}
	}()
	fn(event)
}
