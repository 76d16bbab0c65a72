// Package swr is a stale-while-revalidate cache for API reads. Consumers see
// the last good value (from memory or the local mirror) while a fresh copy is
// fetched in the background. Invalidation signals from the bus force a
// re-fetch that the dedup window never suppresses.
package swr

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/bus"
	"github.com/breakthrough-cafe/cafe-cms/internal/mirror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is returned for a key that was never given a Fetch
var ErrNoFetcher = errors.New("swr: no fetcher for key")

// DefaultDedupWindow is how long a successful response satisfies repeat requests
const DefaultDedupWindow = 2 * time.Second

// Fetcher performs the network read for one key
type Fetcher func(ctx context.Context) ([]byte, error)

// Resource describes a cacheable read
type Resource struct {
	// Key is the request path plus its encoded query, see Key
	Key string
	// Topic is the bus topic whose signals invalidate this key
	Topic bus.Topic
	Fetch Fetcher
}

// State is what a consumer sees for a key
type State struct {
	Data []byte
	// Err is the most recent fetch error. Data is kept when a revalidation fails.
	Err        error
	FromMirror bool
	Validating bool
	FetchedAt  time.Time
}

// Options configures a Cache
type Options struct {
	DedupWindow time.Duration
	// FetchTimeout bounds background revalidations; zero means none
	FetchTimeout time.Duration
	Mirror       mirror.Store
	Bus          *bus.Bus
}

// Key builds the cache key for a path and query. Query parameters are
// sorted, so equal queries yield equal keys.
func Key(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

type entry struct {
	key   string
	topic bus.Topic
	fetch Fetcher

	data       []byte
	err        error
	fromMirror bool
	fetchedAt  time.Time

	// gen advances on every invalidation; results older than the last
	// applied generation are discarded. stale entries skip the dedup window.
	gen        uint64
	appliedGen uint64
	stale      bool
	inflight   int

	// version advances whenever the visible state changes. A single
	// drainer delivers it, so subscribers and the mirror only ever move
	// forward.
	version     uint64
	savePending bool
	draining    bool

	subs map[uint64]*subscriber
}

type subscriber struct {
	fn   func(State)
	seen uint64
}

func (e *entry) state() State {
	return State{
		Data:       e.data,
		Err:        e.err,
		FromMirror: e.fromMirror,
		Validating: e.inflight > 0,
		FetchedAt:  e.fetchedAt,
	}
}

// Cache is safe for concurrent use
type Cache struct {
	dedup        time.Duration
	fetchTimeout time.Duration
	mirror       mirror.Store
	bus          *bus.Bus
	log          zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	topics  map[bus.Topic]func()
	nextSub uint64
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	nowFunc func() time.Time
}

// New creates a cache. A nil Mirror or Bus disables that feature.
func New(opts Options, log zerolog.Logger) *Cache {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		dedup:        opts.DedupWindow,
		fetchTimeout: opts.FetchTimeout,
		mirror:       opts.Mirror,
		bus:          opts.Bus,
		log:          log.With().Str("component", "swr").Logger(),
		entries:      make(map[string]*entry),
		topics:       make(map[bus.Topic]func()),
		ctx:          ctx,
		cancel:       cancel,
		nowFunc:      time.Now,
	}
}

// Get returns the value for r, fetching when the cached copy is missing,
// stale or older than the dedup window. When the fetch fails the returned
// State still carries the last known value (or the mirror's), alongside the
// error.
func (c *Cache) Get(ctx context.Context, r Resource) (State, error) {
	c.mu.Lock()
	e := c.lookupLocked(r)
	if c.freshLocked(e) {
		st := e.state()
		c.mu.Unlock()
		return st, nil
	}
	gen := e.gen
	c.mu.Unlock()

	err := c.fetch(ctx, e, gen)
	if err != nil {
		c.loadMirror(ctx, e)
		c.drain(e)
	}

	c.mu.Lock()
	st := e.state()
	c.mu.Unlock()
	return st, err
}

// Subscribe registers fn for updates to r and starts a revalidation. fn is
// called right away when a value is known (cached or mirrored), then after
// every fetch. It may be called from any goroutine, one call at a time, and
// states arrive oldest to newest with intermediate ones possibly skipped.
func (c *Cache) Subscribe(r Resource, fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	e := c.lookupLocked(r)
	c.nextSub++
	id := c.nextSub
	sub := &subscriber{fn: fn}
	hasData := e.data != nil
	if !hasData {
		// Nothing known yet, so skip error-only states already recorded
		sub.seen = e.version
	}
	e.subs[id] = sub
	c.mu.Unlock()

	if !hasData {
		c.loadMirror(c.ctx, e)
	}
	c.drain(e)

	c.revalidate(e, false)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.subs, id)
			c.mu.Unlock()
		})
	}
}

// Peek returns the cached state for key without fetching
func (c *Cache) Peek(key string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{}, false
	}
	return e.state(), true
}

// Invalidate marks every entry on topic stale. Subscribed entries re-fetch
// immediately; the rest re-fetch on their next Get.
func (c *Cache) Invalidate(topic bus.Topic) {
	c.mu.Lock()
	var active []*entry
	for _, e := range c.entries {
		if e.topic != topic {
			continue
		}
		if len(e.subs) > 0 {
			active = append(active, e)
		} else {
			e.stale = true
			e.gen++
		}
	}
	c.mu.Unlock()

	c.log.Debug().Str("topic", string(topic)).Int("active", len(active)).Msg("Invalidated")
	for _, e := range active {
		c.revalidate(e, true)
	}
}

// Focus revalidates every subscribed entry older than the dedup window
func (c *Cache) Focus() {
	for _, e := range c.activeEntries() {
		c.revalidate(e, false)
	}
}

// Reconnect revalidates every subscribed entry regardless of age
func (c *Cache) Reconnect() {
	for _, e := range c.activeEntries() {
		c.revalidate(e, true)
	}
}

// Close stops bus delivery and waits for background revalidations
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubs := make([]func(), 0, len(c.topics))
	for _, u := range c.topics {
		unsubs = append(unsubs, u)
	}
	c.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Cache) activeEntries() []*entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		if len(e.subs) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// lookupLocked returns the entry for r, creating it and its bus
// subscription on first use. The newest Fetch wins.
func (c *Cache) lookupLocked(r Resource) *entry {
	e, ok := c.entries[r.Key]
	if !ok {
		e = &entry{key: r.Key, topic: r.Topic, subs: make(map[uint64]*subscriber)}
		c.entries[r.Key] = e
	}
	if r.Fetch != nil {
		e.fetch = r.Fetch
	}

	if c.bus != nil && r.Topic != "" && !c.closed {
		if _, subscribed := c.topics[r.Topic]; !subscribed {
			c.topics[r.Topic] = c.bus.Subscribe(r.Topic, c.Invalidate)
		}
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	return e.data != nil && !e.stale && !e.fetchedAt.IsZero() && c.nowFunc().Sub(e.fetchedAt) < c.dedup
}

// revalidate starts a background fetch. Forced revalidations open a new
// generation so they never join a fetch that began before the signal.
func (c *Cache) revalidate(e *entry, force bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if force {
		e.stale = true
		e.gen++
	} else if c.freshLocked(e) {
		c.mu.Unlock()
		return
	}
	gen := e.gen
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		ctx := c.ctx
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}
		if err := c.fetch(ctx, e, gen); err != nil {
			c.log.Warn().Err(err).Str("key", e.key).Msg("Revalidation failed")
		}
	}()
}

// fetch runs one network read per key and generation, applying the result
// exactly once however many callers share it.
func (c *Cache) fetch(ctx context.Context, e *entry, gen uint64) error {
	flight := e.key + "#" + strconv.FormatUint(gen, 10)

	_, err, _ := c.group.Do(flight, func() (any, error) {
		c.mu.Lock()
		e.inflight++
		fetch := e.fetch
		c.mu.Unlock()

		if fetch == nil {
			c.apply(e, gen, nil, ErrNoFetcher)
			return nil, ErrNoFetcher
		}
		body, err := fetch(ctx)
		c.apply(e, gen, body, err)
		return nil, err
	})
	return err
}

func (c *Cache) apply(e *entry, gen uint64, body []byte, err error) {
	c.mu.Lock()
	e.inflight--
	if gen < e.appliedGen {
		// A newer generation already landed
		c.mu.Unlock()
		return
	}
	if err != nil {
		e.err = err
	} else {
		e.data = body
		e.err = nil
		e.fromMirror = false
		e.fetchedAt = c.nowFunc()
		e.appliedGen = gen
		e.savePending = true
		if gen == e.gen {
			e.stale = false
		}
	}
	e.version++
	c.mu.Unlock()

	c.drain(e)
}

// drain saves and delivers the entry's current state until nothing is
// pending. Only one goroutine drains an entry at a time; a result applied
// meanwhile is picked up by the running drainer, so an older state is never
// delivered or saved after a newer one. Subscribers that call back into the
// cache do not deadlock because nested drains return immediately.
func (c *Cache) drain(e *entry) {
	c.mu.Lock()
	if e.draining {
		c.mu.Unlock()
		return
	}
	e.draining = true

	for {
		st := e.state()
		var body []byte
		if e.savePending && c.mirror != nil {
			body = e.data
		}
		e.savePending = false

		var due []func(State)
		for _, sub := range e.subs {
			if sub.seen < e.version {
				sub.seen = e.version
				due = append(due, sub.fn)
			}
		}
		if body == nil && len(due) == 0 {
			e.draining = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		if body != nil {
			if err := c.mirror.Save(context.Background(), e.key, body); err != nil {
				c.log.Warn().Err(err).Str("key", e.key).Msg("Failed to update mirror")
			}
		}
		for _, fn := range due {
			fn(st)
		}

		c.mu.Lock()
	}
}

// loadMirror fills an empty entry from the mirror and reports whether the
// entry now has data.
func (c *Cache) loadMirror(ctx context.Context, e *entry) bool {
	c.mu.Lock()
	if e.data != nil {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if c.mirror == nil {
		return false
	}
	body, ok, err := c.mirror.Load(ctx, e.key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", e.key).Msg("Failed to read mirror")
		return false
	}
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.data == nil {
		e.data = body
		e.fromMirror = true
		e.version++
	}
	return true
}
