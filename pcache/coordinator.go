package pcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/channelqueue"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("pcache")

var ErrClosed = errors.New("cache closed")

// FetchFunc gets the data for one key from the upstream provider.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Coordinator serves reads of one kind of place data, fetching cache misses
// from an upstream provider through a bounded set of workers. Concurrent
// requests for the same key share one fetch, so a burst of interest in a
// place costs at most one upstream call per TTL window. Fetch failures are
// recorded as negative results and age out on the same schedule as data.
type Coordinator[T any] struct {
	cache       *Store[T]
	fetch       FetchFunc[T]
	waitTimeout time.Duration

	// jobs carries claimed keys to the dispatcher in request order.
	jobs *channelqueue.ChannelQueue[string]
	// fetchSem is a counting semaphore that limits the number of concurrent
	// upstream fetches.
	fetchSem chan struct{}

	// fetchCtx is the context given to upstream fetches. It is detached
	// from any one requester so that a canceled requester cannot kill a
	// fetch that other requesters are waiting on.
	fetchCtx    context.Context
	fetchCancel context.CancelFunc
	fetchWG     sync.WaitGroup

	// getMutex and getWG block new Get calls while closing and wait for
	// in-progress ones to leave.
	getMutex  sync.Mutex
	getWG     sync.WaitGroup
	getClosed bool

	// closing signals that the Coordinator is closing.
	closing chan struct{}
	// closeOnce ensures that Close only happens once.
	closeOnce sync.Once
	// dispatchDone signals that the dispatcher exited.
	dispatchDone chan struct{}

	stats coordStats
}

// NewCoordinator creates a Coordinator that resolves cache misses with fetch.
func NewCoordinator[T any](fetch FetchFunc[T], options ...Option) (*Coordinator[T], error) {
	if fetch == nil {
		return nil, errors.New("fetch function is required")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	c := &Coordinator[T]{
		cache:       NewStore[T](opts.ttl),
		fetch:       fetch,
		waitTimeout: opts.waitTimeout,

		jobs:     channelqueue.New[string](-1),
		fetchSem: make(chan struct{}, opts.maxConcurrent),

		closing:      make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	c.fetchCtx, c.fetchCancel = context.WithCancel(context.Background())

	go c.dispatcher()

	return c, nil
}

// Get returns the data for key. A fresh cached result, positive or negative,
// is returned immediately; a cached negative result is returned as the zero
// value with nil error. Otherwise Get fetches from the provider, attaching
// to an already in-flight fetch for key if there is one.
//
// Get waits for a fetch no longer than the configured wait timeout. When the
// timeout passes, Get returns the zero value with nil error while the fetch
// keeps running, so its result is cached for later requests.
func (c *Coordinator[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	c.getMutex.Lock()
	if c.getClosed {
		c.getMutex.Unlock()
		return zero, ErrClosed
	}
	c.getWG.Add(1)
	c.getMutex.Unlock()
	defer c.getWG.Done()

	for {
		ent, ok := c.cache.Get(key)
		if ok && c.cache.Fresh(ent) {
			if ent.Negative {
				c.stats.negativeHits.Add(1)
				return zero, nil
			}
			c.stats.hits.Add(1)
			return ent.Value, nil
		}

		done, claimed := c.cache.MarkFetching(key)
		if claimed {
			c.stats.misses.Add(1)
			c.stats.queued.Add(1)
			c.jobs.In() <- key
		} else if done == nil {
			// Another request recorded a fresh result between the read and
			// the claim. Read it.
			continue
		} else {
			c.stats.coalesced.Add(1)
		}

		return c.wait(ctx, key, done)
	}
}

// wait parks the request until the in-flight fetch for key completes, the
// wait timeout passes, the request context is done, or the coordinator
// closes.
func (c *Coordinator[T]) wait(ctx context.Context, key string, done <-chan struct{}) (T, error) {
	var zero T
	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case <-done:
		ent, ok := c.cache.Get(key)
		if !ok || ent.Fetching || ent.Negative || ent.FetchedAt.IsZero() {
			return zero, nil
		}
		return ent.Value, nil
	case <-timer.C:
		c.stats.timeouts.Add(1)
		log.Debugw("Timed out waiting for fetch, fetch continues", "key", key, "timeout", c.waitTimeout)
		return zero, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.closing:
		return zero, ErrClosed
	}
}

// dispatcher takes claimed keys off the job queue one at a time and starts a
// fetch for each as semaphore slots free up, preserving request order.
func (c *Coordinator[T]) dispatcher() {
	defer close(c.dispatchDone)
	for key := range c.jobs.Out() {
		c.stats.queued.Add(-1)
		select {
		case <-c.closing:
			// Wake any waiters still parked on this key.
			c.cache.Abandon(key)
			continue
		default:
		}
		select {
		case c.fetchSem <- struct{}{}:
		case <-c.closing:
			c.cache.Abandon(key)
			continue
		}
		c.fetchWG.Add(1)
		go c.runFetch(key)
	}
}

func (c *Coordinator[T]) runFetch(key string) {
	defer c.fetchWG.Done()
	defer func() {
		<-c.fetchSem
	}()

	c.stats.fetches.Add(1)
	value, err := c.fetch(c.fetchCtx, key)
	if err != nil {
		if c.fetchCtx.Err() != nil {
			// Shutting down. Wake waiters without recording a result.
			c.cache.Abandon(key)
			return
		}
		c.stats.fetchErrors.Add(1)
		// Record any failure as a negative result so that a burst of
		// requests for a troubled key does not hammer the provider. The
		// entry ages out on the normal TTL schedule.
		log.Debugw("Caching negative result after failed fetch", "key", key, "err", err)
		c.cache.PutNegative(key)
		return
	}
	c.cache.Put(key, value)
}

// Cache returns the coordinator's backing store. Invalidation and
// diagnostics go directly through the store.
func (c *Coordinator[T]) Cache() *Store[T] {
	return c.cache
}

// Close shuts down the Coordinator. Requests waiting on fetches are woken,
// in-flight fetches are canceled, and subsequent calls to Get return
// ErrClosed.
func (c *Coordinator[T]) Close() {
	c.closeOnce.Do(c.doClose)
}

func (c *Coordinator[T]) doClose() {
	close(c.closing)

	// Block any additional Get calls and wait for in-progress ones to leave.
	c.getMutex.Lock()
	c.getClosed = true
	c.getMutex.Unlock()
	c.getWG.Wait()

	// Closing the queue input lets the dispatcher drain what remains and
	// exit when the output channel closes behind it.
	close(c.jobs.In())
	<-c.dispatchDone

	// Cancel in-flight fetches and wait for them to finish.
	c.fetchCancel()
	c.fetchWG.Wait()
}

type coordStats struct {
	hits         atomic.Uint64
	negativeHits atomic.Uint64
	misses       atomic.Uint64
	coalesced    atomic.Uint64
	fetches      atomic.Uint64
	fetchErrors  atomic.Uint64
	timeouts     atomic.Uint64
	queued       atomic.Int64
}

// CoordinatorStats is a snapshot of coordinator activity counters.
type CoordinatorStats struct {
	// Hits counts requests served from a fresh positive entry.
	Hits uint64
	// NegativeHits counts requests served from a fresh negative entry.
	NegativeHits uint64
	// Misses counts requests that claimed a new fetch.
	Misses uint64
	// Coalesced counts requests that attached to another request's fetch.
	Coalesced uint64
	// Fetches counts upstream calls started.
	Fetches uint64
	// FetchErrors counts upstream calls that failed.
	FetchErrors uint64
	// Timeouts counts requests that gave up waiting for a fetch.
	Timeouts uint64
	// Active is the number of fetches in flight now.
	Active int
	// Queued is the number of claimed keys waiting for a fetch slot.
	Queued int
}

// Stats returns a snapshot of coordinator activity counters.
func (c *Coordinator[T]) Stats() CoordinatorStats {
	return CoordinatorStats{
		Hits:         c.stats.hits.Load(),
		NegativeHits: c.stats.negativeHits.Load(),
		Misses:       c.stats.misses.Load(),
		Coalesced:    c.stats.coalesced.Load(),
		Fetches:      c.stats.fetches.Load(),
		FetchErrors:  c.stats.fetchErrors.Load(),
		Timeouts:     c.stats.timeouts.Load(),
		Active:       len(c.fetchSem),
		Queued:       int(c.stats.queued.Load()),
	}
}
