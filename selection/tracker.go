package selection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tripatlas/go-placemeta/apierror"
	"github.com/tripatlas/go-placemeta/pcache"
	"github.com/tripatlas/go-placemeta/place"
)

var log = logging.Logger("selection")

var ErrClosed = errors.New("tracker closed")

// FetchFunc gets the details of one place from the upstream provider.
type FetchFunc func(ctx context.Context, key string) (*place.Details, error)

// Token identifies one selection in a Tracker's timeline. Tokens increase
// monotonically, so of any two tokens the greater one belongs to the later
// selection. The zero Token is never issued.
type Token uint64

// Tracker fetches place details for a single-focus consumer, such as a detail
// panel, where only the most recently selected place matters. Each call to
// Fetch makes its selection the current one, and a fetch result is only
// cached and returned while its selection is still current. Provider
// responses do not arrive in the order requests were made, so without this a
// slow response for a previously selected place could replace the data of the
// place selected after it.
//
// Tracker does not cancel the provider call for a superseded selection; the
// call runs to completion and its result is discarded. Selections are not
// coalesced either: every selection issues its own provider call, because
// each caller decides for itself whether to bypass the cache.
type Tracker struct {
	fetch FetchFunc
	cache *pcache.Store[*place.Details]

	// current is the token of the most recent selection.
	current atomic.Uint64
	closed  atomic.Bool
	// completeMutex orders fetch completions against the closing bump: a
	// completion holds it across the currency check and the cache write, so
	// no in-flight result can land once Close returns.
	completeMutex sync.Mutex

	stats trackerStats
}

// New creates a Tracker that resolves selections with fetch and keeps results
// in cache. The cache is shared: fresh entries satisfy selections without a
// provider call, whatever wrote them.
func New(fetch FetchFunc, cache *pcache.Store[*place.Details]) (*Tracker, error) {
	if fetch == nil {
		return nil, errors.New("fetch function is required")
	}
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	return &Tracker{
		fetch: fetch,
		cache: cache,
	}, nil
}

// Fetch makes key the current selection and returns its details along with
// the token identifying this selection. A fresh cached result, positive or
// negative, is returned without a provider call unless force is true.
//
// If a later selection is made while the provider call is in flight, then the
// result is discarded when the call completes: it is not cached and not
// returned, and no error is reported. The caller detects this by checking
// IsCurrent on the returned token before acting on the data.
//
// A not-found answer from the provider is cached as a negative result and
// returned as nil details with nil error. Other provider failures are not
// cached and are returned to the caller, which may offer a retry.
func (t *Tracker) Fetch(ctx context.Context, key string, force bool) (*place.Details, Token, error) {
	tok := Token(t.current.Add(1))
	// The closed check comes after taking the token. A token taken after
	// the closing bump would count as current forever, and closed is set
	// before the bump, so that token always sees closed here and stops.
	if t.closed.Load() {
		return nil, 0, ErrClosed
	}
	t.stats.issued.Add(1)

	if !force {
		ent, ok := t.cache.Get(key)
		if ok && t.cache.Fresh(ent) {
			t.stats.cacheHits.Add(1)
			if ent.Negative {
				return nil, tok, nil
			}
			return ent.Value, tok, nil
		}
	}

	t.stats.fetches.Add(1)
	details, err := t.fetch(ctx, key)

	// The completion lock makes the currency check and the cache write one
	// atomic step against the closing bump. A result that gets past the
	// check landed before Close took effect.
	t.completeMutex.Lock()
	defer t.completeMutex.Unlock()

	if !t.IsCurrent(tok) {
		// A later selection or Close happened while this fetch was in
		// flight, so this result, success or failure, is no longer wanted.
		// Drop it without caching so it can never replace newer data.
		t.stats.superseded.Add(1)
		log.Debugw("Discarded fetch result for superseded selection", "key", key, "token", tok, "current", t.Current())
		return nil, tok, nil
	}

	if err != nil {
		if apierror.IsNotFound(err) {
			// The provider definitively has nothing for this place.
			// Remember that, so reselecting the place within the TTL does
			// not ask again.
			t.cache.PutNegative(key)
			return nil, tok, nil
		}
		t.stats.fetchErrors.Add(1)
		return nil, tok, err
	}
	if details == nil {
		t.cache.PutNegative(key)
		return nil, tok, nil
	}

	t.cache.Put(key, details)
	return details, tok, nil
}

// IsCurrent reports whether tok identifies the most recent selection. A
// caller holding details from an earlier Fetch can re-check their relevance
// before rendering them.
func (t *Tracker) IsCurrent(tok Token) bool {
	return tok != 0 && uint64(tok) == t.current.Load()
}

// Current returns the token of the most recent selection, or zero if there
// has not been one.
func (t *Tracker) Current() Token {
	return Token(t.current.Load())
}

// Close marks the tracker closed. Results of fetches still in flight are
// discarded as superseded, and subsequent calls to Fetch return ErrClosed.
// Both hold once Close returns: no fetch completion can write to the cache
// or hand its caller a current token after that.
func (t *Tracker) Close() {
	if t.closed.CompareAndSwap(false, true) {
		// Supersede all issued tokens so that in-flight completions are
		// discarded. Taking the completion lock waits out any completion
		// whose currency check already passed.
		t.completeMutex.Lock()
		t.current.Add(1)
		t.completeMutex.Unlock()
	}
}

type trackerStats struct {
	issued      atomic.Uint64
	superseded  atomic.Uint64
	cacheHits   atomic.Uint64
	fetches     atomic.Uint64
	fetchErrors atomic.Uint64
}

// TrackerStats is a snapshot of tracker activity counters.
type TrackerStats struct {
	// Issued counts selections made.
	Issued uint64
	// Superseded counts fetch results discarded because a later selection
	// was made while the fetch was in flight.
	Superseded uint64
	// CacheHits counts selections served from a fresh cache entry.
	CacheHits uint64
	// Fetches counts provider calls started.
	Fetches uint64
	// FetchErrors counts provider calls that failed while still current,
	// not counting not-found answers.
	FetchErrors uint64
}

// Stats returns a snapshot of tracker activity counters.
func (t *Tracker) Stats() TrackerStats {
	return TrackerStats{
		Issued:      t.stats.issued.Load(),
		Superseded:  t.stats.superseded.Load(),
		CacheHits:   t.stats.cacheHits.Load(),
		Fetches:     t.stats.fetches.Load(),
		FetchErrors: t.stats.fetchErrors.Load(),
	}
}
