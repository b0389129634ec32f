// Package session composes the place-metadata caching layer for consumer
// code: photo lookups go through a bounded, coalescing fetch coordinator and
// detail lookups go through a selection tracker, over a pair of TTL caches
// scoped to the session. Nothing is persisted; a new session starts cold.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/tripatlas/go-placemeta/pcache"
	"github.com/tripatlas/go-placemeta/place"
	"github.com/tripatlas/go-placemeta/selection"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("session")

// Session serves place photos and details from one provider, caching
// everything it learns for the configured TTL. It is the object a consumer
// composition root creates, owns, and closes; all of its methods are safe for
// concurrent use.
type Session struct {
	photos  *pcache.Coordinator[[]place.Photo]
	details *pcache.Store[*place.Details]
	tracker *selection.Tracker

	// urlGroup deduplicates concurrent materializations of the same photo
	// at the same size.
	urlGroup singleflight.Group
	// urlCtx is the context materialization flights run on. It is detached
	// from any one caller so that a canceled caller cannot fail a flight
	// that other callers are attached to.
	urlCtx    context.Context
	urlCancel context.CancelFunc

	// closing signals that the Session is closing.
	closing chan struct{}
	// closeOnce ensures that Close only happens once.
	closeOnce sync.Once
	// sweepDone signals that the sweeper exited. It is nil when no sweep
	// interval is configured.
	sweepDone chan struct{}
}

// New creates a Session that serves place data from provider.
func New(provider place.Provider, options ...Option) (*Session, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	photos, err := pcache.NewCoordinator[[]place.Photo](provider.Photos,
		pcache.WithTTL(opts.ttl),
		pcache.WithMaxConcurrent(opts.maxConcurrent),
		pcache.WithWaitTimeout(opts.waitTimeout))
	if err != nil {
		return nil, err
	}

	details := pcache.NewStore[*place.Details](opts.ttl)

	fields := opts.detailFields
	tracker, err := selection.New(func(ctx context.Context, key string) (*place.Details, error) {
		return provider.Details(ctx, key, fields)
	}, details)
	if err != nil {
		photos.Close()
		return nil, err
	}

	s := &Session{
		photos:  photos,
		details: details,
		tracker: tracker,
		closing: make(chan struct{}),
	}
	s.urlCtx, s.urlCancel = context.WithCancel(context.Background())

	if opts.sweepInterval > 0 {
		s.sweepDone = make(chan struct{})
		go s.sweeper(opts.sweepInterval)
	}

	return s, nil
}

// Photos returns references to the photos of the place identified by key. A
// nil slice with nil error means the place has no photos available right now,
// which includes the photo fetch having failed or timed out; photos are a
// best-effort enhancement and never block rendering on an error.
func (s *Session) Photos(ctx context.Context, key string) ([]place.Photo, error) {
	return s.photos.Get(ctx, key)
}

// PhotoURL returns a fetchable URL for a photo of the place identified by
// key, sized to fit within maxWidth and maxHeight pixels. Photos are tried in
// provider order and the first one that materializes wins, so one broken
// photo does not lose the place its image. When no photo can be materialized
// PhotoURL returns "" with nil error, and the consumer renders its category
// placeholder.
func (s *Session) PhotoURL(ctx context.Context, key string, maxWidth, maxHeight int) (string, error) {
	flightKey := fmt.Sprintf("%s\x00%dx%d", key, maxWidth, maxHeight)
	ch := s.urlGroup.DoChan(flightKey, func() (any, error) {
		// The flight runs on the session context, not the context of the
		// caller that happened to start it, so callers come and go without
		// affecting the shared materialization.
		return s.photoURL(s.urlCtx, key, maxWidth, maxHeight)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		// The flight keeps running for the other callers attached to it.
		return "", ctx.Err()
	}
}

func (s *Session) photoURL(ctx context.Context, key string, maxWidth, maxHeight int) (string, error) {
	photos, err := s.photos.Get(ctx, key)
	if err != nil {
		return "", err
	}

	var errs error
	for _, photo := range photos {
		u, err := photo.URL(ctx, maxWidth, maxHeight)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			errs = multierror.Append(errs, err)
			continue
		}
		if u != "" {
			return u, nil
		}
	}
	if errs != nil {
		log.Errorw("Cannot materialize any photo URL for place", "err", errs, "place", key)
	}
	return "", nil
}

// Details returns the details of the place identified by key and makes that
// place the current selection. The returned token identifies the selection;
// when responses race, only data whose token is still current should be
// rendered. See selection.Tracker.
func (s *Session) Details(ctx context.Context, key string, force bool) (*place.Details, selection.Token, error) {
	return s.tracker.Fetch(ctx, key, force)
}

// IsCurrent reports whether tok identifies the most recent detail selection.
func (s *Session) IsCurrent(tok selection.Token) bool {
	return s.tracker.IsCurrent(tok)
}

// Invalidate removes the cached photo and detail results for key, so that
// the next request for either asks the provider again.
func (s *Session) Invalidate(key string) {
	s.photos.Cache().Invalidate(key)
	s.details.Invalidate(key)
}

// InvalidateAll removes all cached photo and detail results.
func (s *Session) InvalidateAll() {
	s.photos.Cache().InvalidateAll()
	s.details.InvalidateAll()
}

// CacheInfo reports the cache state of the place identified by key in the
// detail and photo caches.
func (s *Session) CacheInfo(key string) place.CacheInfo {
	return place.CacheInfo{
		Details: entryInfo(s.details, key),
		Photos:  entryInfo(s.photos.Cache(), key),
	}
}

func entryInfo[T any](cache *pcache.Store[T], key string) place.EntryInfo {
	ent, ok := cache.Get(key)
	if !ok {
		return place.EntryInfo{}
	}
	info := place.EntryInfo{
		Cached:   !ent.FetchedAt.IsZero(),
		Fresh:    cache.Fresh(ent),
		Negative: ent.Negative,
		Fetching: ent.Fetching,
	}
	if info.Cached {
		info.Age = time.Since(ent.FetchedAt)
	}
	return info
}

// Stats is a snapshot of session activity counters.
type Stats struct {
	// Photos counts photo fetch coordinator activity.
	Photos pcache.CoordinatorStats
	// Details counts detail selection tracker activity.
	Details selection.TrackerStats
}

// Stats returns a snapshot of session activity counters.
func (s *Session) Stats() Stats {
	return Stats{
		Photos:  s.photos.Stats(),
		Details: s.tracker.Stats(),
	}
}

// Close shuts the Session down: photo requests waiting on fetches are woken,
// results of fetches still in flight are discarded, and the sweeper, if
// running, is stopped. Photos and Details return an error after Close.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.urlCancel()
		s.photos.Close()
		s.tracker.Close()
		if s.sweepDone != nil {
			<-s.sweepDone
		}
	})
}

// sweeper periodically removes expired entries from both caches. This only
// reclaims memory; expired entries are already treated as absent on read.
func (s *Session) sweeper(interval time.Duration) {
	defer close(s.sweepDone)
	t := time.NewTimer(interval)

	for {
		select {
		case <-t.C:
			n := s.photos.Cache().CleanExpired() + s.details.CleanExpired()
			if n != 0 {
				log.Debugw("Removed expired cache entries", "count", n)
			}
			t.Reset(interval)
		case <-s.closing:
			t.Stop()
			return
		}
	}
}
