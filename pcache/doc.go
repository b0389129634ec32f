// Package pcache provides TTL caching and fetch coordination for place data
// retrieved from a rate-limited upstream provider.
//
// Store is the cache itself and Coordinator drives it: reads that miss are
// resolved by fetching from the provider through a bounded set of workers,
// and every result, including a failed lookup, is cached with a
// time-to-live so repeated interest in the same place does not produce
// repeated provider calls.
//
// ## Negative Cache
//
// Lookups for data the provider does not have are cached as negative
// entries. A negative entry is served as "no data" without contacting the
// provider, and is distinct from having no entry at all. Negative entries
// are evicted after the same time-to-live as data entries, after which the
// next lookup tries the provider again.
//
// ## Request Coalescing
//
// When a fetch for a key is in flight, other requests for that key do not
// start their own provider calls. They wait on the same fetch and all
// observe its result when it completes. Fetch completion is signaled by
// closing a per-key channel, so waiters wake without polling.
//
// ## Bounded Fetch Concurrency
//
// At most a configured number of provider fetches run at once. Keys claimed
// beyond that limit wait in an unbounded FIFO queue, so bursts (for example
// a list view requesting photos for every row) are smoothed into a steady
// trickle of provider traffic in request order.
//
// ## Wait Timeout
//
// A request waits for a fetch only so long. When the wait timeout passes the
// request degrades to "no data" while the fetch keeps running, and the
// eventual result is cached for later requests. Consumers render their
// placeholder rather than blocking indefinitely.
//
// ## Cache Eviction
//
// Freshness is computed on every read from the entry timestamp, so nothing
// depends on a background process evicting entries on time. CleanExpired
// removes expired entries to reclaim memory and may be called at any
// convenient interval.
package pcache
