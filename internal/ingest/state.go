package ingest

import (
	"net/http"
	"strings"
	"sync"
)

// Limits are the ceilings the periodic sweep enforces on the transient
// caches. Zero fields fall back to the defaults.
type Limits struct {
	HeaderCache int
	Attempted   int
	Failed      int
}

const (
	defaultHeaderCacheLimit = 1000
	defaultAttemptedLimit   = 500
	defaultFailedLimit      = 100
)

// State owns the process-lifetime URL bookkeeping: the observed-header
// cache, the attempted-URL set, and the failed-URL negative cache. It is
// constructed at process start and passed into each pipeline stage
// explicitly; all access goes through the mutex.
type State struct {
	mu sync.Mutex

	headerCache map[string]http.Header
	headerOrder []string

	attempted      map[string]struct{}
	attemptedOrder []string

	failed map[string]struct{}

	limits Limits
}

func NewState(limits Limits) *State {
	if limits.HeaderCache <= 0 {
		limits.HeaderCache = defaultHeaderCacheLimit
	}
	if limits.Attempted <= 0 {
		limits.Attempted = defaultAttemptedLimit
	}
	if limits.Failed <= 0 {
		limits.Failed = defaultFailedLimit
	}
	return &State{
		headerCache: make(map[string]http.Header),
		attempted:   make(map[string]struct{}),
		failed:      make(map[string]struct{}),
		limits:      limits,
	}
}

// DedupKey identifies "the same resource" across retries: the URL with its
// query string and fragment removed.
func DedupKey(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// CacheHeaders remembers the outbound request headers observed for a URL so
// a later manual fetch can replay them.
func (s *State) CacheHeaders(url string, headers http.Header) {
	if len(headers) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headerCache[url]; !ok {
		s.headerOrder = append(s.headerOrder, url)
	}
	s.headerCache[url] = headers.Clone()
}

// Headers returns the cached outbound headers for a URL, or nil.
func (s *State) Headers(url string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headerCache[url]
}

// TryBegin marks a dedup key as in flight. It returns false when the key is
// already attempted or negatively cached; the check and the set happen under
// one lock so two near-simultaneous observations of the same URL cannot both
// proceed.
func (s *State) TryBegin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempted[key]; ok {
		return false
	}
	if _, ok := s.failed[key]; ok {
		return false
	}
	s.attempted[key] = struct{}{}
	s.attemptedOrder = append(s.attemptedOrder, key)
	return true
}

// Release drops a key from the attempted set so a scheduled retry can claim
// it again.
func (s *State) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAttemptedLocked(key)
}

// MarkFailed moves a key into the negative cache.
func (s *State) MarkFailed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAttemptedLocked(key)
	s.failed[key] = struct{}{}
}

func (s *State) removeAttemptedLocked(key string) {
	if _, ok := s.attempted[key]; !ok {
		return
	}
	delete(s.attempted, key)
	for i, k := range s.attemptedOrder {
		if k == key {
			s.attemptedOrder = append(s.attemptedOrder[:i], s.attemptedOrder[i+1:]...)
			break
		}
	}
}

// SweepReport says what a sweep actually evicted.
type SweepReport struct {
	HeadersEvicted   int
	AttemptedEvicted int
	FailedCleared    int
}

// Sweep trims each cache once it exceeds its ceiling: the header cache and
// attempted set lose their oldest 20% by insertion order, the negative
// cache is cleared entirely.
func (s *State) Sweep() SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report SweepReport

	if len(s.headerCache) > s.limits.HeaderCache {
		evict := s.limits.HeaderCache / 5
		for _, url := range s.headerOrder[:evict] {
			delete(s.headerCache, url)
		}
		s.headerOrder = s.headerOrder[evict:]
		report.HeadersEvicted = evict
	}

	if len(s.attempted) > s.limits.Attempted {
		evict := s.limits.Attempted / 5
		for _, key := range s.attemptedOrder[:evict] {
			delete(s.attempted, key)
		}
		s.attemptedOrder = s.attemptedOrder[evict:]
		report.AttemptedEvicted = evict
	}

	if len(s.failed) > s.limits.Failed {
		report.FailedCleared = len(s.failed)
		s.failed = make(map[string]struct{})
	}

	return report
}

// ResetTransient clears the attempted set and the negative cache. This backs
// the explicit "clear captures" user action; the persisted store is cleared
// separately.
func (s *State) ResetTransient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted = make(map[string]struct{})
	s.attemptedOrder = nil
	s.failed = make(map[string]struct{})
}

// Sizes reports current cache sizes for the status endpoint.
func (s *State) Sizes() (headers, attempted, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.headerCache), len(s.attempted), len(s.failed)
}
