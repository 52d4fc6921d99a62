package reconciliation

import (
	"context"
	"sync"
)

// PageFetcher returns one page of a remote listing. Pages start at 1.
type PageFetcher[T any] func(ctx context.Context, page int) ([]T, error)

// PaginatedSearch lazily walks a remote paginated listing to find an object by
// business key. Pages are fetched one at a time and kept in a buffer. An empty
// page or a failed fetch exhausts the searcher: no further page is requested
// until Reset is called.
type PaginatedSearch[T any] struct {
	fetch PageFetcher[T]
	key   func(T) string

	mu        sync.Mutex
	buffer    []T
	nextPage  int
	exhausted bool
	lastErr   error
}

// NewPaginatedSearch creates a searcher over fetch, matching objects by key
func NewPaginatedSearch[T any](fetch PageFetcher[T], key func(T) string) *PaginatedSearch[T] {
	return &PaginatedSearch[T]{
		fetch:    fetch,
		key:      key,
		nextPage: 1,
	}
}

// Search returns the first object whose key equals target
func (s *PaginatedSearch[T]) Search(ctx context.Context, target string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scanned := 0
	for {
		for ; scanned < len(s.buffer); scanned++ {
			if s.key(s.buffer[scanned]) == target {
				return s.buffer[scanned], true
			}
		}
		if !s.fetchNext(ctx) {
			var zero T
			return zero, false
		}
	}
}

// Take returns up to n buffered objects in listing order, fetching pages as
// needed. A negative n means everything until exhaustion.
func (s *PaginatedSearch[T]) Take(ctx context.Context, n int) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n < 0 || len(s.buffer) < n {
		if !s.fetchNext(ctx) {
			break
		}
	}
	if n >= 0 && len(s.buffer) > n {
		return append([]T(nil), s.buffer[:n]...)
	}
	return append([]T(nil), s.buffer...)
}

// Exhausted reports whether the listing has been fully walked or a fetch failed
func (s *PaginatedSearch[T]) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// Err returns the fetch error that exhausted the searcher, if any
func (s *PaginatedSearch[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Reset drops the buffer and the exhaustion mark so the listing is walked again
func (s *PaginatedSearch[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = nil
	s.nextPage = 1
	s.exhausted = false
	s.lastErr = nil
}

// fetchNext appends the next page to the buffer and reports whether it grew.
// Callers must hold s.mu.
func (s *PaginatedSearch[T]) fetchNext(ctx context.Context) bool {
	if s.exhausted {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.exhausted = true
		s.lastErr = err
		return false
	}

	items, err := s.fetch(ctx, s.nextPage)
	if err != nil {
		s.exhausted = true
		s.lastErr = err
		return false
	}
	if len(items) == 0 {
		s.exhausted = true
		return false
	}
	s.buffer = append(s.buffer, items...)
	s.nextPage++
	return true
}
