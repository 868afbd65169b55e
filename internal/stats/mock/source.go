// Package mock provides a test double for the stats.Source interface.
package mock

import (
	"context"
	"sync"

	"matchherald/internal/stats"
)

// Source is a mock implementation of stats.Source.
//
// Matches maps steam IDs to the match returned for that identity. An absent
// key yields (nil, nil), the "no new data" result. Errs maps steam IDs to
// injected errors, taking precedence over Matches.
type Source struct {
	mu sync.Mutex

	// Matches maps steam ID → match to return.
	Matches map[string]*stats.Match

	// Errs maps steam ID → error to return instead of a match.
	Errs map[string]error

	// FetchFunc, when set, takes precedence over Matches and Errs.
	FetchFunc func(ctx context.Context, steamID string) (*stats.Match, error)

	// Fetched records every steam ID passed to FetchRecentMatch, in order.
	Fetched []string
}

// Compile-time interface check.
var _ stats.Source = (*Source)(nil)

// FetchRecentMatch implements stats.Source.
func (s *Source) FetchRecentMatch(ctx context.Context, steamID string) (*stats.Match, error) {
	s.mu.Lock()
	s.Fetched = append(s.Fetched, steamID)
	fn := s.FetchFunc
	err := s.Errs[steamID]
	m := s.Matches[steamID]
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, steamID)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FetchCount returns the number of fetches made so far.
func (s *Source) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Fetched)
}
