package stats

import (
	"context"
	"time"

	"matchherald/internal/observe"
)

// instrumentedSource wraps a Source and records fetch latency and error
// metrics for every call.
type instrumentedSource struct {
	src Source
	met *observe.Metrics
}

// Compile-time interface check.
var _ Source = (*instrumentedSource)(nil)

// Instrument returns a Source that records fetch duration and error counts to
// met around every FetchRecentMatch call.
func Instrument(src Source, met *observe.Metrics) Source {
	return &instrumentedSource{src: src, met: met}
}

func (s *instrumentedSource) FetchRecentMatch(ctx context.Context, steamID string) (*Match, error) {
	start := time.Now()
	m, err := s.src.FetchRecentMatch(ctx, steamID)
	s.met.FetchDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.met.RecordFetchError(ctx, steamID)
	}
	return m, err
}
