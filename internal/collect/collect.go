// Package collect implements the collection and deduplication stage: one pass
// over every tracked identity that yields the set of genuinely new matches.
//
// Dedup happens on two levels. The ledger filters out matches reported in
// earlier passes, and the per-pass set merges discoveries when several tracked
// identities played the same match; a match with two tracked participants is
// surfaced exactly once.
package collect

import (
	"context"
	"log/slog"

	"matchherald/internal/ledger"
	"matchherald/internal/stats"
)

// Collect queries source for every tracked identity in input order and returns
// the new matches in first-discovered order (deterministic for a given input
// order and adapter state).
//
// Per-identity failures are soft: a fetch error or a "no match" result skips
// that identity with a log line and the pass continues. Context cancellation
// between fetches stops the pass early and returns what was collected so far.
func Collect(ctx context.Context, source stats.Source, seen ledger.Ledger, trackedIDs []string) []*stats.Match {
	var matches []*stats.Match
	collected := make(map[string]struct{})

	for i, id := range trackedIDs {
		if ctx.Err() != nil {
			slog.Info("collection interrupted by shutdown", "remaining", len(trackedIDs)-i)
			break
		}

		match, err := source.FetchRecentMatch(ctx, id)
		if err != nil {
			slog.Warn("recent match fetch failed", "steam_id", id, "err", err)
			continue
		}
		if !match.IsUsable() {
			slog.Debug("no recent match", "steam_id", id)
			continue
		}
		if seen.HasSeen(match.ID) {
			slog.Debug("match already reported", "steam_id", id, "match_id", match.ID)
			continue
		}
		if _, ok := collected[match.ID]; ok {
			// Another tracked identity already surfaced this match in this pass.
			slog.Debug("match already collected this pass", "steam_id", id, "match_id", match.ID)
			continue
		}

		collected[match.ID] = struct{}{}
		matches = append(matches, match)
		slog.Info("new match discovered", "steam_id", id, "match_id", match.ID, "map", match.MapName)
	}

	return matches
}
