package stats

import "context"

// Source fetches the most recent completed match for a tracked steam ID.
//
// A (nil, nil) return means "no new data": the player has no recorded matches
// or the provider returned a record too incomplete to use. Errors are reserved
// for transport and decode failures; callers treat them as soft failures and
// skip the identity for the current pass.
type Source interface {
	FetchRecentMatch(ctx context.Context, steamID string) (*Match, error)
}
