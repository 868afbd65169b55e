// Package ledger provides the durable set of match identifiers that have
// already been reported. It is the only state the daemon keeps between
// restarts: a match id present in the ledger is never announced again.
//
// Two backends are provided: [File], a newline-delimited flat file, and
// [Postgres] for deployments that already run a database. Both keep the full
// set in memory so membership checks are O(1); persistence happens explicitly
// via Save or MarkSeenAndSave.
package ledger

import "context"

// Ledger is the seen-match set contract.
//
// Implementations are safe for use from a single goroutine; the poller is the
// only writer by design.
type Ledger interface {
	// Load reads the persisted identifiers into memory. A missing store is not
	// an error, it signals a first run. Load fails only on unrecoverable I/O
	// errors, which callers must surface loudly rather than treating the set
	// as empty.
	Load(ctx context.Context) error

	// HasSeen reports whether the match id has already been reported.
	HasSeen(matchID string) bool

	// MarkSeen adds the id to the in-memory set without persisting.
	MarkSeen(matchID string)

	// MarkSeenAndSave marks the id and persists the full set. After it returns
	// nil, a fresh Load in a new process reports the id as seen.
	MarkSeenAndSave(ctx context.Context, matchID string) error

	// Save persists the full in-memory set.
	Save(ctx context.Context) error

	// IsEmpty reports whether the set holds no identifiers. Used to gate the
	// first-run silent initialization.
	IsEmpty() bool

	// Size returns the number of identifiers in the set.
	Size() int
}
