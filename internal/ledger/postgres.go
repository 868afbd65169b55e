package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the seen_matches table. Execute it via
// [Postgres.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS seen_matches (
    match_id TEXT PRIMARY KEY,
    seen_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Postgres]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres is a Ledger backed by a PostgreSQL table. The full set is mirrored
// in memory on Load so membership checks stay O(1); writes are per-id inserts
// with ON CONFLICT DO NOTHING, so persistence is incremental rather than a
// full rewrite.
type Postgres struct {
	db   DB
	seen map[string]struct{}
	// dirty holds ids marked in memory but not yet persisted.
	dirty map[string]struct{}
}

// Compile-time interface check.
var _ Ledger = (*Postgres)(nil)

// NewPostgres creates a Postgres ledger using the given connection or pool.
// Call [Postgres.Migrate] once before Load to ensure the schema exists.
func NewPostgres(db DB) *Postgres {
	return &Postgres{
		db:    db,
		seen:  make(map[string]struct{}),
		dirty: make(map[string]struct{}),
	}
}

// Migrate executes the [Schema] DDL, creating the seen_matches table if it
// does not already exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Load implements Ledger. An empty table is a valid first-run state.
func (p *Postgres) Load(ctx context.Context) error {
	p.seen = make(map[string]struct{})
	p.dirty = make(map[string]struct{})

	rows, err := p.db.Query(ctx, `SELECT match_id FROM seen_matches`)
	if err != nil {
		return fmt.Errorf("ledger: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("ledger: scan: %w", err)
		}
		p.seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ledger: load rows: %w", err)
	}
	return nil
}

// HasSeen implements Ledger.
func (p *Postgres) HasSeen(matchID string) bool {
	_, ok := p.seen[matchID]
	return ok
}

// MarkSeen implements Ledger.
func (p *Postgres) MarkSeen(matchID string) {
	if _, ok := p.seen[matchID]; ok {
		return
	}
	p.seen[matchID] = struct{}{}
	p.dirty[matchID] = struct{}{}
}

// MarkSeenAndSave implements Ledger.
func (p *Postgres) MarkSeenAndSave(ctx context.Context, matchID string) error {
	p.MarkSeen(matchID)
	return p.Save(ctx)
}

// Save implements Ledger. Only ids marked since the last successful Save are
// written; each row insert is atomic on the database side.
func (p *Postgres) Save(ctx context.Context) error {
	for id := range p.dirty {
		_, err := p.db.Exec(ctx,
			`INSERT INTO seen_matches (match_id) VALUES ($1) ON CONFLICT (match_id) DO NOTHING`, id)
		if err != nil {
			return fmt.Errorf("ledger: save %s: %w", id, err)
		}
		delete(p.dirty, id)
	}
	return nil
}

// IsEmpty implements Ledger.
func (p *Postgres) IsEmpty() bool {
	return len(p.seen) == 0
}

// Size implements Ledger.
func (p *Postgres) Size() int {
	return len(p.seen)
}
