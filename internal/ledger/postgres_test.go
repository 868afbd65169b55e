package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Mock DB types for testing.
// ---------------------------------------------------------------------------

// mockRows implements pgx.Rows over a fixed list of match ids.
type mockRows struct {
	ids    []string
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.ids) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	if len(dest) != 1 {
		return fmt.Errorf("scan: expected 1 destination, got %d", len(dest))
	}
	s, ok := dest[0].(*string)
	if !ok {
		return fmt.Errorf("scan: unsupported type %T", dest[0])
	}
	*s = r.ids[r.idx-1]
	return nil
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	execCalls []string // first arg of each Exec, for assertions
}

func (db *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("QueryRow not used by ledger")
}

func (db *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if db.queryFunc != nil {
		return db.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (db *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if len(args) > 0 {
		db.execCalls = append(db.execCalls, fmt.Sprint(args[0]))
	} else {
		db.execCalls = append(db.execCalls, sql)
	}
	if db.execFunc != nil {
		return db.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPostgres_LoadPopulatesSet(t *testing.T) {
	t.Parallel()
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockRows{ids: []string{"m1", "m2"}}, nil
		},
	}
	l := NewPostgres(db)

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.IsEmpty() || l.Size() != 2 {
		t.Errorf("size = %d, want 2", l.Size())
	}
	if !l.HasSeen("m1") || !l.HasSeen("m2") {
		t.Error("loaded ids should be seen")
	}
	if l.HasSeen("m3") {
		t.Error("unknown id reported as seen")
	}
}

func TestPostgres_LoadEmptyTableIsFirstRun(t *testing.T) {
	t.Parallel()
	l := NewPostgres(&mockDB{})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !l.IsEmpty() {
		t.Error("empty table should yield empty ledger")
	}
}

func TestPostgres_LoadQueryError(t *testing.T) {
	t.Parallel()
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, errors.New("connection refused")
		},
	}
	l := NewPostgres(db)
	if err := l.Load(context.Background()); err == nil {
		t.Fatal("expected Load to surface query error")
	}
}

func TestPostgres_SaveWritesOnlyDirtyIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockRows{ids: []string{"old"}}, nil
		},
	}
	l := NewPostgres(db)
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	l.MarkSeen("new-1")
	if err := l.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(db.execCalls) != 1 || db.execCalls[0] != "new-1" {
		t.Errorf("exec calls = %v, want just new-1 (old id must not be rewritten)", db.execCalls)
	}

	// A second save with nothing new marked writes nothing.
	if err := l.Save(ctx); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if len(db.execCalls) != 1 {
		t.Errorf("exec calls after idle save = %v, want unchanged", db.execCalls)
	}
}

func TestPostgres_SaveErrorKeepsIDDirty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	failing := true
	db := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if failing {
				return pgconn.CommandTag{}, errors.New("disk full")
			}
			return pgconn.CommandTag{}, nil
		},
	}
	l := NewPostgres(db)

	if err := l.MarkSeenAndSave(ctx, "m1"); err == nil {
		t.Fatal("expected save error")
	}

	// Id is still seen in memory and retried on the next save.
	if !l.HasSeen("m1") {
		t.Error("failed save must not lose the in-memory mark")
	}
	failing = false
	if err := l.Save(ctx); err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if got := db.execCalls[len(db.execCalls)-1]; got != "m1" {
		t.Errorf("retried exec = %q, want m1", got)
	}
}

func TestPostgres_MigrateRunsSchema(t *testing.T) {
	t.Parallel()
	db := &mockDB{}
	l := NewPostgres(db)
	if err := l.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execCalls) != 1 || !strings.Contains(db.execCalls[0], "seen_matches") {
		t.Errorf("Migrate should execute the seen_matches DDL, got %v", db.execCalls)
	}
}
