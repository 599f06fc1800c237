package emit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteEmitter implements Emitter by journaling events to a SQLite
// database.
//
// It journals the observability stream only; site state itself is never
// persisted. Designed for:
//   - Development and post-run analysis with zero setup
//   - Single-process fleets
//   - Querying event history with SQL instead of grepping log files
//
// Schema:
//   - site_events(id, site, seq, msg, meta, created_at)
//
// Events are written synchronously: each Emit runs one INSERT before it
// returns.
type SQLiteEmitter struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteEmitter creates a new SQLite-backed event journal.
//
// The path parameter specifies the database file location:
//   - "./events.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The emitter automatically creates the events table and enables WAL
// mode for concurrent reads.
//
// Example:
//
//	journal, err := emit.NewSQLiteEmitter("./events.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer journal.Close()
func NewSQLiteEmitter(path string) (*SQLiteEmitter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	e := &SQLiteEmitter{db: db}
	if err := e.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return e, nil
}

func (e *SQLiteEmitter) createTables(ctx context.Context) error {
	eventsTable := `
		CREATE TABLE IF NOT EXISTS site_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site TEXT NOT NULL,
			seq INTEGER NOT NULL,
			msg TEXT NOT NULL,
			meta TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(site, seq)
		)
	`
	if _, err := e.db.ExecContext(ctx, eventsTable); err != nil {
		return fmt.Errorf("failed to create site_events table: %w", err)
	}
	if _, err := e.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_site_events_site ON site_events(site)"); err != nil {
		return fmt.Errorf("failed to create idx_site_events_site: %w", err)
	}
	return nil
}

// Emit journals one event. Failures are silent; journaling is
// best-effort.
func (e *SQLiteEmitter) Emit(event Event) {
	_ = e.insert(context.Background(), event)
}

func (e *SQLiteEmitter) insert(ctx context.Context, event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return sql.ErrConnDone
	}

	var meta []byte
	if len(event.Meta) > 0 {
		var err error
		meta, err = json.Marshal(event.Meta)
		if err != nil {
			meta = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", event.Meta)))
		}
	}

	// INSERT OR IGNORE keeps re-emission of a (site, seq) pair harmless.
	_, err := e.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO site_events (site, seq, msg, meta) VALUES (?, ?, ?, ?)",
		event.Site, event.Seq, event.Msg, string(meta))
	return err
}

// EmitBatch journals events in one transaction.
func (e *SQLiteEmitter) EmitBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return sql.ErrConnDone
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, event := range events {
		var meta []byte
		if len(event.Meta) > 0 {
			meta, _ = json.Marshal(event.Meta)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO site_events (site, seq, msg, meta) VALUES (?, ?, ?, ?)",
			event.Site, event.Seq, event.Msg, string(meta)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// Flush is a no-op: writes are synchronous.
func (e *SQLiteEmitter) Flush(context.Context) error { return nil }

// Count returns the number of journaled events for a site, or for all
// sites when site is empty. Intended for tests and analysis tooling.
func (e *SQLiteEmitter) Count(ctx context.Context, site string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var (
		n   int
		err error
	)
	if site == "" {
		err = e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM site_events").Scan(&n)
	} else {
		err = e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM site_events WHERE site = ?", site).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Close closes the database. Subsequent emits are dropped.
func (e *SQLiteEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.db.Close()
}
