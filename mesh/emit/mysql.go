package emit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLEmitter implements Emitter by journaling events to a
// MySQL/MariaDB database.
//
// Designed for:
//   - Shared event history across several fleet runs
//   - Audit trails that outlive the host machine
//   - SQL analysis over large event volumes
//
// Schema:
//   - site_events(id, site, seq, msg, meta, created_at)
//
// Security: never hardcode credentials. Read the DSN from the
// environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	journal, err := emit.NewMySQLEmitter(dsn)
type MySQLEmitter struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLEmitter creates a new MySQL-backed event journal.
//
// The DSN format is the usual go-sql-driver form:
//
//	user:password@tcp(localhost:3306)/exprmesh?parseTime=true
//
// The emitter verifies the connection and creates the events table if it
// does not exist.
func NewMySQLEmitter(dsn string) (*MySQLEmitter, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	e := &MySQLEmitter{db: db}
	if err := e.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return e, nil
}

func (e *MySQLEmitter) createTables(ctx context.Context) error {
	eventsTable := `
		CREATE TABLE IF NOT EXISTS site_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			msg VARCHAR(255) NOT NULL,
			meta JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_site_seq (site, seq),
			INDEX idx_site_events_site (site)
		) ENGINE=InnoDB
	`
	if _, err := e.db.ExecContext(ctx, eventsTable); err != nil {
		return fmt.Errorf("failed to create site_events table: %w", err)
	}
	return nil
}

// Emit journals one event. Failures are silent; journaling is
// best-effort.
func (e *MySQLEmitter) Emit(event Event) {
	_ = e.insert(context.Background(), event)
}

func (e *MySQLEmitter) insert(ctx context.Context, event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return sql.ErrConnDone
	}

	meta, err := marshalMeta(event.Meta)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx,
		"INSERT IGNORE INTO site_events (site, seq, msg, meta) VALUES (?, ?, ?, ?)",
		event.Site, event.Seq, event.Msg, meta)
	return err
}

// EmitBatch journals events in one transaction.
func (e *MySQLEmitter) EmitBatch(ctx context.Context, events []Event) error {
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
		meta, err := marshalMeta(event.Meta)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO site_events (site, seq, msg, meta) VALUES (?, ?, ?, ?)",
			event.Site, event.Seq, event.Msg, meta); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func marshalMeta(meta map[string]interface{}) (interface{}, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event meta: %w", err)
	}
	return string(data), nil
}

// Flush is a no-op: writes are synchronous.
func (e *MySQLEmitter) Flush(context.Context) error { return nil }

// Close closes the database. Subsequent emits are dropped.
func (e *MySQLEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.db.Close()
}
