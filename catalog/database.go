package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // driver import
)

const (
	tableAuthors    = "authors"
	tableBooks      = "books"
	tableBorrowings = "borrowings"
)

// Database provides the catalog's persistence over a SQLite connection.
// Queries are built with goqu and executed through sqlx.
type Database struct {
	db              *sqlx.DB
	gq              goqu.DialectWrapper
	clock           Clock
	log             Logger
	defaultLoanDays int
}

// DBOption configures a Database.
type DBOption func(*Database)

// WithClock replaces the wall clock, used by tests to control loan dates.
func WithClock(c Clock) DBOption {
	return func(d *Database) { d.clock = c }
}

// WithLogger sets the logger for operational events.
func WithLogger(l Logger) DBOption {
	return func(d *Database) { d.log = l }
}

// WithDefaultLoanDays overrides the loan period applied when a borrow
// request does not specify one.
func WithDefaultLoanDays(days int) DBOption {
	return func(d *Database) { d.defaultLoanDays = days }
}

// OpenDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func OpenDatabase(dbPath string, opts ...DBOption) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{
		db:              db,
		gq:              goqu.Dialect("sqlite3"),
		clock:           SystemClock(),
		log:             DefaultLogger(),
		defaultLoanDays: DefaultLoanDays,
	}
	for _, opt := range opts {
		opt(database)
	}
	if database.defaultLoanDays < 1 {
		db.Close()
		return nil, fmt.Errorf("default loan days must be at least 1, got %d", database.defaultLoanDays)
	}
	return database, nil
}

// Close closes the underlying database.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS authors (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            date_of_birth DATETIME,
            nationality TEXT,
            biography TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            isbn TEXT NOT NULL UNIQUE,
            author_id INTEGER NOT NULL REFERENCES authors(id),
            published_year INTEGER NOT NULL DEFAULT 0,
            genre TEXT,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS borrowings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL,
            borrower_name TEXT NOT NULL,
            borrower_email TEXT NOT NULL,
            borrowed_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            returned_date DATETIME,
            status TEXT NOT NULL
        );`,
		// At most one open borrowing per book, enforced by the storage layer
		// so a racing second borrow cannot slip past the availability check.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrowings_open_book
            ON borrowings(book_id) WHERE returned_date IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_borrowings_status ON borrowings(status);`,
		`CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Transaction helper
// ---------------------------------------------------------------------------

// withTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (d *Database) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *Database) now() time.Time { return d.clock.Now().UTC() }
