package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the reconciliation ledger.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run all pending migrations
	if err := runMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// dsn turns a file path into a connection string that enables foreign keys
// on every pooled connection, not only the first.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_foreign_keys=on&_busy_timeout=5000"
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a single database transaction
func (s *Storage) WithTx(ctx context.Context, fn func(tx LedgerTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	// A caller that gave up before commit sees no side effects.
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const entryColumns = `
	e.id, e.transaction_id, e.version, e.receipt_id, e.status, e.score, e.account_id,
	e.vendor_id, e.location_id, COALESCE(v.name, ''), COALESCE(l.address, ''),
	e.category, e.amount, e.currency, e.posted_date, e.description,
	e.match_run_id, e.created_at, e.superseded_at`

const entryFrom = `
	FROM ledger_entries e
	LEFT JOIN vendors v ON v.id = e.vendor_id
	LEFT JOIN locations l ON l.id = e.location_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*LedgerEntry, error) {
	var (
		e            LedgerEntry
		receiptID    sql.NullString
		vendorID     sql.NullInt64
		locationID   sql.NullInt64
		supersededAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.TransactionID, &e.Version, &receiptID, &e.Status, &e.Score, &e.AccountID,
		&vendorID, &locationID, &e.VendorName, &e.Address,
		&e.Category, &e.Amount, &e.Currency, &e.PostedDate, &e.Description,
		&e.MatchRunID, &e.CreatedAt, &supersededAt,
	)
	if err != nil {
		return nil, err
	}

	e.ReceiptID = receiptID.String
	e.VendorID = vendorID.Int64
	e.LocationID = locationID.Int64
	if supersededAt.Valid {
		at := supersededAt.Time
		e.SupersededAt = &at
	}
	return &e, nil
}

func queryEntries(ctx context.Context, q queryer, query string, args ...any) ([]LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]LedgerEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func queryEntry(ctx context.Context, q queryer, query string, args ...any) (*LedgerEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
