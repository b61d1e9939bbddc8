// ABOUTME: SQLite implementation of the customer-log store using modernc.org/sqlite
// ABOUTME: Provides log persistence with automatic schema creation and demo seeding

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists customer log entries in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS customer_logs (
			id                 TEXT PRIMARY KEY,
			owner              TEXT NOT NULL,
			customer_name      TEXT NOT NULL,
			customer_email     TEXT NOT NULL,
			event_type         TEXT NOT NULL,
			message            TEXT NOT NULL,
			severity           TEXT NOT NULL,
			follow_up_required INTEGER NOT NULL DEFAULT 0,
			assigned_owner     TEXT,
			created_at         DATETIME NOT NULL,

			CHECK (severity IN ('low', 'medium', 'high', 'critical'))
		);

		CREATE INDEX IF NOT EXISTS idx_logs_owner ON customer_logs(owner);
		CREATE INDEX IF NOT EXISTS idx_logs_owner_created ON customer_logs(owner, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateLogEntry inserts a new log entry. An empty ID is filled with a fresh
// UUID and a zero CreatedAt with the current time.
func (s *SQLiteStore) CreateLogEntry(ctx context.Context, entry *LogEntry) error {
	if !ValidSeverity(entry.Severity) {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, entry.Severity)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_logs (
			id, owner, customer_name, customer_email, event_type, message,
			severity, follow_up_required, assigned_owner, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Owner, entry.CustomerName, entry.CustomerEmail,
		entry.EventType, entry.Message, entry.Severity,
		entry.FollowUpRequired, entry.AssignedOwner, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// GetLogEntry returns a single entry by ID.
func (s *SQLiteStore) GetLogEntry(ctx context.Context, id string) (*LogEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, customer_name, customer_email, event_type, message,
		       severity, follow_up_required, assigned_owner, created_at
		FROM customer_logs WHERE id = ?`, id)

	entry, err := scanLogEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting log entry: %w", err)
	}
	return entry, nil
}

// ListLogEntries returns the owner's entries matching the filter,
// newest first.
func (s *SQLiteStore) ListLogEntries(ctx context.Context, owner string, filter LogFilter) ([]*LogEntry, error) {
	query := `
		SELECT id, owner, customer_name, customer_email, event_type, message,
		       severity, follow_up_required, assigned_owner, created_at
		FROM customer_logs WHERE owner = ?`
	args := []any{owner}

	if filter.FollowUpOnly {
		query += " AND follow_up_required = 1"
	}
	if filter.Severity != "" {
		if !ValidSeverity(filter.Severity) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, filter.Severity)
		}
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.Search != "" {
		query += ` AND (LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(message) LIKE ?)`
		like := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, like, like, like)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountLogEntries returns the total number of entries for an owner.
func (s *SQLiteStore) CountLogEntries(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customer_logs WHERE owner = ?", owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting log entries: %w", err)
	}
	return count, nil
}

// SeedDemoEntries inserts demo rows for an owner when that owner has no
// entries yet, so a fresh dashboard isn't empty.
func (s *SQLiteStore) SeedDemoEntries(ctx context.Context, owner string) error {
	count, err := s.CountLogEntries(ctx, owner)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []LogEntry{
		{CustomerName: "Ava Johnson", CustomerEmail: "ava@northline.com", EventType: "Payment Failed", Message: "Card declined on renewal plan", Severity: SeverityHigh, FollowUpRequired: true, AssignedOwner: "Mia Chen"},
		{CustomerName: "Noah Patel", CustomerEmail: "noah@westbay.io", EventType: "Feature Request", Message: "Asked for CSV export in dashboard", Severity: SeverityLow},
		{CustomerName: "Sophia Martinez", CustomerEmail: "sophia@suncrest.org", EventType: "Escalation", Message: "Could not access account after SSO update", Severity: SeverityCritical, FollowUpRequired: true, AssignedOwner: "Liam Davis"},
		{CustomerName: "Ethan Kim", CustomerEmail: "ethan@brookfield.app", EventType: "Support", Message: "Needs invoice correction before audit", Severity: SeverityMedium, FollowUpRequired: true, AssignedOwner: "Amelia Ross"},
		{CustomerName: "Olivia Brown", CustomerEmail: "olivia@hightide.dev", EventType: "Bug Report", Message: "Intermittent timeout while generating reports", Severity: SeverityMedium},
	}

	for i := range seed {
		seed[i].Owner = owner
		if err := s.CreateLogEntry(ctx, &seed[i]); err != nil {
			return err
		}
	}

	s.logger.Info("seeded demo log entries", "owner", owner, "count", len(seed))
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row scanner) (*LogEntry, error) {
	var entry LogEntry
	var assigned sql.NullString
	err := row.Scan(
		&entry.ID, &entry.Owner, &entry.CustomerName, &entry.CustomerEmail,
		&entry.EventType, &entry.Message, &entry.Severity,
		&entry.FollowUpRequired, &assigned, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.AssignedOwner = assigned.String
	return &entry, nil
}
