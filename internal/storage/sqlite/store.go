package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwhitford/domaincred/internal/storage"
)

// DefaultMaxLogEntries caps the diagnostic log when no explicit limit is
// configured.
const DefaultMaxLogEntries = 1000

// Store is a SQLite implementation of LogStore, CredentialStore, and
// DomainStore.
type Store struct {
	db            *sql.DB
	maxLogEntries int
}

var _ storage.Store = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithMaxLogEntries overrides the diagnostic log cap.
func WithMaxLogEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxLogEntries = n
		}
	}
}

// New opens (or creates) a SQLite store at dbPath.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, maxLogEntries: DefaultMaxLogEntries}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS log_entries (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			domain TEXT,
			location_code INTEGER,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			http_status INTEGER,
			api_status_code INTEGER,
			error_type TEXT,
			error_message TEXT,
			cost REAL NOT NULL DEFAULT 0,
			correlation_id TEXT NOT NULL,
			client_code TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			client_code TEXT,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS domains (
			domain TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_timestamp ON log_entries(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_status ON log_entries(status)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_endpoint ON log_entries(endpoint)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_correlation ON log_entries(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_client ON credentials(client_code)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// AppendLogEntry inserts a diagnostic entry and evicts the oldest rows beyond
// the configured cap.
func (s *Store) AppendLogEntry(ctx context.Context, entry storage.LogEntry) error {
	query := `INSERT INTO log_entries
		(id, timestamp, status, endpoint, method, domain, location_code,
		 duration_ms, retry_count, http_status, api_status_code,
		 error_type, error_message, cost, correlation_id, client_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, string(entry.Status), entry.Endpoint, entry.Method,
		entry.Domain, entry.LocationCode, entry.DurationMs, entry.RetryCount,
		entry.HTTPStatus, entry.APIStatusCode, entry.ErrorType, entry.ErrorMessage,
		entry.Cost, entry.CorrelationID, entry.ClientCode)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	trim := `DELETE FROM log_entries WHERE id NOT IN (
		SELECT id FROM log_entries ORDER BY timestamp DESC, id DESC LIMIT ?)`
	if _, err := s.db.ExecContext(ctx, trim, s.maxLogEntries); err != nil {
		return fmt.Errorf("failed to trim log entries: %w", err)
	}

	return nil
}

// ListLogEntries returns entries matching the filter, newest first.
func (s *Store) ListLogEntries(ctx context.Context, filter storage.LogFilter) ([]storage.LogEntry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Endpoint != "" {
		conds = append(conds, "endpoint = ?")
		args = append(args, filter.Endpoint)
	}
	if filter.CorrelationID != "" {
		conds = append(conds, "correlation_id = ?")
		args = append(args, filter.CorrelationID)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	query := `SELECT id, timestamp, status, endpoint, method, domain, location_code,
		duration_ms, retry_count, http_status, api_status_code,
		error_type, error_message, cost, correlation_id, client_code
		FROM log_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	var entries []storage.LogEntry
	for rows.Next() {
		var (
			e                                   storage.LogEntry
			status                              string
			domain, errType, errMsg, clientCode sql.NullString
			locationCode, httpStatus, apiStatus sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &status, &e.Endpoint, &e.Method,
			&domain, &locationCode, &e.DurationMs, &e.RetryCount,
			&httpStatus, &apiStatus, &errType, &errMsg, &e.Cost,
			&e.CorrelationID, &clientCode); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Status = storage.LogStatus(status)
		e.Domain = domain.String
		e.LocationCode = int(locationCode.Int64)
		e.HTTPStatus = int(httpStatus.Int64)
		e.APIStatusCode = int(apiStatus.Int64)
		e.ErrorType = errType.String
		e.ErrorMessage = errMsg.String
		e.ClientCode = clientCode.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ListCredentials returns all credential records in insertion order.
func (s *Store) ListCredentials(ctx context.Context) ([]storage.CredentialRecord, error) {
	query := `SELECT id, client_code, username, password, active, created_at
		FROM credentials ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var recs []storage.CredentialRecord
	for rows.Next() {
		var (
			rec        storage.CredentialRecord
			clientCode sql.NullString
			active     int
		)
		if err := rows.Scan(&rec.ID, &clientCode, &rec.Username, &rec.Password,
			&active, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		rec.ClientCode = clientCode.String
		rec.Active = active != 0
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// SaveCredential inserts or replaces a credential record.
func (s *Store) SaveCredential(ctx context.Context, rec storage.CredentialRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	active := 0
	if rec.Active {
		active = 1
	}

	query := `INSERT OR REPLACE INTO credentials
		(id, client_code, username, password, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ClientCode, rec.Username, rec.Password, active, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

// GetDomain loads one credibility record. Returns (nil, nil) when the domain
// has never been stored.
func (s *Store) GetDomain(ctx context.Context, domain string) (*storage.DomainCredibilityData, error) {
	query := `SELECT record FROM domains WHERE domain = ?`

	var raw string
	err := s.db.QueryRowContext(ctx, query, domain).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain %s: %w", domain, err)
	}

	var rec storage.DomainCredibilityData
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal domain record: %w", err)
	}

	return &rec, nil
}

// UpsertDomain stores a credibility record keyed by its domain.
func (s *Store) UpsertDomain(ctx context.Context, rec *storage.DomainCredibilityData) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal domain record: %w", err)
	}

	query := `INSERT INTO domains (domain, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, rec.Domain, string(raw), time.Now()); err != nil {
		return fmt.Errorf("failed to upsert domain %s: %w", rec.Domain, err)
	}

	return nil
}

// ListDomains returns all stored credibility records.
func (s *Store) ListDomains(ctx context.Context) ([]*storage.DomainCredibilityData, error) {
	query := `SELECT record FROM domains ORDER BY domain ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	var recs []*storage.DomainCredibilityData
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan domain record: %w", err)
		}
		var rec storage.DomainCredibilityData
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal domain record: %w", err)
		}
		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
