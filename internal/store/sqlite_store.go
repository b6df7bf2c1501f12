// Package store provides SQL-backed persistence for the users backend.
// Uses ncruces/go-sqlite3/driver by default and jackc/pgx for Postgres,
// both through database/sql.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/usergrid/pkg/records"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLStore is the SQL-backed user store.
// Thread-safe for concurrent HTTP handlers.
type SQLStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	driver string
	bulk   bool
	now    func() int64
}

// schema defines the users table with temporal versioning.
// Composite primary key (id, version) keeps the full history.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    name TEXT NOT NULL,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    valid_from BIGINT NOT NULL,
    valid_to BIGINT,
    is_current INTEGER DEFAULT 1,
    change_reason TEXT,
    PRIMARY KEY (id, version)
);

-- Partial index for current versions (fast list queries)
CREATE INDEX IF NOT EXISTS idx_users_current ON users(id) WHERE is_current = 1;
-- Index for history queries
CREATE INDEX IF NOT EXISTS idx_users_history ON users(id, valid_from);
`

const userColumns = `id, version, name, username, email, created_at, updated_at,
	valid_from, valid_to, is_current, change_reason`

// NewSQLStore creates a new in-memory SQLite store.
func NewSQLStore() (*SQLStore, error) {
	return NewSQLStoreWithDSN(DriverSQLite, ":memory:")
}

// NewSQLStoreWithDSN opens driver with the given data source name.
// Use ":memory:" or a file path for SQLite, a postgres URL for pgx.
func NewSQLStoreWithDSN(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// Every SQLite connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLStore{
		db:     db,
		driver: driver,
		now:    func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetBulkEnabled switches the bulk update endpoint on or off.
func (s *SQLStore) SetBulkEnabled(enabled bool) {
	s.mu.Lock()
	s.bulk = enabled
	s.mu.Unlock()
}

// BulkEnabled reports whether UpdateBulk is served.
func (s *SQLStore) BulkEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bulk
}

// =============================================================================
// RecordService
// =============================================================================

// FetchAll returns the current version of every user, ordered by id.
func (s *SQLStore) FetchAll(ctx context.Context) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, username, email FROM users
		WHERE is_current = 1 ORDER BY id
	`))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := make([]records.Record, 0)
	for rows.Next() {
		var r records.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Username, &r.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// Update stores r as the next version of its user and returns it.
func (s *SQLStore) Update(ctx context.Context, r records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return records.Record{}, err
	}
	defer tx.Rollback()

	if err := s.updateTx(ctx, tx, r, ReasonUpdate); err != nil {
		return records.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return records.Record{}, err
	}
	return r, nil
}

// UpdateBulk stores every user in one transaction. Fails with
// ErrBulkUnsupported unless the bulk endpoint is enabled.
func (s *SQLStore) UpdateBulk(ctx context.Context, users map[int]records.Record) (map[int]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bulk {
		return nil, ErrBulkUnsupported
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make(map[int]records.Record, len(users))
	for _, id := range records.SortedIDs(users) {
		r := users[id]
		r.ID = id
		if err := s.updateTx(ctx, tx, r, ReasonBulk); err != nil {
			return nil, err
		}
		out[id] = r
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// updateTx closes the current row of r.ID and inserts the next version.
func (s *SQLStore) updateTx(ctx context.Context, tx *sql.Tx, r records.Record, reason string) error {
	var currentVersion int
	var createdAt int64
	err := tx.QueryRowContext(ctx, s.rebind(`
		SELECT version, created_at FROM users
		WHERE id = ? AND is_current = 1
	`), r.ID).Scan(&currentVersion, &createdAt)
	if err == sql.ErrNoRows {
		return ErrNotFound{ID: r.ID}
	}
	if err != nil {
		return fmt.Errorf("read user %d: %w", r.ID, err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE users SET valid_to = ?, is_current = 0
		WHERE id = ? AND is_current = 1
	`), now, r.ID); err != nil {
		return fmt.Errorf("close user %d: %w", r.ID, err)
	}

	return s.insertTx(ctx, tx, &UserVersion{
		Record:       r,
		Version:      currentVersion + 1,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
		ValidFrom:    now,
		IsCurrent:    true,
		ChangeReason: reason,
	})
}

func (s *SQLStore) insertTx(ctx context.Context, tx *sql.Tx, u *UserVersion) error {
	_, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), u.ID, u.Version, u.Name, u.Username, u.Email, u.CreatedAt, u.UpdatedAt,
		u.ValidFrom, u.ValidTo, boolToInt(u.IsCurrent), u.ChangeReason)
	if err != nil {
		return fmt.Errorf("insert user %d v%d: %w", u.ID, u.Version, err)
	}
	return nil
}

// =============================================================================
// Users
// =============================================================================

// CreateUser inserts version 1 of a new user.
func (s *SQLStore) CreateUser(ctx context.Context, r records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.createTx(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) createTx(ctx context.Context, tx *sql.Tx, r records.Record) error {
	now := s.now()
	return s.insertTx(ctx, tx, &UserVersion{
		Record:       r,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
		ValidFrom:    now,
		IsCurrent:    true,
		ChangeReason: ReasonCreate,
	})
}

// Seed creates the given users when the table is empty.
// Returns how many users were inserted.
func (s *SQLStore) Seed(ctx context.Context, users []records.Record) (int, error) {
	n, err := s.CountUsers(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, r := range users {
		if err := s.createTx(ctx, tx, r); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(users), nil
}

// GetUser retrieves the current version of a user.
// Returns nil if not found.
func (s *SQLStore) GetUser(ctx context.Context, id int) (*UserVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+userColumns+` FROM users WHERE id = ? AND is_current = 1
	`), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUserVersions returns every version of a user, oldest first.
func (s *SQLStore) ListUserVersions(ctx context.Context, id int) ([]*UserVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+userColumns+` FROM users WHERE id = ? ORDER BY version
	`), id)
	if err != nil {
		return nil, fmt.Errorf("list versions of %d: %w", id, err)
	}
	defer rows.Close()

	var versions []*UserVersion
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, u)
	}
	return versions, rows.Err()
}

// CountUsers returns the number of users with a current version.
func (s *SQLStore) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_current = 1`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*UserVersion, error) {
	var u UserVersion
	var isCurrent int
	var validTo sql.NullInt64
	var changeReason sql.NullString

	if err := row.Scan(
		&u.ID, &u.Version, &u.Name, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt,
		&u.ValidFrom, &validTo, &isCurrent, &changeReason,
	); err != nil {
		return nil, err
	}

	u.IsCurrent = isCurrent == 1
	if validTo.Valid {
		v := validTo.Int64
		u.ValidTo = &v
	}
	u.ChangeReason = changeReason.String
	return &u, nil
}

// =============================================================================
// Export/Import
// =============================================================================

type exportData struct {
	Users []*UserVersion `json:"users"`
}

// Export serializes the current version of every user to JSON bytes.
func (s *SQLStore) Export(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+userColumns+` FROM users WHERE is_current = 1 ORDER BY id
	`))
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	defer rows.Close()

	data := exportData{Users: make([]*UserVersion, 0)}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		data.Users = append(data.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// Import restores the store from an Export payload.
// Clears all existing data and re-inserts the exported versions as current.
func (s *SQLStore) Import(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var in exportData
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	now := s.now()
	for _, u := range in.Users {
		if u.Version == 0 {
			u.Version = 1
		}
		if u.CreatedAt == 0 {
			u.CreatedAt = now
		}
		if u.UpdatedAt == 0 {
			u.UpdatedAt = u.CreatedAt
		}
		if u.ValidFrom == 0 {
			u.ValidFrom = u.UpdatedAt
		}
		u.ValidTo = nil
		u.IsCurrent = true
		if u.ChangeReason == "" {
			u.ChangeReason = ReasonImport
		}
		if err := s.insertTx(ctx, tx, u); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// Helpers
// =============================================================================

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface check
var _ Storer = (*SQLStore)(nil)
