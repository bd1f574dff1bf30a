package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// This backend is suitable for single-instance deployments where balances
// must survive restarts. The multi-key burn runs inside one IMMEDIATE
// transaction, so it is all-or-nothing even with concurrent writers.
//
// SQLiteStore opens the database in WAL mode with a busy timeout and a
// single write connection, mirroring SQLite's single-writer model.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	// prepared statements for the hot path
	upsertStmt *sql.Stmt
	selectStmt *sql.Stmt
	burnStmt   *sql.Stmt
	topupStmt  *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite backend.
type SQLiteStoreConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite-backed ledger with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{Path: path})
}

// NewSQLiteStoreWithConfig creates a SQLite-backed ledger with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		dbPath: cfg.Path,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

var _ Store = (*SQLiteStore)(nil)

// initSchema creates the ledger table if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_entries (
		bucket_key TEXT PRIMARY KEY,
		remaining REAL NOT NULL,
		limit_amount REAL NOT NULL,
		created_at INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	// Lazy creation: insert only if the key is unseen.
	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO ledger_entries (bucket_key, remaining, limit_amount, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (bucket_key) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.selectStmt, err = s.db.Prepare(`
		SELECT remaining, limit_amount FROM ledger_entries WHERE bucket_key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}

	s.burnStmt, err = s.db.Prepare(`
		UPDATE ledger_entries
		SET remaining = remaining - ?, last_updated = ?
		WHERE bucket_key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare burn statement: %w", err)
	}

	s.topupStmt, err = s.db.Prepare(`
		UPDATE ledger_entries
		SET remaining = remaining + ?, limit_amount = limit_amount + ?, last_updated = ?
		WHERE bucket_key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare topup statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT bucket_key, remaining, limit_amount FROM ledger_entries
		WHERE bucket_key LIKE ? ESCAPE '\'
		ORDER BY bucket_key
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// AuthorizeAndBurn atomically checks and decrements every bucket in refs
// inside one transaction.
func (s *SQLiteStore) AuthorizeAndBurn(ctx context.Context, refs []Ref, cost float64, mode Mode) (*BurnResult, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: cost %v", ErrInvalidAmount, cost)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Unavailable("authorize", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	entries := make([]Entry, len(refs))
	for i, ref := range refs {
		if _, err := tx.StmtContext(ctx, s.upsertStmt).ExecContext(ctx, ref.Key, ref.Limit, ref.Limit, now, now); err != nil {
			return nil, Unavailable("authorize", err)
		}

		var remaining, limit float64
		if err := tx.StmtContext(ctx, s.selectStmt).QueryRowContext(ctx, ref.Key).Scan(&remaining, &limit); err != nil {
			return nil, Unavailable("authorize", err)
		}
		entries[i] = Entry{Key: ref.Key, Remaining: remaining, Limit: limit}
	}

	if mode == ModeHalt {
		for _, e := range entries {
			if e.Remaining < cost {
				// Commit so lazily created rows persist; balances are untouched.
				if err := tx.Commit(); err != nil {
					return nil, Unavailable("authorize", err)
				}
				return &BurnResult{Authorized: false, Entries: entries}, nil
			}
		}
	}

	for i := range entries {
		if _, err := tx.StmtContext(ctx, s.burnStmt).ExecContext(ctx, cost, now, entries[i].Key); err != nil {
			return nil, Unavailable("authorize", err)
		}
		entries[i].Remaining -= cost
	}

	if err := tx.Commit(); err != nil {
		return nil, Unavailable("authorize", err)
	}

	return &BurnResult{Authorized: true, Entries: entries}, nil
}

// Topup adds amount to both remaining and limit of one bucket.
func (s *SQLiteStore) Topup(ctx context.Context, ref Ref, amount float64) (Entry, error) {
	if amount < 0 {
		return Entry{}, fmt.Errorf("%w: topup %v", ErrInvalidAmount, amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, Unavailable("topup", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.StmtContext(ctx, s.upsertStmt).ExecContext(ctx, ref.Key, ref.Limit, ref.Limit, now, now); err != nil {
		return Entry{}, Unavailable("topup", err)
	}
	if _, err := tx.StmtContext(ctx, s.topupStmt).ExecContext(ctx, amount, amount, now, ref.Key); err != nil {
		return Entry{}, Unavailable("topup", err)
	}

	var remaining, limit float64
	if err := tx.StmtContext(ctx, s.selectStmt).QueryRowContext(ctx, ref.Key).Scan(&remaining, &limit); err != nil {
		return Entry{}, Unavailable("topup", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, Unavailable("topup", err)
	}

	return Entry{Key: ref.Key, Remaining: remaining, Limit: limit}, nil
}

// Snapshot returns current balances without burning or creating rows.
func (s *SQLiteStore) Snapshot(ctx context.Context, refs []Ref) ([]Entry, error) {
	out := make([]Entry, len(refs))
	for i, ref := range refs {
		var remaining, limit float64
		err := s.selectStmt.QueryRowContext(ctx, ref.Key).Scan(&remaining, &limit)
		if err == sql.ErrNoRows {
			out[i] = Entry{Key: ref.Key, Remaining: ref.Limit, Limit: ref.Limit}
			continue
		}
		if err != nil {
			return nil, Unavailable("snapshot", err)
		}
		out[i] = Entry{Key: ref.Key, Remaining: remaining, Limit: limit}
	}
	return out, nil
}

// List returns all entries whose key starts with prefix, sorted by key.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	pattern := escapeLike(prefix) + "%"
	rows, err := s.listStmt.QueryContext(ctx, pattern)
	if err != nil {
		return nil, Unavailable("list", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Remaining, &e.Limit); err != nil {
			return nil, Unavailable("list", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("list", err)
	}
	return out, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.upsertStmt, s.selectStmt, s.burnStmt, s.topupStmt, s.listStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// escapeLike escapes LIKE metacharacters in a literal prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
