package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteUsage persists session usage totals in a SQLite database. Suitable
// for single-instance deployments where usage accounting should survive
// restarts. Uses WAL mode; SQLite only supports a single writer, so the
// connection pool is pinned to one connection.
type SQLiteUsage struct {
	db *sql.DB

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	cleanupStmt *sql.Stmt
}

// NewSQLiteUsage opens (and if necessary creates) the usage database at the
// given path.
func NewSQLiteUsage(dbPath string) (*SQLiteUsage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteUsage{db: db}
	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare usage statements: %w", err)
	}
	return backend, nil
}

func (s *SQLiteUsage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_usage (
		session_key       TEXT PRIMARY KEY,
		model_id          TEXT NOT NULL,
		prompt_tokens     INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_usage_updated ON session_usage(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteUsage) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO session_usage (session_key, model_id, prompt_tokens, completion_tokens, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET
			model_id = excluded.model_id,
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT session_key, model_id, prompt_tokens, completion_tokens, updated_at
		FROM session_usage
		WHERE session_key = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM session_usage
		WHERE updated_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Save implements UsageBackend.
func (s *SQLiteUsage) Save(ctx context.Context, rec UsageRecord) error {
	_, err := s.saveStmt.ExecContext(ctx,
		rec.SessionKey, rec.ModelID, rec.PromptTokens, rec.CompletionTokens, rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save usage record: %w", err)
	}
	return nil
}

// Load implements UsageBackend.
func (s *SQLiteUsage) Load(ctx context.Context, sessionKey string) (UsageRecord, bool) {
	var rec UsageRecord
	var updated int64
	err := s.loadStmt.QueryRowContext(ctx, sessionKey).Scan(
		&rec.SessionKey, &rec.ModelID, &rec.PromptTokens, &rec.CompletionTokens, &updated,
	)
	if err != nil {
		return UsageRecord{}, false
	}
	rec.UpdatedAt = time.Unix(updated, 0)
	return rec, true
}

// Cleanup implements UsageBackend.
func (s *SQLiteUsage) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.cleanupStmt.ExecContext(ctx, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up usage records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close implements UsageBackend.
func (s *SQLiteUsage) Close() error {
	for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.cleanupStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
