package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/rcliao/sorma/internal/model"
)

// SQLiteBackend implements Backend using SQLite.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend opens or creates a SQLite database at the given path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteBackend{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteBackend) Path() string { return s.path }

func (s *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		seq        INTEGER PRIMARY KEY,
		id         TEXT NOT NULL,
		created_at TEXT NOT NULL,
		content    TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT 'general',
		importance TEXT NOT NULL DEFAULT 'high'
	);

	CREATE TABLE IF NOT EXISTS conversations (
		seq            INTEGER PRIMARY KEY,
		id             TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		user_text      TEXT NOT NULL,
		assistant_text TEXT NOT NULL,
		session_id     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id);

	CREATE TABLE IF NOT EXISTS owner_profile (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteBackend) LoadFacts(ctx context.Context) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, content, category, importance FROM facts ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		var createdAt string
		if err := rows.Scan(&f.ID, &createdAt, &f.Content, &f.Category, &f.Importance); err != nil {
			return nil, err
		}
		f.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: fact %s timestamp: %v", ErrCorrupt, f.ID, err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *SQLiteBackend) SaveFacts(ctx context.Context, facts []model.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("truncate facts: %w", err)
	}
	for i, f := range facts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO facts (seq, id, created_at, content, category, importance)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, f.ID, f.Timestamp.UTC().Format(time.RFC3339Nano), f.Content, f.Category, f.Importance)
		if err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteBackend) LoadConversations(ctx context.Context) ([]model.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, user_text, assistant_text, session_id FROM conversations ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		var createdAt string
		if err := rows.Scan(&t.ID, &createdAt, &t.User, &t.Assistant, &t.SessionID); err != nil {
			return nil, err
		}
		t.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: turn %s timestamp: %v", ErrCorrupt, t.ID, err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *SQLiteBackend) SaveConversations(ctx context.Context, turns []model.ConversationTurn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("truncate conversations: %w", err)
	}
	for i, t := range turns {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversations (seq, id, created_at, user_text, assistant_text, session_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, t.ID, t.Timestamp.UTC().Format(time.RFC3339Nano), t.User, t.Assistant, t.SessionID)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteBackend) LoadOwner(ctx context.Context) (*model.OwnerProfile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM owner_profile WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}

	var owner model.OwnerProfile
	if err := json.Unmarshal([]byte(doc), &owner); err != nil {
		return nil, fmt.Errorf("%w: owner profile: %v", ErrCorrupt, err)
	}
	return &owner, nil
}

func (s *SQLiteBackend) SaveOwner(ctx context.Context, owner *model.OwnerProfile) error {
	b, err := json.Marshal(owner)
	if err != nil {
		return fmt.Errorf("marshal owner: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO owner_profile (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(b), now)
	if err != nil {
		return fmt.Errorf("upsert owner: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
