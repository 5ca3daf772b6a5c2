package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id          TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	attachments TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	PRIMARY KEY (id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at DESC);
`

// SQLite is the shared Store backend, suitable for multiple app
// instances on one host or a mounted volume.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) List(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, title, content, attachments, created_at, updated_at
		FROM entries WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		// Defensive re-filter in case of a bad migration.
		if e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, userID, id string) (models.Entry, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, attachments, created_at, updated_at
		FROM entries WHERE id = ? AND user_id = ?
	`, id, userID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, apperr.ErrNotFound
		}
		return models.Entry{}, err
	}
	return e, nil
}

func (s *SQLite) Create(ctx context.Context, e models.Entry) error {
	att, err := marshalAttachments(e.Attachments)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, title, content, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Title, e.Content, att, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert entry: %w", err)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, userID, id string, draft models.Draft, now time.Time) (models.Entry, error) {
	att, err := marshalAttachments(draft.Attachments)
	if err != nil {
		return models.Entry{}, err
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE entries SET title = ?, content = ?, attachments = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, draft.Title, draft.Content, att, now, id, userID)
	if err != nil {
		return models.Entry{}, fmt.Errorf("store: update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Entry{}, fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return models.Entry{}, apperr.ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

func (s *SQLite) Delete(ctx context.Context, userID, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("store: delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *SQLite) LastModified(ctx context.Context, userID string) (time.Time, error) {
	// A typed column scan; MAX() yields an untyped expression column
	// that the driver returns as a string.
	var last time.Time
	err := s.conn.QueryRowContext(ctx, `
		SELECT updated_at FROM entries WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT 1
	`, userID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: last modified: %w", err)
	}
	return last, nil
}

func (s *SQLite) Name() string { return BackendSQLite }

// Close closes the underlying database connection.
func (s *SQLite) Close() error { return s.conn.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.Entry, error) {
	var e models.Entry
	var att string
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &att, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, err
		}
		return models.Entry{}, fmt.Errorf("store: scan entry: %w", err)
	}
	if att != "" && att != "[]" {
		if err := json.Unmarshal([]byte(att), &e.Attachments); err != nil {
			return models.Entry{}, fmt.Errorf("store: decode attachments: %w", err)
		}
	}
	return e, nil
}

func marshalAttachments(atts []models.Attachment) (string, error) {
	if len(atts) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(atts)
	if err != nil {
		return "", fmt.Errorf("store: encode attachments: %w", err)
	}
	return string(data), nil
}
