// Package store keeps the local chat transcript and profile in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const migration = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    direction TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profile (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    client_id TEXT NOT NULL,
    nickname TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
`

// Direction tells whether a message came from the server or was sent by us.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Message is one transcript entry.
type Message struct {
	ID        int64     `json:"id"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the local user's identity.
type Profile struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

// Store is the sqlite-backed transcript and profile.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Debug().Str("path", path).Msg("history store opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMessage records one message in the transcript.
func (s *Store) AppendMessage(ctx context.Context, dir Direction, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (direction, body, created_at) VALUES (?, ?, ?)`,
		string(dir), text, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// RecentMessages returns at most limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, direction, body, created_at FROM (
    SELECT id, direction, body, created_at FROM messages ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var dir string
		var created int64
		if err := rows.Scan(&m.ID, &dir, &m.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Direction = Direction(dir)
		m.CreatedAt = time.UnixMilli(created)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LoadProfile returns the stored profile, creating one with a fresh id and a
// random colour on first use.
func (s *Store) LoadProfile(ctx context.Context) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT client_id, nickname, color FROM profile WHERE id = 1`).Scan(&p.ID, &p.Nickname, &p.Color)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	p = Profile{
		ID:    uuid.NewString(),
		Color: colorful.HappyColor().Hex(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile (id, client_id, nickname, color) VALUES (1, ?, ?, ?)`, p.ID, p.Nickname, p.Color)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	log.Info().Str("client_id", p.ID).Msg("created local profile")
	return p, nil
}

// SetNickname stores nick and returns the updated profile.
func (s *Store) SetNickname(ctx context.Context, nick string) (Profile, error) {
	p, err := s.LoadProfile(ctx)
	if err != nil {
		return Profile{}, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE profile SET nickname = ? WHERE id = 1`, nick); err != nil {
		return Profile{}, fmt.Errorf("failed to save nickname: %w", err)
	}
	p.Nickname = nick
	return p, nil
}
