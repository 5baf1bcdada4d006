package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ragchat/internal/chat"

	_ "github.com/mattn/go-sqlite3"
)

type Session struct {
	ID             string
	IndexName      string
	StartedTS      int64
	LastActivityTS int64
	MessageCount   int
	Preview        string
}

// Store persists chat sessions and their transcripts in SQLite so a
// conversation can be resumed across runs. Transcripts are written
// wholesale, matching the replace-whole-sequence update discipline of
// the chat core.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			index_name TEXT,
			started_ts INTEGER,
			last_activity_ts INTEGER,
			message_count INTEGER,
			preview TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			entry_id INTEGER,
			role TEXT,
			text TEXT,
			images TEXT,
			filename TEXT,
			file_b64 TEXT,
			PRIMARY KEY (session_id, ord)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity_ts);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateSession(indexName string) (Session, error) {
	now := time.Now().Unix()
	sess := Session{
		ID:             fmt.Sprintf("chat-%d", time.Now().UnixNano()),
		IndexName:      indexName,
		StartedTS:      now,
		LastActivityTS: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, index_name, started_ts, last_activity_ts, message_count, preview)
		 VALUES (?, ?, ?, ?, 0, '')`,
		sess.ID, sess.IndexName, sess.StartedTS, sess.LastActivityTS,
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, index_name, started_ts, last_activity_ts, message_count, preview
		 FROM sessions ORDER BY last_activity_ts DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.IndexName, &sess.StartedTS, &sess.LastActivityTS, &sess.MessageCount, &sess.Preview); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) LatestSession() (Session, bool, error) {
	sessions, err := s.Sessions()
	if err != nil {
		return Session{}, false, err
	}
	if len(sessions) == 0 {
		return Session{}, false, nil
	}
	return sessions[0], true, nil
}

func (s *Store) SetIndexName(sessionID, indexName string) error {
	_, err := s.db.Exec(`UPDATE sessions SET index_name = ? WHERE id = ?`, indexName, sessionID)
	if err != nil {
		return fmt.Errorf("set index name: %w", err)
	}
	return nil
}

// SaveTranscript replaces the stored transcript for a session and
// refreshes the session metadata row.
func (s *Store) SaveTranscript(sessionID string, transcript []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}

	for ord, m := range transcript {
		images := ""
		if len(m.Images) > 0 {
			data, err := json.Marshal(m.Images)
			if err != nil {
				return fmt.Errorf("encode images: %w", err)
			}
			images = string(data)
		}
		filename, fileB64 := "", ""
		if m.File != nil {
			filename, fileB64 = m.File.Name, m.File.Data
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (session_id, ord, entry_id, role, text, images, filename, file_b64)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, ord, m.ID, string(m.Role), m.Text, images, filename, fileB64,
		); err != nil {
			return fmt.Errorf("insert transcript entry: %w", err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE sessions SET last_activity_ts = ?, message_count = ?, preview = ? WHERE id = ?`,
		time.Now().Unix(), len(transcript), preview(transcript), sessionID,
	); err != nil {
		return fmt.Errorf("update session meta: %w", err)
	}
	return tx.Commit()
}

func (s *Store) LoadTranscript(sessionID string) ([]chat.Message, error) {
	rows, err := s.db.Query(
		`SELECT entry_id, role, text, images, filename, file_b64
		 FROM messages WHERE session_id = ? ORDER BY ord`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var role, images, filename, fileB64 string
		if err := rows.Scan(&m.ID, &role, &m.Text, &images, &filename, &fileB64); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		m.Role = chat.Role(role)
		if images != "" {
			if err := json.Unmarshal([]byte(images), &m.Images); err != nil {
				return nil, fmt.Errorf("decode images: %w", err)
			}
		}
		if fileB64 != "" {
			name := filename
			if name == "" {
				name = "export.xlsx"
			}
			m.File = &chat.File{Name: name, Data: fileB64}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func preview(transcript []chat.Message) string {
	for _, m := range transcript {
		if m.Role != chat.RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Text), " ")
		if text == "" {
			continue
		}
		if len(text) > 80 {
			text = text[:77] + "..."
		}
		return text
	}
	return ""
}
