package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4" // registers the sqlite3 driver

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const sessionDBName = "sessions.db"

// EncryptedSessionStore implements domain.SessionStore using a SQLCipher
// encrypted SQLite database.
type EncryptedSessionStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedSessionStore opens (or creates) the session database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedSessionStore(dataDir string, key []byte) (*EncryptedSessionStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, sessionDBName)
	keyHex := hex.EncodeToString(key)

	// Open with SQLCipher key as DSN parameter
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify encryption works by running a query
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedSessionStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// OpenSessionStore ensures a key exists in dataDir and opens the store with it.
func OpenSessionStore(dataDir string) (*EncryptedSessionStore, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load session key: %w", err)
	}
	return NewEncryptedSessionStore(dataDir, key)
}

// createTables creates the schema if it doesn't exist.
func (s *EncryptedSessionStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER NOT NULL DEFAULT 0,
		prior_mode TEXT NOT NULL DEFAULT '',
		last_mode TEXT NOT NULL DEFAULT '',
		app_version TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions (started_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginSession records a new running session.
func (s *EncryptedSessionStore) BeginSession(session domain.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, pid, started_at, stopped_at, prior_mode, last_mode, app_version)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		session.ID, session.PID, session.StartedAt.UnixMilli(),
		string(session.PriorMode), string(session.LastMode), session.AppVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", session.ID, err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('platform', ?)`, runtime.GOOS)
	if err != nil {
		return err
	}
	if session.AppVersion != "" {
		_, err = s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('app_version', ?)`, session.AppVersion)
	}
	return err
}

// UpdateLastMode records the last successfully applied mode.
func (s *EncryptedSessionStore) UpdateLastMode(id string, mode domain.Mode) error {
	return s.updateOne(`UPDATE sessions SET last_mode = ? WHERE id = ?`, string(mode), id)
}

// EndSession marks the session as cleanly stopped.
func (s *EncryptedSessionStore) EndSession(id string, at time.Time) error {
	return s.updateOne(`UPDATE sessions SET stopped_at = ? WHERE id = ?`, at.UnixMilli(), id)
}

func (s *EncryptedSessionStore) updateOne(query string, args ...interface{}) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session %v not found", args[len(args)-1])
	}
	return nil
}

// LastUnfinished returns the most recent session that never stopped cleanly.
func (s *EncryptedSessionStore) LastUnfinished() (*domain.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, pid, started_at, stopped_at, prior_mode, last_mode, app_version
		FROM sessions WHERE stopped_at = 0
		ORDER BY started_at DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return &sessions[0], nil
}

// Recent returns up to n sessions, newest first.
func (s *EncryptedSessionStore) Recent(n int) ([]domain.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, pid, started_at, stopped_at, prior_mode, last_mode, app_version
		FROM sessions ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		var (
			sess               domain.Session
			started, stopped   int64
			priorMode, lastMod string
		)
		if err := rows.Scan(&sess.ID, &sess.PID, &started, &stopped, &priorMode, &lastMod, &sess.AppVersion); err != nil {
			return nil, err
		}
		sess.StartedAt = time.UnixMilli(started)
		if stopped != 0 {
			sess.StoppedAt = time.UnixMilli(stopped)
		}
		sess.PriorMode = domain.Mode(priorMode)
		sess.LastMode = domain.Mode(lastMod)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Path returns the database file path.
func (s *EncryptedSessionStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedSessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedSessionStore implements domain.SessionStore.
var _ domain.SessionStore = (*EncryptedSessionStore)(nil)
