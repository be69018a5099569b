package mirror

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hashmirror/hashmirror/internal/db"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    state      TEXT NOT NULL,
    dest_root  TEXT NOT NULL,
    created_at TEXT NOT NULL -- RFC3339
);

CREATE TABLE IF NOT EXISTS journal_entries (
    session_id  TEXT NOT NULL REFERENCES sessions(id),
    seq         INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    source_path TEXT NOT NULL,
    source_hash TEXT NOT NULL DEFAULT '',
    source_id   TEXT NOT NULL DEFAULT '',
    source_size INTEGER NOT NULL DEFAULT 0,
    dest_ref    TEXT NOT NULL,
    status      TEXT NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_entries_status ON journal_entries(session_id, status);
`

// SessionKind names the mutating operation a session performs.
type SessionKind string

const (
	SessionSync  SessionKind = "sync"
	SessionDedup SessionKind = "dedup"
)

// SessionState is the session lifecycle: Planning -> Executing ->
// {Completed | Aborted}.
type SessionState string

const (
	StatePlanning  SessionState = "planning"
	StateExecuting SessionState = "executing"
	StateCompleted SessionState = "completed"
	StateAborted   SessionState = "aborted"
)

// Session is one resumable mutating operation tracked by the journal.
type Session struct {
	ID        string       `db:"id"`
	Kind      SessionKind  `db:"kind"`
	State     SessionState `db:"state"`
	DestRoot  string       `db:"dest_root"`
	CreatedAt string       `db:"created_at"`
}

// Unfinished reports whether the session still has work a resume could pick
// up. Aborted sessions are finished: they must be restarted as a new plan.
func (s *Session) Unfinished() bool {
	return s.State == StatePlanning || s.State == StateExecuting
}

// JournalEntry is the durable counterpart of a planned action. It is written
// before the action is attempted; only its status, never wall-clock
// completion order, drives resume decisions.
type JournalEntry struct {
	SessionID  string       `db:"session_id"`
	Seq        int64        `db:"seq"`
	Kind       ActionKind   `db:"kind"`
	SourcePath string       `db:"source_path"`
	SourceHash string       `db:"source_hash"`
	SourceID   string       `db:"source_id"`
	SourceSize int64        `db:"source_size"`
	DestRef    string       `db:"dest_ref"`
	Status     ActionStatus `db:"status"`
	Attempts   int          `db:"attempts"`
	LastError  string       `db:"last_error"`
}

// Record reconstructs the source file record of the entry.
func (e *JournalEntry) Record() *FileRecord {
	return &FileRecord{
		Path:     e.SourcePath,
		Hash:     e.SourceHash,
		Size:     e.SourceSize,
		RemoteID: e.SourceID,
		Class:    ClassifyPath(e.SourcePath),
	}
}

// Journal is the durable, append-only record of planned and completed
// actions. It is single-writer: an OS-level file lock is held for the
// lifetime of the open journal, so concurrent invocations against the same
// data dir fail fast instead of interleaving.
type Journal struct {
	db     *sqlx.DB
	dbPath string
	lock   *flock.Flock
}

// OpenJournal opens (creating if needed) the journal database at dbPath and
// acquires its writer lock.
func OpenJournal(dbPath string) (*Journal, error) {
	lock := flock.New(dbPath + ".lock")
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("journal lock: %w", err)
	}
	if !held {
		return nil, fmt.Errorf("journal at %s is locked by another process", dbPath)
	}

	sdb, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := sdb.Exec(journalSchema); err != nil {
		sdb.Close()
		lock.Unlock()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: sdb, dbPath: dbPath, lock: lock}, nil
}

// Close releases the database and the writer lock.
func (j *Journal) Close() error {
	if j.db == nil {
		return errors.New("journal not open")
	}
	err := j.db.Close()
	j.db = nil
	if lerr := j.lock.Unlock(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// UnfinishedSession returns the single unfinished session, or nil.
func (j *Journal) UnfinishedSession() (*Session, error) {
	var s Session
	err := j.db.Get(&s,
		`SELECT id, kind, state, dest_root, created_at FROM sessions
		 WHERE state IN (?, ?) ORDER BY created_at DESC LIMIT 1`,
		StatePlanning, StateExecuting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query unfinished session: %w", err)
	}
	return &s, nil
}

// CreateSession persists a new session together with its planned entries in
// one transaction. The session starts in Planning; the executor moves it to
// Executing when it picks the plan up. Only one unfinished session may exist
// at a time.
func (j *Journal) CreateSession(kind SessionKind, plan *Plan) (*Session, error) {
	existing, err := j.UnfinishedSession()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSessionUnfinished
	}

	session := &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		State:     StatePlanning,
		DestRoot:  plan.DestRoot,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	tx, err := j.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin session transaction: %w", err)
	}

	if _, err := tx.NamedExec(
		`INSERT INTO sessions (id, kind, state, dest_root, created_at)
		 VALUES (:id, :kind, :state, :dest_root, :created_at)`, session); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.Preparex(
		`INSERT INTO journal_entries
		 (session_id, seq, kind, source_path, source_hash, source_id, source_size, dest_ref, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare entry insert: %w", err)
	}

	for i, action := range plan.Actions {
		src := action.Source
		if _, err := stmt.Exec(session.ID, int64(i+1), action.Kind,
			src.Path, src.Hash, src.RemoteID, src.Size, action.DestRef, StatusPending); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert entry %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}

	slog.Debug("journal session created", "session", session.ID, "kind", kind, "entries", len(plan.Actions))
	return session, nil
}

// Entries returns every entry of a session in sequence order.
func (j *Journal) Entries(sessionID string) ([]*JournalEntry, error) {
	var entries []*JournalEntry
	err := j.db.Select(&entries,
		`SELECT session_id, seq, kind, source_path, source_hash, source_id,
		        source_size, dest_ref, status, attempts, last_error
		 FROM journal_entries WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries for %s: %w", sessionID, err)
	}
	return entries, nil
}

// Unsettled returns the entries of a session that are not done, in sequence
// order. These are the candidates a resume re-verifies.
func (j *Journal) Unsettled(sessionID string) ([]*JournalEntry, error) {
	var entries []*JournalEntry
	err := j.db.Select(&entries,
		`SELECT session_id, seq, kind, source_path, source_hash, source_id,
		        source_size, dest_ref, status, attempts, last_error
		 FROM journal_entries WHERE session_id = ? AND status != ? ORDER BY seq`,
		sessionID, StatusDone)
	if err != nil {
		return nil, fmt.Errorf("query unsettled entries for %s: %w", sessionID, err)
	}
	return entries, nil
}

// MarkEntry records an entry status transition. Attempts are bumped when the
// entry moves into flight.
func (j *Journal) MarkEntry(sessionID string, seq int64, status ActionStatus, lastError string) error {
	bump := 0
	if status == StatusInFlight {
		bump = 1
	}
	_, err := j.db.Exec(
		`UPDATE journal_entries
		 SET status = ?, attempts = attempts + ?, last_error = ?
		 WHERE session_id = ? AND seq = ?`,
		status, bump, lastError, sessionID, seq)
	if err != nil {
		return fmt.Errorf("mark entry %d %s: %w", seq, status, err)
	}
	return nil
}

// SetSessionState transitions the session lifecycle state.
func (j *Journal) SetSessionState(sessionID string, state SessionState) error {
	_, err := j.db.Exec(`UPDATE sessions SET state = ? WHERE id = ?`, state, sessionID)
	if err != nil {
		return fmt.Errorf("set session %s state %s: %w", sessionID, state, err)
	}
	slog.Debug("journal session state", "session", sessionID, "state", state)
	return nil
}

// StatusCounts tallies entry statuses for a session.
func (j *Journal) StatusCounts(sessionID string) (map[ActionStatus]int, error) {
	rows, err := j.db.Queryx(
		`SELECT status, COUNT(*) AS n FROM journal_entries
		 WHERE session_id = ? GROUP BY status`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count statuses for %s: %w", sessionID, err)
	}
	defer rows.Close()

	counts := make(map[ActionStatus]int)
	for rows.Next() {
		var status ActionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Abandon marks every unfinished session aborted and returns how many were
// affected. Abandoned sessions cannot be resumed.
func (j *Journal) Abandon() (int, error) {
	res, err := j.db.Exec(
		`UPDATE sessions SET state = ? WHERE state IN (?, ?)`,
		StateAborted, StatePlanning, StateExecuting)
	if err != nil {
		return 0, fmt.Errorf("abandon sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
