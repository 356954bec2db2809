package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bodega/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS load_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  startedAt TEXT NOT NULL,
  towns INTEGER NOT NULL,
  items INTEGER NOT NULL,
  added INTEGER NOT NULL,
  removed INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  totalMs REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS upload_chunks (
  sessionId TEXT NOT NULL,
  filename TEXT NOT NULL,
  fileIndex INTEGER NOT NULL,
  totalFiles INTEGER NOT NULL,
  hash TEXT NOT NULL,
  rawRef TEXT NOT NULL,
  source TEXT,
  timestamp TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(sessionId, filename)
);
CREATE INDEX IF NOT EXISTS idx_upload_chunks_createdAt ON upload_chunks(createdAt);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertLoadRun(run internal.LoadRun) error {
	_, err := d.conn.Exec(`
INSERT INTO load_runs (traceId, startedAt, towns, items, added, removed, failed, totalMs)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, run.StartedAt, run.Towns, run.Items, run.Added, run.Removed, run.Failed, run.TotalMs)
	return err
}

func (d *DB) ListLoadRuns(limit int) ([]internal.LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT traceId, startedAt, towns, items, added, removed, failed, totalMs
FROM load_runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.LoadRun{}
	for rows.Next() {
		var run internal.LoadRun
		if err := rows.Scan(&run.TraceID, &run.StartedAt, &run.Towns, &run.Items, &run.Added, &run.Removed, &run.Failed, &run.TotalMs); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) UpsertUploadChunk(chunk internal.UploadChunk) error {
	_, err := d.conn.Exec(`
INSERT INTO upload_chunks (sessionId, filename, fileIndex, totalFiles, hash, rawRef, source, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sessionId, filename) DO UPDATE SET
  fileIndex=excluded.fileIndex,
  totalFiles=excluded.totalFiles,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  source=excluded.source,
  timestamp=excluded.timestamp
`, chunk.SessionID, chunk.Filename, chunk.FileIndex, chunk.TotalFiles, chunk.Hash, chunk.RawRef, chunk.Source, chunk.Timestamp)
	return err
}

func (d *DB) ListUploadChunks(sessionID string) ([]internal.UploadChunk, error) {
	rows, err := d.conn.Query(`
SELECT sessionId, filename, fileIndex, totalFiles, hash, rawRef, COALESCE(source, ''), COALESCE(timestamp, '')
FROM upload_chunks WHERE sessionId = ? ORDER BY fileIndex ASC, filename ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.UploadChunk{}
	for rows.Next() {
		var c internal.UploadChunk
		if err := rows.Scan(&c.SessionID, &c.Filename, &c.FileIndex, &c.TotalFiles, &c.Hash, &c.RawRef, &c.Source, &c.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) CountUploadChunks(sessionID string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM upload_chunks WHERE sessionId = ?`, sessionID).Scan(&n)
	return n, err
}

// DeleteUploadSession drops the chunk rows of a session and returns the raw
// file references they pointed to.
func (d *DB) DeleteUploadSession(sessionID string) ([]string, error) {
	chunks, err := d.ListUploadChunks(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := d.conn.Exec(`DELETE FROM upload_chunks WHERE sessionId = ?`, sessionID); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		refs = append(refs, c.RawRef)
	}
	return refs, nil
}

// StaleUploadSessions lists sessions whose newest chunk is older than cutoff.
func (d *DB) StaleUploadSessions(cutoff time.Time) ([]string, error) {
	rows, err := d.conn.Query(`
SELECT sessionId FROM upload_chunks
GROUP BY sessionId HAVING MAX(createdAt) < ?
`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
