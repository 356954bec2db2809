package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"bodega/internal"
	"bodega/internal/storage"
)

// ChunkStore keeps the files of an in-progress multi-file upload. Contents go
// to disk under one directory per session, bookkeeping goes to sqlite.
type ChunkStore struct {
	db        *storage.DB
	uploadDir string
}

func NewChunkStore(db *storage.DB, uploadDir string) *ChunkStore {
	return &ChunkStore{db: db, uploadDir: uploadDir}
}

func (s *ChunkStore) Store(chunk internal.UploadChunk, content []byte) (int, error) {
	hashBytes := sha256.Sum256(content)
	chunk.Hash = hex.EncodeToString(hashBytes[:])

	dir := s.sessionDir(chunk.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	rawPath := filepath.Join(dir, chunk.Hash+".json")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, content, 0o644); err != nil {
			return 0, err
		}
	}
	chunk.RawRef = rawPath

	if err := s.db.UpsertUploadChunk(chunk); err != nil {
		return 0, err
	}
	return s.db.CountUploadChunks(chunk.SessionID)
}

// Session returns the stored chunks in file index order together with their
// contents keyed by filename.
func (s *ChunkStore) Session(sessionID string) ([]internal.UploadChunk, map[string]string, error) {
	chunks, err := s.db.ListUploadChunks(sessionID)
	if err != nil {
		return nil, nil, err
	}
	files := make(map[string]string, len(chunks))
	for _, c := range chunks {
		blob, err := os.ReadFile(c.RawRef)
		if err != nil {
			return nil, nil, err
		}
		files[c.Filename] = string(blob)
	}
	return chunks, files, nil
}

func (s *ChunkStore) Delete(sessionID string) error {
	if _, err := s.db.DeleteUploadSession(sessionID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// sessionDir names the directory by a hash of the session id, so distinct ids
// never share a directory and no id can point outside uploadDir.
func (s *ChunkStore) sessionDir(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return filepath.Join(s.uploadDir, "session-"+hex.EncodeToString(sum[:16]))
}

// Stale lists sessions that have not received a chunk since cutoff.
func (s *ChunkStore) Stale(cutoff time.Time) ([]string, error) {
	return s.db.StaleUploadSessions(cutoff)
}
