package indexer

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const hashSchema = `
	CREATE TABLE IF NOT EXISTS file_hashes (
		file_path TEXT PRIMARY KEY,
		hash INTEGER NOT NULL
	);
`

// HashStore remembers the xxhash of each indexed file so unchanged files
// are skipped on the next scan.
type HashStore struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewHashStore(dbPath string) (*HashStore, error) {
	db, err := openDB(dbPath, hashSchema)
	if err != nil {
		return nil, err
	}
	return &HashStore{db: db}, nil
}

func contentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Changed reports whether content differs from what was stored for path.
func (h *HashStore) Changed(path string, content []byte) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var stored int64
	err := h.db.QueryRow("SELECT hash FROM file_hashes WHERE file_path = ?", path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to read hash of %s: %w", path, err)
	}
	return uint64(stored) != contentHash(content), nil
}

// Put stores the hashes of the given file contents.
func (h *HashStore) Put(contents map[string][]byte) error {
	if len(contents) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO file_hashes (file_path, hash) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare hash statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for path, content := range contents {
		// sqlite integers are signed; the bits round trip unchanged
		if _, err := stmt.Exec(path, int64(contentHash(content))); err != nil {
			return fmt.Errorf("failed to save hash of %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// Paths returns every file with a stored hash.
func (h *HashStore) Paths() ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.Query("SELECT file_path FROM file_hashes ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func (h *HashStore) Delete(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, path := range paths {
		if _, err := tx.Exec("DELETE FROM file_hashes WHERE file_path = ?", path); err != nil {
			return fmt.Errorf("failed to delete hash of %s: %w", path, err)
		}
	}
	return tx.Commit()
}

func (h *HashStore) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.db.Exec("DELETE FROM file_hashes")
	return err
}

func (h *HashStore) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return closeDB(h.db)
}
