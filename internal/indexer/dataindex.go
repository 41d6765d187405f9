package indexer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA cache_size=10000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA auto_vacuum=INCREMENTAL",
	"PRAGMA wal_autocheckpoint=1000",
}

// openDB opens the sqlite database at dbPath and creates schema when it is
// missing.
func openDB(dbPath, schema string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	// _txlock=immediate takes the write lock on BEGIN so concurrent writers
	// wait on busy_timeout instead of failing with SQLITE_BUSY
	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return db, nil
}

// closeDB compacts the database before closing it.
func closeDB(db *sql.DB) error {
	_, _ = db.Exec("PRAGMA optimize")
	_, _ = db.Exec("PRAGMA incremental_vacuum")
	_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.Close()
}

const dataSchema = `
	CREATE TABLE IF NOT EXISTS data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		value BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_data_key ON data(key);

	CREATE TABLE IF NOT EXISTS files (
		file_path TEXT NOT NULL,
		data_id INTEGER NOT NULL,
		PRIMARY KEY (file_path, data_id),
		FOREIGN KEY (data_id) REFERENCES data(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_files_path ON files(file_path);
	CREATE INDEX IF NOT EXISTS idx_files_data_id ON files(data_id);
`

// DataIndexer stores msgpack encoded values of type T in sqlite. Every value
// belongs to the file it was extracted from, so reindexing a file replaces
// exactly the values it produced before.
type DataIndexer[T any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

func NewDataIndexer[T any](dbPath string) (*DataIndexer[T], error) {
	db, err := openDB(dbPath, dataSchema)
	if err != nil {
		return nil, err
	}
	return &DataIndexer[T]{db: db, dbPath: dbPath}, nil
}

// SaveItem stores item under key for filePath. Values already stored for
// the file are kept.
func (idx *DataIndexer[T]) SaveItem(filePath, key string, item T) error {
	return idx.write(func(tx *sql.Tx) error {
		return insertItems(tx, map[string]map[string]T{filePath: {key: item}})
	})
}

// BatchSaveItems drops everything stored for the files in items and stores
// the new values in the same transaction. A file mapped to no values ends up
// with nothing stored.
func (idx *DataIndexer[T]) BatchSaveItems(items map[string]map[string]T) error {
	return idx.write(func(tx *sql.Tx) error {
		for filePath := range items {
			if err := deleteFile(tx, filePath); err != nil {
				return err
			}
		}
		return insertItems(tx, items)
	})
}

func insertItems[T any](tx *sql.Tx, items map[string]map[string]T) error {
	dataStmt, err := tx.Prepare("INSERT INTO data (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare data statement: %w", err)
	}
	defer func() { _ = dataStmt.Close() }()

	fileStmt, err := tx.Prepare("INSERT INTO files (file_path, data_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare file statement: %w", err)
	}
	defer func() { _ = fileStmt.Close() }()

	for filePath, keyItems := range items {
		for key, item := range keyItems {
			data, err := msgpack.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to marshal item %s of %s: %w", key, filePath, err)
			}

			result, err := dataStmt.Exec(key, data)
			if err != nil {
				return fmt.Errorf("failed to save item: %w", err)
			}
			dataID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}

			if _, err := fileStmt.Exec(filePath, dataID); err != nil {
				return fmt.Errorf("failed to save file association: %w", err)
			}
		}
	}
	return nil
}

// GetValues returns the items stored under key, oldest first.
func (idx *DataIndexer[T]) GetValues(key string) ([]T, error) {
	return idx.query("SELECT value FROM data WHERE key = ? ORDER BY id", key)
}

// GetAllValues returns every stored item.
func (idx *DataIndexer[T]) GetAllValues() ([]T, error) {
	return idx.query("SELECT value FROM data ORDER BY id")
}

// GetValuesByPath returns the items stored for one file.
func (idx *DataIndexer[T]) GetValuesByPath(filePath string) ([]T, error) {
	return idx.query(`
		SELECT d.value FROM data d
		INNER JOIN files f ON d.id = f.data_id
		WHERE f.file_path = ?
		ORDER BY d.id
	`, filePath)
}

// GetAllValuesByPath returns every stored item grouped by its file.
func (idx *DataIndexer[T]) GetAllValuesByPath() (map[string][]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(`
		SELECT f.file_path, d.value FROM data d
		INNER JOIN files f ON d.id = f.data_id
		ORDER BY d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := map[string][]T{}
	for rows.Next() {
		var (
			filePath string
			data     []byte
		)
		if err := rows.Scan(&filePath, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var item T
		if err := msgpack.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item of %s: %w", filePath, err)
		}
		items[filePath] = append(items[filePath], item)
	}
	return items, rows.Err()
}

func (idx *DataIndexer[T]) query(q string, args ...any) ([]T, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		var item T
		if err := msgpack.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetAllKeys returns the distinct keys in the database.
func (idx *DataIndexer[T]) GetAllKeys() ([]string, error) {
	return idx.column("SELECT DISTINCT key FROM data ORDER BY key")
}

// GetAllKeysByPath returns the distinct keys stored for one file.
func (idx *DataIndexer[T]) GetAllKeysByPath(filePath string) ([]string, error) {
	return idx.column(`
		SELECT DISTINCT d.key FROM data d
		INNER JOIN files f ON d.id = f.data_id
		WHERE f.file_path = ?
		ORDER BY d.key
	`, filePath)
}

// GetAllPaths returns the files that have values stored.
func (idx *DataIndexer[T]) GetAllPaths() ([]string, error) {
	return idx.column("SELECT DISTINCT file_path FROM files ORDER BY file_path")
}

func (idx *DataIndexer[T]) column(q string, args ...any) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (idx *DataIndexer[T]) DeleteByFilePath(filePath string) error {
	return idx.BatchDeleteByFilePaths([]string{filePath})
}

// BatchDeleteByFilePaths deletes the items of all given files in a single
// transaction.
func (idx *DataIndexer[T]) BatchDeleteByFilePaths(filePaths []string) error {
	if len(filePaths) == 0 {
		return nil
	}
	return idx.write(func(tx *sql.Tx) error {
		for _, filePath := range filePaths {
			if err := deleteFile(tx, filePath); err != nil {
				return err
			}
		}
		return nil
	})
}

func deleteFile(tx *sql.Tx, filePath string) error {
	_, err := tx.Exec(`
		DELETE FROM data WHERE id IN (
			SELECT data_id FROM files WHERE file_path = ?
		)
	`, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete data of %s: %w", filePath, err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("failed to delete file associations of %s: %w", filePath, err)
	}
	return nil
}

func (idx *DataIndexer[T]) write(fn func(tx *sql.Tx) error) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (idx *DataIndexer[T]) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec("DELETE FROM files; DELETE FROM data;"); err != nil {
		return err
	}
	_, err := idx.db.Exec("PRAGMA incremental_vacuum")
	return err
}

func (idx *DataIndexer[T]) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return closeDB(idx.db)
}
