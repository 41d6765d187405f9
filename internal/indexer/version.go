package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IndexVersion is the schema version of the cache. Bump it whenever the
// stored declarations or file hashes change shape; existing caches are then
// dropped and rebuilt.
const IndexVersion = 2

const versionFileName = "index_version"

// CheckAndMigrateCache clears cacheDir when its version file is missing,
// unreadable or from another IndexVersion. It reports whether the cache was
// cleared and needs a full rebuild.
func CheckAndMigrateCache(cacheDir string) (bool, error) {
	versionFile := filepath.Join(cacheDir, versionFileName)

	data, err := os.ReadFile(versionFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return resetCache(cacheDir, versionFile, "no version file")
	case err != nil:
		return false, fmt.Errorf("failed to read version file: %w", err)
	}

	storedVersion, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return resetCache(cacheDir, versionFile, "corrupted version file")
	}
	if storedVersion != IndexVersion {
		return resetCache(cacheDir, versionFile, "version "+strconv.Itoa(storedVersion))
	}
	return false, nil
}

func resetCache(cacheDir, versionFile, reason string) (bool, error) {
	slog.Info("Rebuilding cache", "section", "indexer", "reason", reason, "dir", cacheDir)
	if err := clearCacheDir(cacheDir); err != nil {
		return false, fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.WriteFile(versionFile, []byte(strconv.Itoa(IndexVersion)), 0o644); err != nil {
		return false, fmt.Errorf("failed to write version: %w", err)
	}
	return true, nil
}

// clearCacheDir removes everything inside cacheDir, creating it when it
// does not exist.
func clearCacheDir(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(cacheDir, 0o755)
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(cacheDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
