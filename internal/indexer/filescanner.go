package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shopware/phpflow/internal/config"
)

var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"vendor-bin":   true,
	".git":         true,
	".github":      true,
	".gitlab":      true,
	".run":         true,
	".idea":        true,
	".vscode":      true,
}

const debounceDelay = 200 * time.Millisecond

// FileScanner finds the PHP files of a project, feeds changed ones to the
// registered indexers and keeps watching the tree when asked to.
type FileScanner struct {
	projectRoot string
	hashes      *HashStore
	indexer     []Indexer
	excludeDirs []string
	workers     int
	logger      *slog.Logger

	watcher    *fsnotify.Watcher
	watcherCtx context.Context
	cancel     context.CancelFunc
	watcherWg  sync.WaitGroup
	onUpdate   func(changed []string)
}

// NewFileScanner opens the hash database at dbPath. Directories listed in
// cfg.ExcludeDirs, relative to projectRoot, are never scanned.
func NewFileScanner(projectRoot string, dbPath string, cfg config.Config) (*FileScanner, error) {
	hashes, err := NewHashStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file hashes: %w", err)
	}

	excludes := make([]string, 0, len(cfg.ExcludeDirs))
	for _, dir := range cfg.ExcludeDirs {
		dir = strings.Trim(filepath.ToSlash(dir), "/")
		if dir != "" {
			excludes = append(excludes, dir)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FileScanner{
		projectRoot: projectRoot,
		hashes:      hashes,
		indexer:     []Indexer{},
		excludeDirs: excludes,
		workers:     cfg.Workers,
		logger:      slog.With("section", "indexer"),
		watcherCtx:  ctx,
		cancel:      cancel,
	}, nil
}

// SetOnUpdate registers fn to be called with the files that were indexed or
// removed after every batch of changes.
func (fs *FileScanner) SetOnUpdate(fn func(changed []string)) {
	fs.onUpdate = fn
}

func (fs *FileScanner) AddIndexer(indexer Indexer) {
	fs.indexer = append(fs.indexer, indexer)
}

// excluded reports whether path lies in a skipped directory.
func (fs *FileScanner) excluded(path string) bool {
	relPath, err := filepath.Rel(fs.projectRoot, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(relPath, string(os.PathSeparator)) {
		if defaultSkipDirs[part] {
			return true
		}
	}
	rel := filepath.ToSlash(relPath)
	for _, dir := range fs.excludeDirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

func isScanned(path string) bool {
	if strings.HasSuffix(path, ".phar.php") {
		return false
	}
	return slices.Contains(scannedFileTypes, strings.ToLower(filepath.Ext(path)))
}

// Files returns the PHP files below the project root, sorted.
func (fs *FileScanner) Files() ([]string, error) {
	return fs.FilesIn(fs.projectRoot)
}

// FilesIn returns the PHP files below root that are not excluded. root may
// also be a single file.
func (fs *FileScanner) FilesIn(root string) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && fs.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if isScanned(path) && !fs.excluded(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// IndexAll indexes every PHP file of the project and drops the data of files
// that disappeared since the last scan.
func (fs *FileScanner) IndexAll(ctx context.Context) error {
	files, err := fs.Files()
	if err != nil {
		return err
	}

	fs.logger.Info("Found files to index", "count", len(files))
	startTime := time.Now()

	if err := fs.IndexFiles(ctx, files); err != nil {
		return fmt.Errorf("failed to index files: %w", err)
	}

	known, err := fs.hashes.Paths()
	if err != nil {
		return err
	}
	var gone []string
	for _, path := range known {
		if _, found := slices.BinarySearch(files, path); !found {
			gone = append(gone, path)
		}
	}
	if len(gone) > 0 {
		fs.logger.Info("Removing vanished files", "count", len(gone))
		if err := fs.RemoveFiles(ctx, gone); err != nil {
			return fmt.Errorf("failed to remove files: %w", err)
		}
	}

	fs.logger.Info("Indexing finished", "took", time.Since(startTime).String())
	return nil
}

// RemoveFiles removes files from every indexer and forgets their hashes.
func (fs *FileScanner) RemoveFiles(ctx context.Context, paths []string) error {
	if err := fs.removeFilesFromIndexers(paths); err != nil {
		return err
	}
	if err := fs.hashes.Delete(paths); err != nil {
		return err
	}

	if fs.onUpdate != nil {
		fs.onUpdate(paths)
	}
	return nil
}

func (fs *FileScanner) removeFilesFromIndexers(paths []string) error {
	for _, indexer := range fs.indexer {
		if err := indexer.RemovedFiles(paths); err != nil {
			return fmt.Errorf("indexer %s: %w", indexer.ID(), err)
		}
	}
	return nil
}

// IndexFiles parses the given files in parallel and passes those whose
// content changed since they were last indexed to every indexer.
func (fs *FileScanner) IndexFiles(ctx context.Context, files []string) error {
	files = slices.DeleteFunc(slices.Clone(files), fs.excluded)
	if len(files) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		changed []string
	)

	errs := Each(ctx, files, fs.workers, func() Worker {
		return &indexWorker{
			fs:     fs,
			parser: CreateTreesitterParser(),
			done: func(paths []string) {
				mu.Lock()
				changed = append(changed, paths...)
				mu.Unlock()
			},
		}
	})
	for _, err := range errs {
		fs.logger.Warn("Error processing file", "error", err)
	}

	if len(changed) > 0 && fs.onUpdate != nil {
		sort.Strings(changed)
		fs.onUpdate(changed)
	}

	return ctx.Err()
}

// ClearHashes clears all indexers and file hashes, forcing a full reindex.
func (fs *FileScanner) ClearHashes() error {
	for _, indexer := range fs.indexer {
		if err := indexer.Clear(); err != nil {
			return err
		}
	}
	return fs.hashes.Clear()
}

// Close stops the watcher and closes the hash database and every indexer.
func (fs *FileScanner) Close() error {
	fs.StopWatcher()

	var firstErr error
	if err := fs.hashes.Close(); err != nil {
		firstErr = err
	}
	for _, indexer := range fs.indexer {
		if err := indexer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartWatcher watches the project for changed PHP files and reindexes them
// after a short debounce.
func (fs *FileScanner) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fs.watcher = watcher
	fs.watcherWg.Add(1)

	go func() {
		defer fs.watcherWg.Done()
		defer func() { _ = watcher.Close() }()

		pendingAdds := make(map[string]bool)
		pendingRemoves := make(map[string]bool)
		debounceTimer := time.NewTimer(time.Hour)
		debounceTimer.Stop()

		resetTimer := func() {
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(debounceDelay)
		}

		processChanges := func() {
			if len(pendingAdds) > 0 {
				filesToAdd := keys(pendingAdds)
				pendingAdds = make(map[string]bool)

				fs.logger.Info("Processing changed files", "count", len(filesToAdd))
				if err := fs.IndexFiles(fs.watcherCtx, filesToAdd); err != nil {
					fs.logger.Warn("Error indexing files", "error", err)
				}
			}

			if len(pendingRemoves) > 0 {
				filesToRemove := keys(pendingRemoves)
				pendingRemoves = make(map[string]bool)

				fs.logger.Info("Processing deleted files", "count", len(filesToRemove))
				if err := fs.RemoveFiles(fs.watcherCtx, filesToRemove); err != nil {
					fs.logger.Warn("Error removing files", "error", err)
				}
			}
		}

		for {
			select {
			case <-fs.watcherCtx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if fs.excluded(event.Name) {
					continue
				}

				fileInfo, err := os.Stat(event.Name)
				if err != nil {
					if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && isScanned(event.Name) {
						pendingRemoves[event.Name] = true
						delete(pendingAdds, event.Name)
						resetTimer()
					}
					continue
				}

				if fileInfo.IsDir() {
					if event.Op&fsnotify.Create != 0 {
						if err := fs.addDirectoryToWatcher(event.Name); err != nil {
							fs.logger.Warn("Error adding directory to watcher", "error", err)
						}
					}
					continue
				}

				if !isScanned(event.Name) {
					continue
				}
				switch {
				case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
					fs.logger.Debug("File changed", "path", event.Name, "op", event.Op.String())
					pendingAdds[event.Name] = true
					delete(pendingRemoves, event.Name)
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					fs.logger.Debug("File removed", "path", event.Name)
					pendingRemoves[event.Name] = true
					delete(pendingAdds, event.Name)
				}
				resetTimer()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fs.logger.Warn("File watcher error", "error", err)

			case <-debounceTimer.C:
				processChanges()
			}
		}
	}()

	return fs.addDirectoryToWatcher(fs.projectRoot)
}

// StopWatcher stops the file watcher and waits for it to exit.
func (fs *FileScanner) StopWatcher() {
	if fs.watcher == nil {
		return
	}
	fs.cancel()
	fs.watcherWg.Wait()
	fs.watcher = nil
}

// addDirectoryToWatcher recursively adds dir and its subdirectories.
func (fs *FileScanner) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != fs.projectRoot && fs.excluded(path) {
			return filepath.SkipDir
		}
		if err := fs.watcher.Add(path); err != nil {
			fs.logger.Warn("Error watching directory", "path", path, "error", err)
		}
		return nil
	})
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
