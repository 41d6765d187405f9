package indexer

import (
	"fmt"
	"os"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

const batchSize = 50

type fileWork struct {
	path    string
	content []byte
}

// indexWorker parses changed files with its own parser and hands them to
// the indexers in batches.
type indexWorker struct {
	fs     *FileScanner
	parser *tree_sitter.Parser
	batch  []fileWork
	// done receives the files of every batch that was indexed.
	done func(paths []string)
}

func (w *indexWorker) Handle(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		// the file vanished between the walk and now; the watcher removes it
		return nil
	}

	changed, err := w.fs.hashes.Changed(path, content)
	if err != nil {
		w.fs.logger.Debug("Hash lookup failed, reindexing", "path", path, "error", err)
	}
	if !changed {
		return nil
	}

	w.batch = append(w.batch, fileWork{path: path, content: content})
	if len(w.batch) < batchSize {
		return nil
	}
	return w.flush()
}

func (w *indexWorker) Done() {
	if err := w.flush(); err != nil {
		w.fs.logger.Warn("Error processing file", "error", err)
	}
	w.parser.Close()
}

func (w *indexWorker) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	items := w.batch
	w.batch = nil

	paths := make([]string, 0, len(items))
	for _, item := range items {
		paths = append(paths, item.path)
	}

	if err := w.fs.removeFilesFromIndexers(paths); err != nil {
		return err
	}

	indexed := make(map[string][]byte, len(items))
	var firstErr error
	for _, item := range items {
		tree := w.parser.Parse(item.content, nil)
		if tree == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to parse %s", item.path)
			}
			continue
		}

		ok := true
		for _, indexer := range w.fs.indexer {
			if err := indexer.Index(item.path, tree.RootNode(), item.content); err != nil {
				ok = false
				if firstErr == nil {
					firstErr = fmt.Errorf("indexer %s on %s: %w", indexer.ID(), item.path, err)
				}
			}
		}
		tree.Close()

		if ok {
			indexed[item.path] = item.content
		}
	}

	if err := w.fs.hashes.Put(indexed); err != nil && firstErr == nil {
		firstErr = err
	}

	done := make([]string, 0, len(indexed))
	for path := range indexed {
		done = append(done, path)
	}
	if w.done != nil {
		w.done(done)
	}
	return firstErr
}
