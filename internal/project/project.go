// Package project ties configuration, the declaration cache and the
// analyzer together for one PHP project.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopware/phpflow/internal/analyzer"
	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/indexer"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/php"
)

type Project struct {
	Root         string
	Config       config.Config
	Scanner      *indexer.FileScanner
	Declarations *indexer.DeclarationIndexer

	logger *slog.Logger
}

// FileResult is the outcome of analysing one file.
type FileResult struct {
	Path   string
	File   *ast.File
	Table  *artifacts.Table
	Issues []issue.Issue
	// Errors are internal errors that aborted a function or method body.
	Errors []error
}

// Open loads phpflow.yaml from root and opens the project cache below the
// user config dir.
func Open(root string) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	cacheDir, err := config.ProjectCacheFolder(root)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return OpenWithCache(root, cacheDir, cfg)
}

// OpenWithCache opens the project with an explicit cache directory and
// configuration.
func OpenWithCache(root, cacheDir string, cfg config.Config) (*Project, error) {
	if _, err := indexer.CheckAndMigrateCache(cacheDir); err != nil {
		return nil, err
	}

	scanner, err := indexer.NewFileScanner(root, filepath.Join(cacheDir, "files.db"), cfg)
	if err != nil {
		return nil, err
	}
	decls, err := indexer.NewDeclarationIndexer(cacheDir)
	if err != nil {
		_ = scanner.Close()
		return nil, err
	}
	scanner.AddIndexer(decls)

	return &Project{
		Root:         root,
		Config:       cfg,
		Scanner:      scanner,
		Declarations: decls,
		logger:       slog.With("section", "cli"),
	}, nil
}

// Index brings the declaration cache up to date with the files on disk.
func (p *Project) Index(ctx context.Context) error {
	return p.Scanner.IndexAll(ctx)
}

// Codebase assembles the declarations of every indexed file.
func (p *Project) Codebase() (*codebase.Codebase, error) {
	return p.Declarations.Codebase(nil)
}

func (p *Project) minLevel() issue.Level {
	return issue.ParseLevel(p.Config.MinLevel)
}

// AnalyzeFiles analyses files in parallel against the current codebase.
// Results are returned in the order of files; files that cannot be read
// are reported through the error.
func (p *Project) AnalyzeFiles(ctx context.Context, files []string) ([]FileResult, error) {
	cb, err := p.Codebase()
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	var (
		mu      sync.Mutex
		results = make(map[string]FileResult, len(files))
	)

	errs := indexer.Each(ctx, files, p.Config.Workers, func() indexer.Worker {
		w, err := newAnalysisWorker(cb, p.Config, p.minLevel(), func(r FileResult) {
			mu.Lock()
			results[r.Path] = r
			mu.Unlock()
		})
		if err != nil {
			return failedWorker{err: err}
		}
		return w
	})

	out := make([]FileResult, 0, len(results))
	for _, path := range files {
		if r, ok := results[path]; ok {
			out = append(out, r)
		}
	}

	p.logger.Info("Analysis finished", "files", len(out), "took", time.Since(startTime).String())

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("failed to analyse %d files: %w", len(errs), errs[0])
	}
	return out, nil
}

// AnalyzeSource analyses src as the content of path, e.g. an editor buffer
// that was not saved yet. The declarations of src replace what the cache
// holds for path.
func (p *Project) AnalyzeSource(path string, src []byte) (FileResult, error) {
	parser, err := php.NewParser()
	if err != nil {
		return FileResult{}, err
	}
	defer parser.Close()

	file, decls, err := parser.Parse(path, src)
	if err != nil {
		return FileResult{}, err
	}

	cb, err := p.Declarations.Codebase(map[string]*php.Declarations{path: decls})
	if err != nil {
		return FileResult{}, err
	}
	return analyze(analyzerFor(cb, p.Config), file, p.minLevel()), nil
}

// Issues flattens the issues of results, ordered by file and position.
func Issues(results []FileResult) []issue.Issue {
	var out []issue.Issue
	for _, r := range results {
		out = append(out, r.Issues...)
	}
	issue.Sort(out)
	return out
}

func (p *Project) Close() error {
	return p.Scanner.Close()
}

// sink forwards issues to the buffer of the file being analysed.
type sink struct {
	buf *issue.Buffer
}

func (s *sink) Report(i issue.Issue) {
	s.buf.Report(i)
}

type boundAnalyzer struct {
	analyzer *analyzer.Analyzer
	sink     *sink
}

func analyzerFor(cb *codebase.Codebase, cfg config.Config) boundAnalyzer {
	s := &sink{buf: &issue.Buffer{}}
	return boundAnalyzer{analyzer: analyzer.New(cb, cfg, s), sink: s}
}

func analyze(a boundAnalyzer, file *ast.File, min issue.Level) FileResult {
	buf := &issue.Buffer{}
	a.sink.buf = buf
	result := a.analyzer.AnalyzeFile(file)
	return FileResult{
		Path:   file.Path,
		File:   file,
		Table:  result.Table,
		Issues: buf.Issues(min),
		Errors: result.Errors,
	}
}

// analysisWorker owns a parser and an analyzer; workers only share the
// frozen codebase.
type analysisWorker struct {
	parser   *php.Parser
	analyzer boundAnalyzer
	min      issue.Level
	done     func(FileResult)
}

func newAnalysisWorker(cb *codebase.Codebase, cfg config.Config, min issue.Level, done func(FileResult)) (*analysisWorker, error) {
	parser, err := php.NewParser()
	if err != nil {
		return nil, err
	}
	return &analysisWorker{
		parser:   parser,
		analyzer: analyzerFor(cb, cfg),
		min:      min,
		done:     done,
	}, nil
}

func (w *analysisWorker) Handle(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	file, _, err := w.parser.Parse(path, src)
	if err != nil {
		return err
	}
	w.done(analyze(w.analyzer, file, w.min))
	return nil
}

func (w *analysisWorker) Done() {
	w.parser.Close()
}

// failedWorker reports the error that kept a worker from starting for every
// file it receives.
type failedWorker struct {
	err error
}

func (w failedWorker) Handle(string) error {
	return w.err
}

func (failedWorker) Done() {}
