package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/shopware/phpflow/internal/lsp/protocol"
	"github.com/shopware/phpflow/internal/project"
)

// OpenFunc opens the project rooted at the workspace folder the client
// announced in its initialize request.
type OpenFunc func(root string) (*project.Project, error)

// Server represents the LSP server. It publishes the issues of the type
// analysis, shows inferred types on hover and offers issue fixes as code
// actions.
type Server struct {
	rootPath        string
	conn            *jsonrpc2.Conn
	open            OpenFunc
	project         *project.Project
	projectMu       sync.RWMutex
	documentManager *DocumentManager
	logger          *slog.Logger
	// indexing is set while indexAll runs; it analyses the workspace itself
	// once the cache is complete.
	indexing atomic.Bool
}

// NewServer creates a new LSP server
func NewServer(open OpenFunc) *Server {
	return &Server{
		open:            open,
		documentManager: NewDocumentManager(),
		logger:          slog.With("section", "lsp"),
	}
}

func (s *Server) currentProject() *project.Project {
	s.projectMu.RLock()
	defer s.projectMu.RUnlock()
	return s.project
}

// indexAll brings the declaration cache up to date and analyses the whole
// workspace. If forceReindex is true, it will clear the existing index before
// rebuilding.
func (s *Server) indexAll(ctx context.Context, forceReindex bool) error {
	p := s.currentProject()
	if p == nil {
		return nil
	}
	startTime := time.Now()
	s.indexing.Store(true)
	defer s.indexing.Store(false)

	if s.conn != nil {
		if err := s.conn.Notify(ctx, "phpflow/indexingStarted", map[string]interface{}{
			"message": "Indexing started",
		}); err != nil {
			return err
		}
	}

	if forceReindex {
		if err := p.Scanner.ClearHashes(); err != nil {
			return err
		}
	}

	if err := p.Index(ctx); err != nil {
		return err
	}
	if err := s.analyzeWorkspace(ctx); err != nil {
		return err
	}
	s.reanalyzeOpen(ctx)

	elapsedTime := time.Since(startTime)

	if s.conn != nil {
		if err := s.conn.Notify(ctx, "phpflow/indexingCompleted", map[string]interface{}{
			"message":       "Indexing completed",
			"timeInSeconds": elapsedTime.Seconds(),
		}); err != nil {
			return err
		}
	}

	return nil
}

// reanalyzeOpen analyses every open document again, e.g. after the
// declarations of another file changed.
func (s *Server) reanalyzeOpen(ctx context.Context) {
	for _, doc := range s.documentManager.Documents() {
		if err := s.analyzeDocument(ctx, doc); err != nil {
			s.logger.Warn("Error analysing document", "uri", doc.URI, "error", err)
		}
	}
}

// filesChanged runs after the file scanner indexed or removed files.
func (s *Server) filesChanged(ctx context.Context, changed []string) {
	p := s.currentProject()
	if p == nil || s.indexing.Load() {
		return
	}

	open := map[string]bool{}
	for _, doc := range s.documentManager.Documents() {
		open[doc.Path] = true
	}
	var existing []string
	for _, path := range changed {
		if open[path] {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			// Clear what was published for deleted files.
			if err := s.publish(ctx, &TextDocument{URI: pathToURI(path), Path: path}, nil); err != nil {
				s.logger.Warn("Error clearing diagnostics", "path", path, "error", err)
			}
			continue
		}
		existing = append(existing, path)
	}

	results, err := p.AnalyzeFiles(ctx, existing)
	if err != nil {
		s.logger.Warn("Error analysing changed files", "error", err)
	}
	for _, r := range results {
		if err := s.publishResult(ctx, r); err != nil {
			s.logger.Warn("Error publishing diagnostics", "path", r.Path, "error", err)
		}
	}
	s.reanalyzeOpen(ctx)
}

// CloseAll stops the watcher and closes the project cache.
func (s *Server) CloseAll() error {
	s.projectMu.Lock()
	defer s.projectMu.Unlock()

	if s.project == nil {
		return nil
	}
	err := s.project.Close()
	s.project = nil
	return err
}

func (s *Server) Start(in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewBufferedStream(rwc{in, out}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(s.handle))
	s.conn = conn

	<-conn.DisconnectNotify()
	return s.CloseAll()
}

// rwc combines a reader and writer into a single ReadWriteCloser
type rwc struct {
	io.Reader
	io.Writer
}

// Close implements io.Closer
func (rwc) Close() error {
	return nil
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
	}
	return nil
}

// handle processes incoming JSON-RPC requests and notifications
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method == "exit" {
		s.logger.Info("Received exit notification, exiting")
		if err := conn.Close(); err != nil {
			s.logger.Warn("Error closing connection", "error", err)
		}
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.initialize(ctx, &params)

	case "initialized":
		go func() {
			ctx := context.Background()
			if err := s.indexAll(ctx, false); err != nil {
				s.logger.Warn("Error indexing", "error", err)
			}
			if p := s.currentProject(); p != nil {
				if err := p.Scanner.StartWatcher(); err != nil {
					s.logger.Warn("Error starting file watcher", "error", err)
				}
			}
		}()
		return nil, nil

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		doc := s.documentManager.UpdateDocument(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
		return nil, s.analyzeOpened(ctx, doc)

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		doc := s.documentManager.UpdateDocument(params.TextDocument.URI, text, params.TextDocument.Version)
		return nil, s.analyzeOpened(ctx, doc)

	case "textDocument/didSave":
		var params protocol.DidSaveTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if p := s.currentProject(); p != nil {
			path := uriToPath(params.TextDocument.URI)
			if err := p.Scanner.IndexFiles(ctx, []string{path}); err != nil {
				s.logger.Warn("Error indexing saved file", "path", path, "error", err)
			}
		}
		return nil, nil

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.documentManager.CloseDocument(params.TextDocument.URI)
		return nil, nil

	case "textDocument/hover":
		var params protocol.HoverParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.hover(ctx, &params)

	case "textDocument/codeAction":
		var params protocol.CodeActionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.codeActions(ctx, &params), nil

	case "phpflow/forceReindex":
		go func() {
			if err := s.indexAll(context.Background(), true); err != nil {
				s.logger.Warn("Error force reindexing", "error", err)
			}
		}()
		return map[string]interface{}{
			"message": "Force reindexing started",
		}, nil

	case "shutdown":
		if err := s.CloseAll(); err != nil {
			s.logger.Warn("Error closing project", "error", err)
		}
		s.logger.Info("Received shutdown request, waiting for exit notification")
		return nil, nil

	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.watchedFilesChanged(ctx, params.Changes)

	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "Method not implemented: " + req.Method}
	}
}

// analyzeOpened analyses doc unless the project is still being opened.
func (s *Server) analyzeOpened(ctx context.Context, doc *TextDocument) error {
	if s.currentProject() == nil {
		return nil
	}
	return s.analyzeDocument(ctx, doc)
}

func (s *Server) watchedFilesChanged(ctx context.Context, changes []protocol.FileEvent) error {
	p := s.currentProject()
	if p == nil {
		return nil
	}

	var indexed, removed []string
	for _, change := range changes {
		path := uriToPath(change.URI)
		switch protocol.FileChangeType(change.Type) {
		case protocol.FileCreated, protocol.FileChanged:
			indexed = append(indexed, path)
		case protocol.FileDeleted:
			removed = append(removed, path)
		}
	}

	if len(indexed) > 0 {
		if err := p.Scanner.IndexFiles(ctx, indexed); err != nil {
			s.logger.Warn("Error indexing changed files", "error", err)
		}
	}
	if len(removed) > 0 {
		if err := p.Scanner.RemoveFiles(ctx, removed); err != nil {
			s.logger.Warn("Error removing files", "error", err)
		}
	}
	return nil
}

// initialize handles the LSP initialize request
func (s *Server) initialize(ctx context.Context, params *protocol.InitializeParams) (interface{}, error) {
	s.extractRootPath(params)

	p, err := s.open(s.rootPath)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: fmt.Sprintf("failed to open project: %v", err)}
	}
	p.Scanner.SetOnUpdate(func(changed []string) {
		s.filesChanged(context.Background(), slices.Clone(changed))
	})

	s.projectMu.Lock()
	s.project = p
	s.projectMu.Unlock()
	s.logger.Info("Opened project", "root", s.rootPath)

	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    1, // Full sync
				"save":      map[string]interface{}{"includeText": false},
			},
			"hoverProvider": true,
			"codeActionProvider": map[string]interface{}{
				"codeActionKinds": []protocol.CodeActionKind{protocol.CodeActionQuickFix},
			},
		},
		"serverInfo": map[string]interface{}{
			"name": "phpflow",
		},
	}, nil
}

// extractRootPath extracts the root path from the initialize params
func (s *Server) extractRootPath(params *protocol.InitializeParams) {
	if params.RootPath != "" {
		s.rootPath = params.RootPath
		return
	}

	if params.RootURI != "" {
		s.rootPath = uriToPath(params.RootURI)
		return
	}

	if len(params.WorkspaceFolders) > 0 {
		s.rootPath = uriToPath(params.WorkspaceFolders[0].URI)
		return
	}

	s.rootPath, _ = os.Getwd()
}

func (s *Server) DocumentManager() *DocumentManager {
	return s.documentManager
}
