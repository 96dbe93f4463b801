// Package server exposes the index over JSON-RPC 2.0 on stdio.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopware/phpsymbols/internal/symbol"
	"github.com/shopware/phpsymbols/internal/typestring"
	"github.com/shopware/phpsymbols/internal/workspace"
	"github.com/sourcegraph/jsonrpc2"
)

// DefaultMatchLimit caps phpsymbols/match results when no limit is given.
const DefaultMatchLimit = 100

// Server answers index queries for one workspace
type Server struct {
	ws    *workspace.Workspace
	watch bool

	// indexMu serializes indexing runs and shutdown
	indexMu  sync.Mutex
	restored bool
	watching bool
	closed   bool
}

// NewServer creates a server for ws. With watch set, files changed on disk
// are reindexed after the first indexing run.
func NewServer(ws *workspace.Workspace, watch bool) *Server {
	return &Server{ws: ws, watch: watch}
}

// Start serves requests read from in until the connection closes.
func (s *Server) Start(in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewBufferedStream(rwc{in, out}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(s.handle))

	// Wait for the connection to close
	<-conn.DisconnectNotify()
	return nil
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

func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: err.Error()}
	}
	return nil
}

func invalidParams(message string) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: message}
}

// handle processes incoming JSON-RPC requests and notifications
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	// Handle exit notification after shutdown
	if req.Method == "exit" {
		log.Println("Received exit notification, exiting")
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection: %v", err)
		}
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		var params InitializeParams
		if req.Params != nil {
			if err := decode(req, &params); err != nil {
				return nil, err
			}
		}
		return s.initialize(), nil

	case "initialized":
		go func() {
			if err := s.indexAll(ctx, conn); err != nil {
				log.Printf("Error indexing: %v", err)
			}
		}()
		return nil, nil

	case "phpsymbols/reindex":
		go func() {
			if err := s.indexAll(ctx, conn); err != nil {
				log.Printf("Error reindexing: %v", err)
			}
		}()
		return map[string]any{"message": "Reindexing started"}, nil

	case "textDocument/didOpen":
		var params DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.ws.OpenDocument(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
		return nil, nil

	case "textDocument/didChange":
		var params DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) > 0 {
			// full sync: the last change carries the whole text
			text := params.ContentChanges[len(params.ContentChanges)-1].Text
			s.ws.EditDocument(params.TextDocument.URI, text, params.TextDocument.Version)
		}
		return nil, nil

	case "textDocument/didClose":
		var params DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.ws.CloseDocument(ctx, params.TextDocument.URI)
		return nil, nil

	case "workspace/didChangeWatchedFiles":
		var params DidChangeWatchedFilesParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.changeWatchedFiles(ctx, &params)
		return nil, nil

	case "phpsymbols/find":
		var params FindParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.find(&params)

	case "phpsymbols/match":
		var params MatchParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.match(&params)

	case "phpsymbols/members":
		var params MembersParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.members(&params)

	case "phpsymbols/references":
		var params ReferencesParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.references(ctx, &params)

	case "phpsymbols/baseMember":
		var params BaseMemberParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.baseMember(&params)

	case "phpsymbols/referenceAt":
		var params ReferenceAtParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.referenceAt(ctx, &params), nil

	case "shutdown":
		if err := s.shutdown(ctx); err != nil {
			log.Printf("Error closing workspace: %v", err)
		}

		log.Println("Received shutdown request, waiting for exit notification")
		return nil, nil

	default:
		// Check if this is a notification (no ID)
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "Method not implemented: " + req.Method}
	}
}

// initialize handles the initialize request
func (s *Server) initialize() any {
	return map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync": map[string]any{
				"openClose": true,
				"change":    1, // Full sync
			},
		},
		"serverInfo": map[string]any{
			"name": "phpsymbols",
		},
	}
}

// indexAll restores the index from the cache on the first run, then
// brings it up to date with the files on disk.
func (s *Server) indexAll(ctx context.Context, conn *jsonrpc2.Conn) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.closed {
		return nil
	}

	startTime := time.Now()
	notify(ctx, conn, "phpsymbols/indexingStarted", map[string]any{
		"message": "Indexing started",
	})

	if !s.restored {
		if _, err := s.ws.Restore(ctx); err != nil {
			log.Printf("Error restoring index from cache: %v", err)
		}
		s.restored = true
	}

	stats, err := s.ws.IndexAll(ctx)
	if err != nil {
		return err
	}

	if s.watch && !s.watching {
		if err := s.ws.StartWatcher(ctx); err != nil {
			log.Printf("Error starting file watcher: %v", err)
		} else {
			s.watching = true
		}
	}

	notify(ctx, conn, "phpsymbols/indexingCompleted", map[string]any{
		"message":       "Indexing completed",
		"indexed":       stats.Indexed,
		"unchanged":     stats.Unchanged,
		"removed":       stats.Removed,
		"timeInSeconds": time.Since(startTime).Seconds(),
	})

	return nil
}

func notify(ctx context.Context, conn *jsonrpc2.Conn, method string, params any) {
	if conn == nil {
		return
	}
	if err := conn.Notify(ctx, method, params); err != nil {
		log.Printf("Error sending %s notification: %v", method, err)
	}
}

func (s *Server) shutdown(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.ws.Close(ctx)
}

func (s *Server) changeWatchedFiles(ctx context.Context, params *DidChangeWatchedFilesParams) {
	var changed, deleted []string
	for _, change := range params.Changes {
		if !strings.HasSuffix(strings.ToLower(change.URI), ".php") {
			continue
		}
		path := workspace.URIToPath(change.URI)
		switch change.Type {
		case FileCreated, FileChanged:
			changed = append(changed, path)
		case FileDeleted:
			deleted = append(deleted, path)
		}
	}

	if len(changed) > 0 {
		if _, err := s.ws.IndexFiles(ctx, changed); err != nil {
			log.Printf("Error indexing changed files: %v", err)
		}
	}
	if len(deleted) > 0 {
		s.ws.RemoveFiles(ctx, deleted)
	}
}

func parseKinds(names []string) ([]symbol.Kind, error) {
	kinds := make([]symbol.Kind, 0, len(names))
	for _, name := range names {
		kind := symbol.ParseKind(name)
		if kind == symbol.KindNone {
			return nil, invalidParams("unknown kind: " + name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func kindPredicate(names []string) (symbol.Predicate, error) {
	kinds, err := parseKinds(names)
	if err != nil || len(kinds) == 0 {
		return nil, err
	}
	return symbol.KindPredicate(kinds...), nil
}

func (s *Server) symbolInfo(sym *symbol.Symbol) SymbolInfo {
	info := SymbolInfo{
		Kind:  sym.Kind.String(),
		Name:  sym.Name,
		Scope: sym.Scope,
		Type:  sym.Type,
	}
	if sym.Modifiers != 0 {
		info.Modifiers = sym.Modifiers.String()
	}
	if loc, ok := s.ws.Symbols().SymbolLocation(sym); ok {
		info.Location = &loc
	}
	return info
}

func (s *Server) symbolInfos(symbols []*symbol.Symbol) []SymbolInfo {
	infos := make([]SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		infos = append(infos, s.symbolInfo(sym))
	}
	return infos
}

func (s *Server) referenceInfo(ref *symbol.Reference) ReferenceInfo {
	info := ReferenceInfo{
		Kind:  ref.Kind.String(),
		Name:  ref.Name,
		Scope: ref.Scope,
		Type:  ref.Type,
	}
	if loc, ok := s.ws.Symbols().Location(&ref.Location); ok {
		info.Location = loc
	}
	return info
}

func (s *Server) find(params *FindParams) ([]SymbolInfo, error) {
	predicate, err := kindPredicate(params.Kinds)
	if err != nil {
		return nil, err
	}

	s.ws.FlushAll()
	return s.symbolInfos(s.ws.Symbols().Find(params.Name, predicate)), nil
}

func (s *Server) match(params *MatchParams) ([]SymbolInfo, error) {
	predicate, err := kindPredicate(params.Kinds)
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	s.ws.FlushAll()

	var matched []*symbol.Symbol
	for sym := range s.ws.Symbols().MatchIterator(params.Text, predicate) {
		matched = append(matched, sym)
		if len(matched) == limit {
			break
		}
	}
	return s.symbolInfos(matched), nil
}

func (s *Server) members(params *MembersParams) ([]SymbolInfo, error) {
	predicate, err := kindPredicate(params.Kinds)
	if err != nil {
		return nil, err
	}

	s.ws.FlushAll()
	members := s.ws.Symbols().FindMembers(params.Scope, symbol.ParseMergeStrategy(params.Strategy), predicate)
	return s.symbolInfos(members), nil
}

func (s *Server) references(ctx context.Context, params *ReferencesParams) ([]ReferenceInfo, error) {
	kinds, err := parseKinds(params.Kinds)
	if err != nil {
		return nil, err
	}
	scope := strings.TrimPrefix(params.Scope, "\\")

	s.ws.FlushAll()
	refs := s.ws.References().Find(ctx, params.Name, func(ref *symbol.Reference) bool {
		if len(kinds) > 0 && !slices.Contains(kinds, ref.Kind) {
			return false
		}
		return scope == "" || inScope(ref.Scope, scope)
	})

	infos := make([]ReferenceInfo, 0, len(refs))
	for _, ref := range refs {
		infos = append(infos, s.referenceInfo(ref))
	}
	return infos, nil
}

// inScope reports whether one of the class names of a reference scope is
// scope.
func inScope(refScope, scope string) bool {
	for _, name := range typestring.AtomicClassArray(refScope) {
		if strings.EqualFold(strings.TrimPrefix(name, "\\"), scope) {
			return true
		}
	}
	return false
}

func (s *Server) baseMember(params *BaseMemberParams) (*SymbolInfo, error) {
	kind := symbol.ParseKind(params.Kind)
	if !kind.IsMember() {
		return nil, invalidParams("not a member kind: " + params.Kind)
	}

	s.ws.FlushAll()
	members := s.ws.Symbols().FindMembers(params.Scope, symbol.MergeOverride, func(sym *symbol.Symbol) bool {
		return sym.Kind == kind && kind.NamesEqual(sym.Name, params.Name)
	})
	if len(members) == 0 {
		return nil, nil
	}

	info := s.symbolInfo(s.ws.Symbols().FindBaseMember(members[0]))
	return &info, nil
}

func (s *Server) referenceAt(ctx context.Context, params *ReferenceAtParams) *ReferenceAtResult {
	uri := params.TextDocument.URI
	s.ws.FlushDocument(uri)

	table := s.ws.References().Table(ctx, uri)
	if table == nil {
		return nil
	}

	ref := table.ReferenceAt(params.Position)
	if ref == nil {
		return nil
	}

	return &ReferenceAtResult{
		Reference: s.referenceInfo(ref),
		Type:      s.ws.Symbols().ReferenceToTypeString(ref),
		Symbols:   s.symbolInfos(s.ws.Symbols().FindSymbolsByReference(ref, symbol.MergeOverride)),
	}
}
