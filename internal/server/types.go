package server

import (
	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
)

// InitializeParams represents the parameters for the 'initialize' request
type InitializeParams struct {
	RootPath         string            `json:"rootPath,omitempty"`
	RootURI          string            `json:"rootUri,omitempty"`
	WorkspaceFolders []WorkspaceFolder `json:"workspaceFolders,omitempty"`
}

// WorkspaceFolder represents a workspace folder
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type TextDocumentItem struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int    `json:"version"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// FileChangeType mirrors the editor protocol's file event kinds.
type FileChangeType int

const (
	FileCreated FileChangeType = 1
	FileChanged FileChangeType = 2
	FileDeleted FileChangeType = 3
)

type FileEvent struct {
	URI  string         `json:"uri"`
	Type FileChangeType `json:"type"`
}

type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}

// FindParams looks up symbols by exact fully qualified name.
type FindParams struct {
	Name  string   `json:"name"`
	Kinds []string `json:"kinds,omitempty"`
}

// MatchParams looks up symbols by a fuzzy fragment of their name.
type MatchParams struct {
	Text  string   `json:"text"`
	Kinds []string `json:"kinds,omitempty"`
	Limit int      `json:"limit,omitempty"`
}

// MembersParams lists the members of a class-like including inherited ones.
type MembersParams struct {
	Scope    string   `json:"scope"`
	Strategy string   `json:"strategy,omitempty"`
	Kinds    []string `json:"kinds,omitempty"`
}

// ReferencesParams finds every reference to a name. Scope restricts member
// references to those accessed on the given type.
type ReferencesParams struct {
	Name  string   `json:"name"`
	Kinds []string `json:"kinds,omitempty"`
	Scope string   `json:"scope,omitempty"`
}

// BaseMemberParams names a member by its class-like, kind and name.
type BaseMemberParams struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
}

// ReferenceAtParams addresses a position in a document.
type ReferenceAtParams struct {
	TextDocument TextDocumentIdentifier    `json:"textDocument"`
	Position     treesitterhelper.Position `json:"position"`
}

// SymbolInfo is the wire form of a symbol.
type SymbolInfo struct {
	Kind      string              `json:"kind"`
	Name      string              `json:"name"`
	Scope     string              `json:"scope,omitempty"`
	Type      string              `json:"type,omitempty"`
	Modifiers string              `json:"modifiers,omitempty"`
	Location  *symbol.URILocation `json:"location,omitempty"`
}

// ReferenceInfo is the wire form of a reference.
type ReferenceInfo struct {
	Kind     string             `json:"kind"`
	Name     string             `json:"name"`
	Scope    string             `json:"scope,omitempty"`
	Type     string             `json:"type,omitempty"`
	Location symbol.URILocation `json:"location"`
}

// ReferenceAtResult is the reference under a position together with the
// symbols it resolves to.
type ReferenceAtResult struct {
	Reference ReferenceInfo `json:"reference"`
	Type      string        `json:"type,omitempty"`
	Symbols   []SymbolInfo  `json:"symbols"`
}
