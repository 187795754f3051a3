package lsp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/walteh/qlikls/pkg/autocomplete"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

// Document represents an open script with its completion state.
type Document struct {
	URI     string
	Version int

	mu      sync.Mutex
	content string
	tokens  *tokenizer.Document

	// Provider owns the completion state of this document and is disposed on
	// didClose.
	Provider *autocomplete.Provider
	// Handle identifies the provider's entry in the server registry.
	Handle uuid.UUID
}

// Update replaces the content and returns how many lines were re-tokenized.
func (d *Document) Update(version int, content string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Version = version
	d.content = content
	return d.tokens.SetText(content)
}

// Snapshot returns the current text together with its tokens. The tokens
// must be treated as read-only.
func (d *Document) Snapshot() (string, *tokenizer.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// a private copy keeps later Updates from changing what the caller reads
	return d.content, d.tokens.Clone()
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

func (m *DocumentManager) Get(uri string) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(uri))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(normalizeURI(doc.URI), doc)
}

// Delete removes the document and returns it, if it was open.
func (m *DocumentManager) Delete(uri string) (*Document, bool) {
	content, ok := m.store.LoadAndDelete(normalizeURI(uri))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

// Range calls fn for every open document until fn returns false.
func (m *DocumentManager) Range(fn func(doc *Document) bool) {
	m.store.Range(func(_, value any) bool {
		return fn(value.(*Document))
	})
}
