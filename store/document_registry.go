// Package store holds the document registry and the object table of an index.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
	"sync"

	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/model"
)

// DocumentRegistry is the ordered sequence of documentation pages of an index.
// A document's ID is its position in the registry.
type DocumentRegistry struct {
	mu     sync.RWMutex
	docs   []model.DocumentRecord
	byName map[string]uint32 // docName -> ID
}

// NewDocumentRegistry returns an empty registry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{byName: make(map[string]uint32)}
}

// Register appends a document. It fails with a DuplicateDocumentError when
// docName is already registered, leaving the registry unchanged.
func (r *DocumentRegistry) Register(docName, title, filename string) (model.DocumentRecord, error) {
	if strings.TrimSpace(docName) == "" {
		return model.DocumentRecord{}, errors.NewValidationError("doc_name", "document name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.byName[docName]; exists {
		return model.DocumentRecord{}, errors.NewDuplicateDocumentError(docName, r.docs[id].Title, title)
	}

	rec := model.DocumentRecord{
		ID:       uint32(len(r.docs)),
		DocName:  docName,
		Title:    title,
		Filename: filename,
	}
	r.docs = append(r.docs, rec)
	r.byName[docName] = rec.ID
	return rec, nil
}

// Get returns the document registered as docName.
func (r *DocumentRegistry) Get(docName string) (model.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[docName]
	if !ok {
		return model.DocumentRecord{}, errors.NewDocumentNotFoundError(docName)
	}
	return r.docs[id], nil
}

// ByID returns the document at position id.
func (r *DocumentRegistry) ByID(id uint32) (model.DocumentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(id) >= len(r.docs) {
		return model.DocumentRecord{}, false
	}
	return r.docs[id], true
}

// Contains reports whether id refers to a registered document.
func (r *DocumentRegistry) Contains(id uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(id) < len(r.docs)
}

// All returns every document in registration order.
func (r *DocumentRegistry) All() []model.DocumentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]model.DocumentRecord, len(r.docs))
	copy(docs, r.docs)
	return docs
}

// Len returns the number of registered documents.
func (r *DocumentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// gobDocumentRegistryData is a helper struct for Gob encoding/decoding DocumentRegistry data.
// It excludes the mutex and the name lookup, which is rebuilt on decode.
type gobDocumentRegistryData struct {
	Docs []model.DocumentRecord
}

// GobEncode implements the gob.GobEncoder interface for DocumentRegistry.
func (r *DocumentRegistry) GobEncode() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobDocumentRegistryData{Docs: r.docs}); err != nil {
		return nil, fmt.Errorf("failed to gob encode document registry: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for DocumentRegistry.
func (r *DocumentRegistry) GobDecode(data []byte) error {
	decoded := gobDocumentRegistryData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode document registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = decoded.Docs
	r.byName = make(map[string]uint32, len(decoded.Docs))
	for i, doc := range r.docs {
		if doc.ID != uint32(i) {
			return fmt.Errorf("document '%s' stored at position %d with ID %d", doc.DocName, i, doc.ID)
		}
		r.byName[doc.DocName] = doc.ID
	}
	return nil
}
