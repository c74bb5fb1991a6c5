// Package corpus maintains the in-memory document collection behind the search server.
package corpus

import (
	"sync"

	"github.com/hyperjump/terasu/internal/models"
)

// Store is an in-memory document store keyed by document ID.
// All methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]models.Document)}
}

// Put stores the document, replacing any previous version with the same ID.
func (s *Store) Put(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Get returns the document with the given ID.
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Remove deletes the document with the given ID and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	return ok
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
