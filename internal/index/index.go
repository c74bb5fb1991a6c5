// Package index provides full-text indexing and ranked retrieval for the corpus.
package index

import (
	"context"

	"github.com/hyperjump/terasu/internal/models"
)

// Hit is a single ranked match from the index.
type Hit struct {
	ID    string
	Score float64
}

// Index defines the retrieval operations the search server depends on.
type Index interface {
	Index(ctx context.Context, id string, doc *models.Document) error
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}
