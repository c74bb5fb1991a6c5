package index

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/terasu/internal/models"
)

// MemIndex implements Index using an in-memory Bleve index.
type MemIndex struct {
	index bleve.Index
}

// indexedDocument is the projection of a document that gets analyzed.
type indexedDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// NewMemIndex creates an empty in-memory index.
// The standard analyzer (lowercase + tokenize, no stemming) is used so a
// query term matches the exact word it was typed as.
func NewMemIndex() (*MemIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create in-memory index: %w", err)
	}
	return &MemIndex{index: index}, nil
}

// Index analyzes and stores the document under id, replacing any previous
// version with the same id.
func (m *MemIndex) Index(ctx context.Context, id string, doc *models.Document) error {
	return m.index.Index(id, indexedDocument{Name: doc.Name, Text: doc.Text})
}

// Search runs a match query over name and text and returns up to limit hits
// in descending score order.
func (m *MemIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	request := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	request.Size = limit

	result, err := m.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, len(result.Hits))
	for i, hit := range result.Hits {
		hits[i] = Hit{ID: hit.ID, Score: hit.Score}
	}
	return hits, nil
}

// Delete removes the document with the given id. Deleting an unknown id is
// not an error.
func (m *MemIndex) Delete(ctx context.Context, id string) error {
	return m.index.Delete(id)
}

// DocCount returns the total number of documents in the index.
func (m *MemIndex) DocCount() (uint64, error) {
	return m.index.DocCount()
}

// Close releases the index.
func (m *MemIndex) Close() error {
	return m.index.Close()
}
