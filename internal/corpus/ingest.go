package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/terasu/internal/extract"
	"github.com/hyperjump/terasu/internal/index"
	"github.com/hyperjump/terasu/internal/models"
)

// Ingestor extracts documents from disk or API input and feeds them into the
// store and the search index.
type Ingestor struct {
	store      *Store
	index      index.Index
	extractor  *extract.Extractor
	extensions []string
	logger     *zap.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output (file ingested, document removed).
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies. extensions
// limits file ingestion to the listed extensions; an empty list means the
// extractor decides what it can handle.
func NewIngestor(store *Store, idx index.Index, extractor *extract.Extractor, extensions []string, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		store:      store,
		index:      idx,
		extractor:  extractor,
		extensions: extensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestDocument stores and indexes a document supplied through the API.
// A fresh ID is generated for it.
func (ing *Ingestor) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	doc := models.Document{
		ID:   uuid.New().String(),
		Name: input.Name,
		Text: input.Text,
	}
	if doc.Name == "" {
		doc.Name = "untitled"
	}
	ing.store.Put(doc)
	if err := ing.index.Index(ctx, doc.ID, &doc); err != nil {
		ing.store.Remove(doc.ID)
		return nil, fmt.Errorf("index document: %w", err)
	}
	ing.logger.Debug("document ingested", zap.String("id", doc.ID), zap.String("name", doc.Name))
	return &doc, nil
}

// IngestFile reads, extracts, and indexes a single file. The document ID is
// derived from the absolute path so re-ingesting updates the same document.
func (ing *Ingestor) IngestFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !ing.extensionAllowed(ext) {
		return fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}

	text, err := ing.extractor.Extract(absPath)
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}

	doc := models.Document{
		ID:   fileDocID(absPath),
		Name: filepath.Base(absPath),
		Text: text,
	}
	ing.store.Put(doc)
	if err := ing.index.Index(ctx, doc.ID, &doc); err != nil {
		return fmt.Errorf("index file: %w", err)
	}
	ing.logger.Debug("file ingested", zap.String("path", absPath), zap.String("id", doc.ID))
	return nil
}

// IngestDirectory walks dir recursively and ingests each regular file with an
// allowed extension. Returns the number of files ingested and the first error
// encountered, if any.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !ing.extensionAllowed(strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if ingestErr := ing.IngestFile(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// Remove deletes the document from the index and the store.
func (ing *Ingestor) Remove(ctx context.Context, id string) error {
	if err := ing.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}
	ing.store.Remove(id)
	ing.logger.Debug("document removed", zap.String("id", id))
	return nil
}

// RemoveByPath deletes the document that was ingested from the given file path.
func (ing *Ingestor) RemoveByPath(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return ing.Remove(ctx, fileDocID(absPath))
}

func (ing *Ingestor) extensionAllowed(ext string) bool {
	if len(ing.extensions) == 0 {
		return ing.extractor.Supported(ext)
	}
	norm := strings.TrimPrefix(ext, ".")
	for _, allowed := range ing.extensions {
		if strings.ToLower(strings.TrimPrefix(allowed, ".")) == norm {
			return true
		}
	}
	return false
}

// fileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID, so re-ingestion updates in place.
func fileDocID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return "file:" + hex.EncodeToString(hash[:])
}
