package engine

import (
	"fmt"
	"path/filepath"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/indexing"
	"github.com/gcbaptista/faceted-index/internal/store"
	"github.com/gcbaptista/faceted-index/model"
)

// IndexInstance holds all components for a single index: its bbolt-backed
// store and the Pipeline driving it. It implements services.IndexAccessor.
type IndexInstance struct {
	settings *config.IndexSettings
	db       *store.Store
	pipeline *indexing.Pipeline
}

// storeFileName is the bbolt database file kept inside each index's own
// directory, alongside its settings.gob.
const storeFileName = "store.db"

// NewIndexInstance opens (creating if necessary) the bbolt database at
// indexDir/store.db and builds the indexing Pipeline over it.
func NewIndexInstance(indexDir string, settings config.IndexSettings, cfg config.IndexerConfig, progress indexing.Callback) (*IndexInstance, error) {
	if settings.Name == "" {
		return nil, fmt.Errorf("index name cannot be empty in settings")
	}

	db, err := store.Open(filepath.Join(indexDir, storeFileName))
	if err != nil {
		return nil, fmt.Errorf("opening store for index '%s': %w", settings.Name, err)
	}

	pipeline, err := indexing.Open(db, settings, cfg, progress)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening pipeline for index '%s': %w", settings.Name, err)
	}

	return &IndexInstance{
		settings: &settings,
		db:       db,
		pipeline: pipeline,
	}, nil
}

// AddDocuments delegates to the underlying Pipeline.
func (i *IndexInstance) AddDocuments(docs []model.Document) error {
	return i.pipeline.AddDocuments(docs)
}

// DeleteAllDocuments delegates to the underlying Pipeline.
func (i *IndexInstance) DeleteAllDocuments() error {
	return i.pipeline.DeleteAllDocuments()
}

// DeleteDocument delegates to the underlying Pipeline.
func (i *IndexInstance) DeleteDocument(docID string) error {
	return i.pipeline.DeleteDocument(docID)
}

// Settings returns the configuration settings for this index.
func (i *IndexInstance) Settings() config.IndexSettings {
	return *i.settings
}

// FieldDistribution returns the current per-field document counts.
func (i *IndexInstance) FieldDistribution() map[string]int {
	return i.pipeline.FieldDistribution()
}

// AllDocuments decodes and returns every document currently stored, used by
// settings updates that require a full reindex.
func (i *IndexInstance) AllDocuments() ([]model.Document, error) {
	return i.pipeline.AllDocuments()
}

// PrimaryKey returns the field name used as each document's external id.
func (i *IndexInstance) PrimaryKey() string {
	return i.pipeline.PrimaryKey()
}

// ReplacePipeline swaps in a freshly opened Pipeline (e.g. after a settings
// change cleared and is about to reindex all documents into the same
// store).
func (i *IndexInstance) ReplacePipeline(settings config.IndexSettings, cfg config.IndexerConfig, progress indexing.Callback) error {
	pipeline, err := indexing.Open(i.db, settings, cfg, progress)
	if err != nil {
		return err
	}
	i.settings = &settings
	i.pipeline = pipeline
	return nil
}

// Close releases the index's underlying store handle.
func (i *IndexInstance) Close() error {
	return i.db.Close()
}
