package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/persistence"
	"github.com/gcbaptista/faceted-index/model"
)

const (
	dataDirPerm  = 0755
	settingsFile = "settings.gob"
)

// loadIndexesFromDisk opens every index directory under dataDir, each
// holding a settings.gob and a store.db bbolt file.
func (e *Engine) loadIndexesFromDisk() {
	log.Printf("Loading indexes from disk: %s", e.dataDir)

	if err := os.MkdirAll(e.dataDir, dataDirPerm); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v. Proceeding without persistence for new indexes if loading fails.", e.dataDir, err)
	}

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		log.Printf("Warning: Failed to read data directory %s: %v. No indexes loaded.", e.dataDir, err)
		return
	}

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		indexName := item.Name()
		indexPath := filepath.Join(e.dataDir, indexName)
		log.Printf("Attempting to load index: %s", indexName)

		var settings config.IndexSettings
		settingsPath := filepath.Join(indexPath, settingsFile)
		if err := persistence.LoadGob(settingsPath, &settings); err != nil {
			log.Printf("Warning: Failed to load settings for index %s from %s: %v. Skipping this index.", indexName, settingsPath, err)
			continue
		}

		if settings.Name != indexName {
			log.Printf("Warning: Index name in settings ('%s') does not match directory name ('%s') for path %s. Skipping this index.", settings.Name, indexName, indexPath)
			continue
		}

		instance, err := NewIndexInstance(indexPath, settings, config.DefaultIndexerConfig(), nil)
		if err != nil {
			log.Printf("Error opening index '%s' from %s: %v. Skipping.", indexName, indexPath, err)
			continue
		}

		e.indexes[indexName] = instance
		log.Printf("Successfully loaded index: %s", indexName)
	}
}

// persistSettingsUnsafe writes settings.gob for an index. The bbolt store
// itself is durable transaction-by-transaction and needs no separate save.
// Caller must hold e.mu.
func (e *Engine) persistSettingsUnsafe(name string, settings config.IndexSettings) error {
	indexPath := filepath.Join(e.dataDir, name)
	if err := os.MkdirAll(indexPath, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for index %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(indexPath, settingsFile), settings); err != nil {
		return fmt.Errorf("failed to save settings for index %s: %w", name, err)
	}
	return nil
}

// PersistIndexData is a compatibility no-op: every Pipeline mutation already
// commits durably within its own bbolt transaction. Kept so callers that
// explicitly flush after a batch of writes still have something to call.
func (e *Engine) PersistIndexData(indexName string) error {
	e.mu.RLock()
	_, exists := e.indexes[indexName]
	e.mu.RUnlock()
	if !exists {
		return fmt.Errorf("index named '%s' not found", indexName)
	}
	return nil
}

// extractAllDocumentsUnsafe reads every document currently stored in an
// index, used ahead of a full reindex. Caller must hold e.mu.
func (e *Engine) extractAllDocumentsUnsafe(instance *IndexInstance) ([]model.Document, error) {
	return instance.AllDocuments()
}
