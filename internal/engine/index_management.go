package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/errors"
)

// CreateIndex creates a new index with the given settings and persists it.
func (e *Engine) CreateIndex(settings config.IndexSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if settings.Name == "" {
		return fmt.Errorf("index name cannot be empty")
	}
	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	indexPath := filepath.Join(e.dataDir, settings.Name)
	if err := os.MkdirAll(indexPath, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for index %s: %w", settings.Name, err)
	}

	instance, err := NewIndexInstance(indexPath, settings, config.DefaultIndexerConfig(), nil)
	if err != nil {
		return fmt.Errorf("failed to create new index instance for '%s': %w", settings.Name, err)
	}

	if err := e.persistSettingsUnsafe(settings.Name, settings); err != nil {
		instance.Close()
		return fmt.Errorf("failed to persist new index '%s': %w", settings.Name, err)
	}

	e.indexes[settings.Name] = instance
	log.Printf("Index '%s' created and persisted.", settings.Name)
	return nil
}

// DeleteIndex deletes an index and its data from disk.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	if err := instance.Close(); err != nil {
		log.Printf("Warning: error closing store for index '%s' before deletion: %v", name, err)
	}
	delete(e.indexes, name)

	indexPath := filepath.Join(e.dataDir, name)
	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to remove index directory %s: %w", indexPath, err)
	}

	log.Printf("Index '%s' deleted successfully.", name)
	return nil
}

// RenameIndex renames an index, moving its directory and reopening its
// store at the new path.
func (e *Engine) RenameIndex(oldName, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if oldName == newName {
		return errors.NewSameNameError(oldName)
	}

	instance, exists := e.indexes[oldName]
	if !exists {
		return errors.NewIndexNotFoundError(oldName)
	}
	if _, exists := e.indexes[newName]; exists {
		return errors.NewIndexAlreadyExistsError(newName)
	}

	oldIndexPath := filepath.Join(e.dataDir, oldName)
	newIndexPath := filepath.Join(e.dataDir, newName)
	if _, err := os.Stat(newIndexPath); err == nil {
		return fmt.Errorf("directory for index '%s' already exists on disk", newName)
	}

	if err := instance.Close(); err != nil {
		return fmt.Errorf("failed to close index '%s' before rename: %w", oldName, err)
	}

	if err := os.Rename(oldIndexPath, newIndexPath); err != nil {
		return fmt.Errorf("failed to rename index directory from '%s' to '%s': %w", oldIndexPath, newIndexPath, err)
	}

	newSettings := instance.Settings()
	newSettings.Name = newName

	reopened, err := NewIndexInstance(newIndexPath, newSettings, config.DefaultIndexerConfig(), nil)
	if err != nil {
		_ = os.Rename(newIndexPath, oldIndexPath)
		return fmt.Errorf("failed to reopen renamed index '%s': %w", newName, err)
	}

	if err := e.persistSettingsUnsafe(newName, newSettings); err != nil {
		reopened.Close()
		_ = os.Rename(newIndexPath, oldIndexPath)
		return fmt.Errorf("failed to save updated settings after rename: %w", err)
	}

	delete(e.indexes, oldName)
	e.indexes[newName] = reopened

	log.Printf("Index renamed from '%s' to '%s' successfully.", oldName, newName)
	return nil
}
