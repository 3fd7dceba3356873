package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/model"
)

// CreateIndexAsync creates a new index asynchronously.
func (e *Engine) CreateIndexAsync(settings config.IndexSettings) (string, error) {
	if settings.Name == "" {
		return "", fmt.Errorf("index name cannot be empty")
	}

	e.mu.RLock()
	if _, exists := e.indexes[settings.Name]; exists {
		e.mu.RUnlock()
		return "", errors.NewIndexAlreadyExistsError(settings.Name)
	}
	e.mu.RUnlock()

	jobID := e.jobManager.CreateJob(model.JobTypeCreateIndex, settings.Name, map[string]string{
		"operation": "create_index",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeCreateIndexJob(ctx, settings, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start create index job: %w", err)
	}

	return jobID, nil
}

// executeCreateIndexJob executes the create index job.
func (e *Engine) executeCreateIndexJob(_ context.Context, settings config.IndexSettings, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

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
	log.Printf("Index '%s' created and persisted asynchronously.", settings.Name)
	return nil
}

// DeleteIndexAsync deletes an index asynchronously.
func (e *Engine) DeleteIndexAsync(name string) (string, error) {
	e.mu.RLock()
	if _, exists := e.indexes[name]; !exists {
		e.mu.RUnlock()
		return "", errors.NewIndexNotFoundError(name)
	}
	e.mu.RUnlock()

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteIndex, name, map[string]string{
		"operation": "delete_index",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeDeleteIndexJob(ctx, name, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete index job: %w", err)
	}

	return jobID, nil
}

// executeDeleteIndexJob executes the delete index job.
func (e *Engine) executeDeleteIndexJob(_ context.Context, name string, _ string) error {
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

	log.Printf("Index '%s' deleted successfully (async).", name)
	return nil
}

// AddDocumentsAsync adds documents to an index asynchronously.
func (e *Engine) AddDocumentsAsync(indexName string, docs []model.Document) (string, error) {
	e.mu.RLock()
	instance, exists := e.indexes[indexName]
	e.mu.RUnlock()
	if !exists {
		return "", errors.NewIndexNotFoundError(indexName)
	}
	_ = instance

	jobID := e.jobManager.CreateJob(model.JobTypeAddDocuments, indexName, map[string]string{
		"operation":      "add_documents",
		"document_count": fmt.Sprintf("%d", len(docs)),
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeAddDocumentsJob(ctx, indexName, docs, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start add documents job: %w", err)
	}

	return jobID, nil
}

// executeAddDocumentsJob executes the add documents job.
func (e *Engine) executeAddDocumentsJob(ctx context.Context, indexName string, docs []model.Document, jobID string) error {
	e.mu.RLock()
	instance, exists := e.indexes[indexName]
	e.mu.RUnlock()
	if !exists {
		return errors.NewIndexNotFoundError(indexName)
	}

	e.jobManager.UpdateJobProgress(jobID, 0, len(docs)+1, "Starting document addition")

	const batchSize = 100
	for i := 0; i < len(docs); i += batchSize {
		select {
		case <-ctx.Done():
			return fmt.Errorf("document addition cancelled")
		default:
		}

		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := instance.AddDocuments(docs[i:end]); err != nil {
			return fmt.Errorf("failed to add document batch %d-%d: %w", i, end-1, err)
		}
		e.jobManager.UpdateJobProgress(jobID, end, len(docs)+1, fmt.Sprintf("Added %d/%d documents", end, len(docs)))
	}

	e.jobManager.UpdateJobProgress(jobID, len(docs)+1, len(docs)+1, "Document addition completed")
	log.Printf("Added %d documents to index '%s' (async).", len(docs), indexName)
	return nil
}

// RenameIndexAsync renames an index asynchronously.
func (e *Engine) RenameIndexAsync(oldName, newName string) (string, error) {
	if oldName == newName {
		return "", errors.NewSameNameError(oldName)
	}

	e.mu.RLock()
	if _, exists := e.indexes[oldName]; !exists {
		e.mu.RUnlock()
		return "", errors.NewIndexNotFoundError(oldName)
	}
	if _, exists := e.indexes[newName]; exists {
		e.mu.RUnlock()
		return "", errors.NewIndexAlreadyExistsError(newName)
	}
	e.mu.RUnlock()

	jobID := e.jobManager.CreateJob(model.JobTypeRenameIndex, oldName, map[string]string{
		"operation": "rename_index",
		"old_name":  oldName,
		"new_name":  newName,
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeRenameIndexJob(ctx, oldName, newName, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start rename index job: %w", err)
	}

	return jobID, nil
}

// executeRenameIndexJob executes the rename index job.
func (e *Engine) executeRenameIndexJob(_ context.Context, oldName, newName string, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

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

	log.Printf("Index renamed from '%s' to '%s' successfully (async).", oldName, newName)
	return nil
}

// DeleteAllDocumentsAsync deletes all documents from an index asynchronously.
func (e *Engine) DeleteAllDocumentsAsync(indexName string) (string, error) {
	e.mu.RLock()
	if _, exists := e.indexes[indexName]; !exists {
		e.mu.RUnlock()
		return "", errors.NewIndexNotFoundError(indexName)
	}
	e.mu.RUnlock()

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteAllDocs, indexName, map[string]string{
		"operation": "delete_all_documents",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeDeleteAllDocumentsJob(ctx, indexName, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete all documents job: %w", err)
	}

	return jobID, nil
}

// executeDeleteAllDocumentsJob executes the delete all documents job.
func (e *Engine) executeDeleteAllDocumentsJob(_ context.Context, indexName string, _ string) error {
	e.mu.RLock()
	instance, exists := e.indexes[indexName]
	e.mu.RUnlock()
	if !exists {
		return errors.NewIndexNotFoundError(indexName)
	}

	if err := instance.DeleteAllDocuments(); err != nil {
		return fmt.Errorf("failed to delete all documents from index '%s': %w", indexName, err)
	}

	log.Printf("Deleted all documents from index '%s' (async).", indexName)
	return nil
}

// DeleteDocumentAsync deletes a specific document from an index asynchronously.
func (e *Engine) DeleteDocumentAsync(indexName, documentID string) (string, error) {
	e.mu.RLock()
	if _, exists := e.indexes[indexName]; !exists {
		e.mu.RUnlock()
		return "", errors.NewIndexNotFoundError(indexName)
	}
	e.mu.RUnlock()

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteDocument, indexName, map[string]string{
		"operation":   "delete_document",
		"document_id": documentID,
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeDeleteDocumentJob(ctx, indexName, documentID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete document job: %w", err)
	}

	return jobID, nil
}

// executeDeleteDocumentJob executes the delete document job.
func (e *Engine) executeDeleteDocumentJob(_ context.Context, indexName, documentID string) error {
	e.mu.RLock()
	instance, exists := e.indexes[indexName]
	e.mu.RUnlock()
	if !exists {
		return errors.NewIndexNotFoundError(indexName)
	}

	if err := instance.DeleteDocument(documentID); err != nil {
		return fmt.Errorf("failed to delete document '%s' from index '%s': %w", documentID, indexName, err)
	}

	log.Printf("Deleted document '%s' from index '%s' (async).", documentID, indexName)
	return nil
}
