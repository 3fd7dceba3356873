package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/model"
)

// UpdateIndexSettings updates an index's settings without reindexing.
// Existing postings are left as-is.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	if newSettings.Name != "" && newSettings.Name != name {
		return fmt.Errorf("cannot change index name from '%s' to '%s' during settings update", name, newSettings.Name)
	}
	newSettings.Name = name

	if err := instance.ReplacePipeline(newSettings, config.DefaultIndexerConfig(), nil); err != nil {
		return fmt.Errorf("failed to apply new settings for '%s': %w", name, err)
	}

	return e.persistSettingsUnsafe(name, newSettings)
}

// UpdateIndexSettingsWithReindex updates settings and, if the change affects
// what gets indexed, clears and rebuilds the index from its existing
// documents.
func (e *Engine) UpdateIndexSettingsWithReindex(name string, newSettings config.IndexSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	if newSettings.Name != "" && newSettings.Name != name {
		return fmt.Errorf("cannot change index name from '%s' to '%s' during settings update", name, newSettings.Name)
	}
	newSettings.Name = name

	oldSettings := instance.Settings()
	if !e.requiresFullReindexing(oldSettings, newSettings) {
		if err := instance.ReplacePipeline(newSettings, config.DefaultIndexerConfig(), nil); err != nil {
			return fmt.Errorf("failed to apply new settings for '%s': %w", name, err)
		}
		return e.persistSettingsUnsafe(name, newSettings)
	}

	return e.reindexUnsafe(name, instance, newSettings, nil)
}

// reindexUnsafe extracts existing documents, clears the index, applies
// newSettings, and re-adds the documents. Caller must hold e.mu.
func (e *Engine) reindexUnsafe(name string, instance *IndexInstance, newSettings config.IndexSettings, progress func(current, total int, message string)) error {
	docs, err := instance.AllDocuments()
	if err != nil {
		return fmt.Errorf("failed to extract documents for reindexing '%s': %w", name, err)
	}
	log.Printf("Extracted %d documents for reindexing from index '%s'", len(docs), name)

	if err := instance.DeleteAllDocuments(); err != nil {
		return fmt.Errorf("failed to clear index '%s' for reindexing: %w", name, err)
	}

	if err := instance.ReplacePipeline(newSettings, config.DefaultIndexerConfig(), nil); err != nil {
		return fmt.Errorf("failed to apply new settings for '%s': %w", name, err)
	}

	total := len(docs) + 1
	if progress != nil {
		progress(0, total, "Cleared index, reindexing documents")
	}

	const batchSize = 100
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := instance.AddDocuments(docs[i:end]); err != nil {
			return fmt.Errorf("failed to reindex documents for '%s': %w", name, err)
		}
		if progress != nil {
			progress(end, total, fmt.Sprintf("Reindexed %d/%d documents", end, len(docs)))
		}
	}

	if err := e.persistSettingsUnsafe(name, newSettings); err != nil {
		return fmt.Errorf("failed to persist reindexed settings for '%s': %w", name, err)
	}
	if progress != nil {
		progress(total, total, "Reindexing completed")
	}
	log.Printf("Settings for index '%s' updated with reindexing completed and persisted.", name)
	return nil
}

// UpdateIndexSettingsWithAsyncReindex schedules a settings update as a
// background job, reindexing only if the change requires it.
func (e *Engine) UpdateIndexSettingsWithAsyncReindex(name string, newSettings config.IndexSettings) (string, error) {
	e.mu.RLock()
	instance, exists := e.indexes[name]
	if !exists {
		e.mu.RUnlock()
		return "", errors.NewIndexNotFoundError(name)
	}
	oldSettings := instance.Settings()
	e.mu.RUnlock()

	newSettings.Name = name
	requiresReindex := e.requiresFullReindexing(oldSettings, newSettings)

	if requiresReindex {
		jobID := e.jobManager.CreateJob(model.JobTypeReindex, name, map[string]string{
			"operation": "update_settings_with_reindex",
			"reason":    "searchable or filterable fields changed",
		})
		err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
			return e.executeReindexJob(ctx, name, newSettings, jobID)
		})
		if err != nil {
			return "", fmt.Errorf("failed to start async reindexing job: %w", err)
		}
		log.Printf("Started async full reindexing job %s for index '%s'", jobID, name)
		return jobID, nil
	}

	jobID := e.jobManager.CreateJob(model.JobTypeUpdateSettings, name, map[string]string{
		"operation": "update_settings_search_time",
		"reason":    "no reindexing needed",
	})
	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeSettingsUpdateJob(ctx, name, newSettings, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start settings update job: %w", err)
	}
	log.Printf("Started settings update job %s for index '%s'", jobID, name)
	return jobID, nil
}

// requiresFullReindexing reports whether a settings change alters which
// fields get tokenized or faceted, requiring the postings to be rebuilt.
// FieldsWithoutPrefixSearch changes do not: prefix handling is global
// (WordsPrefixesFst), not per-attribute.
func (e *Engine) requiresFullReindexing(oldSettings, newSettings config.IndexSettings) bool {
	if !slicesEqual(oldSettings.SearchableFields, newSettings.SearchableFields) {
		return true
	}
	if !slicesEqual(oldSettings.FilterableFields, newSettings.FilterableFields) {
		return true
	}
	return false
}

// executeSettingsUpdateJob applies a settings change that needs no
// reindexing, as a background job.
func (e *Engine) executeSettingsUpdateJob(_ context.Context, name string, newSettings config.IndexSettings, jobID string) error {
	e.jobManager.UpdateJobProgress(jobID, 0, 2, "Applying settings")

	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	if err := instance.ReplacePipeline(newSettings, config.DefaultIndexerConfig(), nil); err != nil {
		return fmt.Errorf("failed to apply new settings for '%s': %w", name, err)
	}

	e.jobManager.UpdateJobProgress(jobID, 1, 2, "Persisting settings")
	if err := e.persistSettingsUnsafe(name, newSettings); err != nil {
		return fmt.Errorf("failed to persist updated settings for '%s': %w", name, err)
	}
	e.jobManager.UpdateJobProgress(jobID, 2, 2, "Settings update completed")
	log.Printf("Settings update completed for index '%s' (job %s), no reindexing needed", name, jobID)
	return nil
}

// executeReindexJob performs a full reindex as a background job.
func (e *Engine) executeReindexJob(ctx context.Context, name string, newSettings config.IndexSettings, jobID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	progress := func(current, total int, message string) {
		e.jobManager.UpdateJobProgress(jobID, current, total, message)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("reindexing cancelled")
	default:
	}

	return e.reindexUnsafe(name, instance, newSettings, progress)
}

// slicesEqual reports whether two string slices hold the same elements in
// the same order.
func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
