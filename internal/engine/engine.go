// Package engine orchestrates a set of named indices, each backed by its own
// bbolt store and indexing Pipeline, plus the background job manager used
// for long-running settings updates and reindexing. It implements the
// services.IndexManager family of interfaces.
package engine

import (
	"sync"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/internal/jobs"
	"github.com/gcbaptista/faceted-index/model"
	"github.com/gcbaptista/faceted-index/services"
)

// maxConcurrentReindexJobs bounds how many reindex/settings-update jobs run
// at once across all indices.
const maxConcurrentReindexJobs = 2

// Engine manages multiple indices. It implements services.IndexManager,
// services.IndexManagerWithReindex, services.IndexManagerWithAsyncReindex
// and services.JobManager.
type Engine struct {
	mu         sync.RWMutex
	indexes    map[string]*IndexInstance
	dataDir    string
	jobManager *jobs.Manager
}

// NewEngine creates an orchestrator rooted at dataDir and loads any indices
// already persisted there.
func NewEngine(dataDir string) *Engine {
	eng := &Engine{
		indexes:    make(map[string]*IndexInstance),
		dataDir:    dataDir,
		jobManager: jobs.NewManager(maxConcurrentReindexJobs),
	}
	eng.jobManager.Start()
	eng.loadIndexesFromDisk()
	return eng
}

// GetIndex retrieves an index accessor by name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves a copy of the settings for an index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return config.IndexSettings{}, errors.NewIndexNotFoundError(name)
	}
	return instance.Settings(), nil
}

// ListIndexes returns the names of all currently loaded indices.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	return names
}

// GetJob returns job information by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns jobs for an index, optionally filtered by status.
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// GetJobMetrics returns current job performance metrics.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate.
func (e *Engine) GetJobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// GetCurrentWorkload returns the number of currently active jobs.
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}
