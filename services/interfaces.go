// Package services defines the interfaces the indexing engine exposes to
// its callers: adding/removing documents, managing index lifecycles, and
// tracking background reindex jobs. Query execution, ranking, and facet
// distribution reporting are out of scope here and live as external
// collaborators against the tables this package's implementations build.
package services

import (
	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/model"
)

// Indexer defines operations for adding data to an index.
type Indexer interface {
	AddDocuments(docs []model.Document) error
	DeleteAllDocuments() error
	DeleteDocument(docID string) error
}

// IndexManager manages the lifecycle of indices.
type IndexManager interface {
	CreateIndex(settings config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error)
	GetIndexSettings(name string) (config.IndexSettings, error)
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	RenameIndex(oldName, newName string) error
	DeleteIndex(name string) error
	ListIndexes() []string
	PersistIndexData(indexName string) error
}

// IndexManagerWithReindex extends IndexManager with reindexing capabilities
// for settings updates that change tokenization or faceting.
type IndexManagerWithReindex interface {
	IndexManager
	UpdateIndexSettingsWithReindex(name string, settings config.IndexSettings) error
}

// IndexManagerWithAsyncReindex extends IndexManager with async reindexing,
// returning a job id the caller can poll via JobManager.
type IndexManagerWithAsyncReindex interface {
	IndexManager
	UpdateIndexSettingsWithAsyncReindex(name string, settings config.IndexSettings) (string, error)
}

// JobManager defines operations for managing background indexing jobs.
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
}

// IndexAccessor is the handle a caller gets back for one open index.
type IndexAccessor interface {
	Indexer
	Settings() config.IndexSettings
	AllDocuments() ([]model.Document, error)
	PrimaryKey() string
}
