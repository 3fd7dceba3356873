// Package testing provides shared helpers for exercising the indexing
// engine from tests: disposable engines, a canned test index, job polling,
// and async-operation test table runners.
package testing

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/engine"
	"github.com/gcbaptista/faceted-index/model"
	"github.com/gcbaptista/faceted-index/services"
)

// TestDirRegistry tracks test directories for cleanup
type TestDirRegistry struct {
	mu   sync.Mutex
	dirs []string
}

var globalTestDirRegistry = &TestDirRegistry{}

// RegisterTestDir registers a test directory for cleanup
func (r *TestDirRegistry) RegisterTestDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, dir)
}

// CleanupAll removes all registered test directories
func (r *TestDirRegistry) CleanupAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dir := range r.dirs {
		if err := os.RemoveAll(dir); err != nil {
			fmt.Printf("Warning: Failed to remove test directory %s: %v\n", dir, err)
		}
	}
	r.dirs = nil
}

// CreateTestEngine creates a new engine instance for testing with automatic cleanup
func CreateTestEngine(t *testing.T) *engine.Engine {
	testDir := fmt.Sprintf("./test_data_%d", time.Now().UnixNano())
	globalTestDirRegistry.RegisterTestDir(testDir)

	eng := engine.NewEngine(testDir)

	t.Cleanup(func() {
		_ = eng
	})

	return eng
}

// CreateTestIndex creates a test index with default settings.
func CreateTestIndex(t *testing.T, eng *engine.Engine, indexName string) config.IndexSettings {
	settings := config.IndexSettings{
		Name:             indexName,
		SearchableFields: []string{"title", "content", "description"},
		FilterableFields: []string{"category", "year", "status", "popularity"},
	}

	err := eng.CreateIndex(settings)
	require.NoError(t, err, "Failed to create test index")

	return settings
}

// AddTestDocuments adds a set of test documents to an index.
func AddTestDocuments(t *testing.T, eng *engine.Engine, indexName string) []model.Document {
	indexAccessor, err := eng.GetIndex(indexName)
	require.NoError(t, err, "Failed to get index accessor")

	docs := []model.Document{
		{
			"documentID":  "doc1",
			"title":       "The Matrix",
			"content":     "A computer programmer discovers reality is a simulation",
			"description": "Sci-fi action movie about virtual reality",
			"category":    "movie",
			"year":        float64(1999),
			"status":      "published",
			"popularity":  9.5,
		},
		{
			"documentID":  "doc2",
			"title":       "Inception",
			"content":     "A thief enters people's dreams to steal secrets",
			"description": "Mind-bending thriller about dream manipulation",
			"category":    "movie",
			"year":        float64(2010),
			"status":      "published",
			"popularity":  9.2,
		},
		{
			"documentID":  "doc3",
			"title":       "Interstellar",
			"content":     "Astronauts travel through a wormhole to save humanity",
			"description": "Space epic about time dilation and love",
			"category":    "movie",
			"year":        float64(2014),
			"status":      "published",
			"popularity":  8.8,
		},
	}

	err = indexAccessor.AddDocuments(docs)
	require.NoError(t, err, "Failed to add test documents")

	return docs
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 100 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it completes or times out
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var job *model.Job
	var err error

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err = jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				if opts.LogProgress {
					t.Logf("Job %s completed successfully in %v", jobID, job.CompletedAt.Sub(job.CreatedAt))
				}
				return job
			case model.JobStatusFailed:
				t.Fatalf("Job %s failed: %s", jobID, job.Error)
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// AsyncOperationTest represents a test case for async operations
type AsyncOperationTest struct {
	Name            string
	SetupFunc       func(t *testing.T, eng *engine.Engine) string                   // Returns index name
	OperationFunc   func(t *testing.T, eng *engine.Engine, indexName string) string // Returns job ID
	ValidateFunc    func(t *testing.T, eng *engine.Engine, indexName string, job *model.Job)
	ExpectedJobType model.JobType
}

// RunAsyncOperationTests runs a suite of async operation tests
func RunAsyncOperationTests(t *testing.T, tests []AsyncOperationTest) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			eng := CreateTestEngine(t)

			indexName := tt.SetupFunc(t, eng)

			jobID := tt.OperationFunc(t, eng, indexName)
			require.NotEmpty(t, jobID, "Job ID should not be empty")

			job := WaitForJobCompletion(t, eng, jobID, DefaultJobPollingOptions())

			AssertJobCompleted(t, job, tt.ExpectedJobType, indexName)

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, eng, indexName, job)
			}
		})
	}
}

// CleanupTestDirs should be called in TestMain to clean up all test directories
func CleanupTestDirs() {
	globalTestDirRegistry.CleanupAll()
}

// TestMain ensures proper cleanup of test directories
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupTestDirs()
	os.Exit(code)
}
