package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/engine"
	"github.com/gcbaptista/faceted-index/model"
)

var (
	testDirs   []string
	testDirsMu sync.Mutex
)

func setupTestEngine() *engine.Engine {
	testDir := fmt.Sprintf("./test_data_%d", time.Now().UnixNano())

	testDirsMu.Lock()
	testDirs = append(testDirs, testDir)
	testDirsMu.Unlock()

	return engine.NewEngine(testDir)
}

func setupTestRouter(eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, eng)
	return router
}

func TestCreateIndexHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "valid index creation",
			requestBody: config.IndexSettings{
				Name:             "test_index_create",
				SearchableFields: []string{"title", "content"},
				FilterableFields: []string{"category"},
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing index name",
			requestBody: config.IndexSettings{
				SearchableFields: []string{"title"},
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest("POST", "/indexes", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAddDocumentsHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings := config.IndexSettings{
		Name:             "test_docs_add",
		SearchableFields: []string{"title", "content"},
		FilterableFields: []string{"category"},
	}
	if err := eng.CreateIndex(indexSettings); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "valid single document",
			requestBody: model.Document{
				"documentID": "test_doc_001",
				"title":      "Test Document",
				"content":    "This is test content",
				"category":   "test",
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name: "valid multiple documents",
			requestBody: []model.Document{
				{"documentID": "test_doc_002", "title": "Doc 2", "content": "Content 2", "category": "test"},
				{"documentID": "test_doc_003", "title": "Doc 3", "content": "Content 3", "category": "test"},
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "document missing documentID",
			requestBody: model.Document{
				"title": "No ID",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest("PUT", "/indexes/test_docs_add/documents", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListIndexesHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	req, _ := http.NewRequest("GET", "/indexes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestGetIndexHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings := config.IndexSettings{
		Name:             "test_get_handler",
		SearchableFields: []string{"title"},
	}
	if err := eng.CreateIndex(indexSettings); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	tests := []struct {
		name           string
		indexName      string
		expectedStatus int
	}{
		{name: "existing index", indexName: "test_get_handler", expectedStatus: http.StatusOK},
		{name: "non-existing index", indexName: "non_existing", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/indexes/"+tt.indexName, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestDeleteIndexHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings := config.IndexSettings{
		Name:             "test_delete",
		SearchableFields: []string{"title"},
		FilterableFields: []string{"category"},
	}
	if err := eng.CreateIndex(indexSettings); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	tests := []struct {
		name           string
		indexName      string
		expectedStatus int
	}{
		{name: "valid index deletion", indexName: "test_delete", expectedStatus: http.StatusAccepted},
		{name: "non-existent index", indexName: "non_existent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("DELETE", "/indexes/"+tt.indexName, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestUpdateIndexSettingsHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings := config.IndexSettings{
		Name:                      "test_update_settings",
		SearchableFields:          []string{"title", "content"},
		FilterableFields:          []string{"category", "year"},
		FieldsWithoutPrefixSearch: []string{},
	}
	if err := eng.CreateIndex(indexSettings); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	indexAccessor, err := eng.GetIndex("test_update_settings")
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	docs := []model.Document{
		{"documentID": "doc1", "title": "Test Document 1", "content": "content 1", "category": "test", "year": float64(2023)},
		{"documentID": "doc2", "title": "Test Document 2", "content": "content 2", "category": "example", "year": float64(2024)},
	}
	if err := indexAccessor.AddDocuments(docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	tests := []struct {
		name           string
		indexName      string
		requestBody    map[string]interface{}
		expectedStatus int
	}{
		{
			name:      "update field-level settings only (no reindexing)",
			indexName: "test_update_settings",
			requestBody: map[string]interface{}{
				"fields_without_prefix_search": []string{"content"},
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:      "update searchable fields (triggers reindexing)",
			indexName: "test_update_settings",
			requestBody: map[string]interface{}{
				"searchable_fields": []string{"title", "content", "category"},
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:      "invalid field name (contains filter operator suffix)",
			indexName: "test_update_settings",
			requestBody: map[string]interface{}{
				"searchable_fields": []string{"field_exact", "field_gt"},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty request body",
			indexName:      "test_update_settings",
			requestBody:    map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "non-existent index",
			indexName: "non_existent_index",
			requestBody: map[string]interface{}{
				"searchable_fields": []string{"title"},
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest("PATCH", "/indexes/"+tt.indexName+"/settings", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRenameIndexHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings1 := config.IndexSettings{
		Name:             "test_rename_source",
		SearchableFields: []string{"title", "content"},
		FilterableFields: []string{"category"},
	}
	if err := eng.CreateIndex(indexSettings1); err != nil {
		t.Fatalf("Failed to create source index: %v", err)
	}

	indexSettings2 := config.IndexSettings{
		Name:             "existing_target",
		SearchableFields: []string{"title"},
		FilterableFields: []string{"status"},
	}
	if err := eng.CreateIndex(indexSettings2); err != nil {
		t.Fatalf("Failed to create target index: %v", err)
	}

	indexAccessor, err := eng.GetIndex("test_rename_source")
	if err != nil {
		t.Fatalf("Failed to get source index: %v", err)
	}
	docs := []model.Document{
		{"documentID": "doc1", "title": "Test Document 1", "content": "Content 1", "category": "test"},
		{"documentID": "doc2", "title": "Test Document 2", "content": "Content 2", "category": "test"},
	}
	if err := indexAccessor.AddDocuments(docs); err != nil {
		t.Fatalf("Failed to add documents: %v", err)
	}

	tests := []struct {
		name           string
		indexName      string
		requestBody    RenameIndexRequest
		expectedStatus int
	}{
		{
			name:           "successful rename",
			indexName:      "test_rename_source",
			requestBody:    RenameIndexRequest{NewName: "renamed_index"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "empty new name",
			indexName:      "test_rename_source",
			requestBody:    RenameIndexRequest{NewName: ""},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "new name with whitespace",
			indexName:      "test_rename_source",
			requestBody:    RenameIndexRequest{NewName: " invalid_name "},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "source index not found",
			indexName:      "nonexistent_index",
			requestBody:    RenameIndexRequest{NewName: "new_name"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "target name already exists",
			indexName:      "existing_target",
			requestBody:    RenameIndexRequest{NewName: "test_rename_source"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "same old and new name",
			indexName:      "existing_target",
			requestBody:    RenameIndexRequest{NewName: "existing_target"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest("PATCH", "/indexes/"+tt.indexName, bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetIndexStatsHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	indexSettings := config.IndexSettings{
		Name:             "test_stats",
		SearchableFields: []string{"title"},
		FilterableFields: []string{"category"},
	}
	if err := eng.CreateIndex(indexSettings); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	req, _ := http.NewRequest("GET", "/indexes/test_stats/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d. Response: %s", http.StatusOK, w.Code, w.Body.String())
	}
}

func TestHealthCheckHandler(t *testing.T) {
	eng := setupTestEngine()
	router := setupTestRouter(eng)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	testDirsMu.Lock()
	for _, testDir := range testDirs {
		if err := os.RemoveAll(testDir); err != nil {
			fmt.Printf("Warning: Failed to remove test directory %s: %v\n", testDir, err)
		}
	}
	testDirsMu.Unlock()
	os.Exit(code)
}
