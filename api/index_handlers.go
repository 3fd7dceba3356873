package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/engine"
	internalErrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/services"
)

// CreateIndexHandler handles the request to create a new index.
// Request Body: config.IndexSettings
func (api *API) CreateIndexHandler(c *gin.Context) {
	var settings config.IndexSettings

	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var jobID string
	var err error
	if concreteEngine, ok := api.engine.(*engine.Engine); ok {
		jobID, err = concreteEngine.CreateIndexAsync(settings)
	} else {
		err = api.engine.CreateIndex(settings)
	}

	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexAlreadyExists) {
			SendIndexExistsError(c, settings.Name)
			return
		}
		SendIndexingError(c, "create index", err)
		return
	}

	if jobID != "" {
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Index creation started for '" + settings.Name + "'",
			"job_id":  jobID,
		})
	} else {
		c.JSON(http.StatusCreated, gin.H{"message": "Index '" + settings.Name + "' created successfully"})
	}
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler retrieves details about a specific index (its settings).
func (api *API) GetIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index", err)
		return
	}
	c.JSON(http.StatusOK, indexAccessor.Settings())
}

// DeleteIndexHandler handles deleting an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	var jobID string
	var err error
	if concreteEngine, ok := api.engine.(*engine.Engine); ok {
		jobID, err = concreteEngine.DeleteIndexAsync(indexName)
	} else {
		err = api.engine.DeleteIndex(indexName)
	}

	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendIndexingError(c, "delete index", err)
		return
	}

	if jobID != "" {
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Index deletion started for '" + indexName + "'",
			"job_id":  jobID,
		})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
	}
}

// RenameIndexRequest defines the structure for renaming an index.
type RenameIndexRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

// RenameIndexHandler handles requests to rename an index.
func (api *API) RenameIndexHandler(c *gin.Context) {
	oldName := c.Param("indexName")

	var req RenameIndexRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if result := ValidateRenameRequest(oldName, req.NewName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var jobID string
	var err error
	if concreteEngine, ok := api.engine.(*engine.Engine); ok {
		jobID, err = concreteEngine.RenameIndexAsync(oldName, req.NewName)
	} else {
		err = api.engine.RenameIndex(oldName, req.NewName)
	}

	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, oldName)
			return
		}
		if errors.Is(err, internalErrors.ErrIndexAlreadyExists) {
			SendIndexExistsError(c, req.NewName)
			return
		}
		if errors.Is(err, internalErrors.ErrSameName) {
			SendSameNameError(c, req.NewName)
			return
		}
		SendIndexingError(c, "rename index", err)
		return
	}

	if jobID != "" {
		c.JSON(http.StatusAccepted, gin.H{
			"status":   "accepted",
			"message":  fmt.Sprintf("Index rename started: '%s' -> '%s'", oldName, req.NewName),
			"job_id":   jobID,
			"old_name": oldName,
			"new_name": req.NewName,
		})
	} else {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Index renamed successfully",
			"old_name": oldName,
			"new_name": req.NewName,
		})
	}
}

// UpdateIndexSettingsHandler handles requests to update an index's
// searchable/filterable fields and per-field prefix-search toggles.
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	settings, err := api.engine.GetIndexSettings(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index settings", err)
		return
	}

	rawRequest := make(map[string]interface{})
	if err := c.ShouldBindJSON(&rawRequest); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	originalSettings := settings
	updated := false
	requiresReindexing := false

	if fieldValue, keyExists := rawRequest["searchable_fields"]; keyExists {
		if fieldValue == nil {
			settings.SearchableFields = []string{}
		} else if fieldSlice, isSlice := fieldValue.([]interface{}); isSlice {
			settings.SearchableFields = toStringSlice(fieldSlice)
		}
		if !slicesEqual(originalSettings.SearchableFields, settings.SearchableFields) {
			requiresReindexing = true
		}
		updated = true
	}

	if fieldValue, keyExists := rawRequest["filterable_fields"]; keyExists {
		if fieldValue == nil {
			settings.FilterableFields = []string{}
		} else if fieldSlice, isSlice := fieldValue.([]interface{}); isSlice {
			settings.FilterableFields = toStringSlice(fieldSlice)
		}
		if !slicesEqual(originalSettings.FilterableFields, settings.FilterableFields) {
			requiresReindexing = true
		}
		updated = true
	}

	if fieldValue, keyExists := rawRequest["fields_without_prefix_search"]; keyExists {
		if fieldValue == nil {
			settings.FieldsWithoutPrefixSearch = []string{}
		} else if fieldSlice, isSlice := fieldValue.([]interface{}); isSlice {
			settings.FieldsWithoutPrefixSearch = toStringSlice(fieldSlice)
		}
		updated = true
	}

	if !updated {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "No valid updatable fields provided or no changes detected")
		return
	}

	if conflicts := settings.ValidateFieldNames(); len(conflicts) > 0 {
		details := make([]ErrorDetail, len(conflicts))
		for i, conflict := range conflicts {
			details[i] = ErrorDetail{
				Message: conflict,
				Code:    "FIELD_VALIDATION_ERROR",
			}
		}
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Field name validation failed", details...)
		return
	}

	var jobID string
	if engineWithAsyncReindex, ok := api.engine.(services.IndexManagerWithAsyncReindex); ok {
		jobID, err = engineWithAsyncReindex.UpdateIndexSettingsWithAsyncReindex(indexName, settings)
		if err != nil {
			SendJobExecutionError(c, "settings update", err)
			return
		}
	} else {
		err = api.engine.UpdateIndexSettings(indexName, settings)
		if err != nil {
			SendInternalError(c, "update index settings", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "Settings updated successfully for index '" + indexName + "'",
			"reindexed": requiresReindexing,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":              "accepted",
		"message":             "Settings update started for index '" + indexName + "'",
		"job_id":              jobID,
		"reindexing_required": requiresReindexing,
	})
}

// GetIndexStatsHandler returns statistics for a specific index.
func (api *API) GetIndexStatsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index", err)
		return
	}

	settings := indexAccessor.Settings()

	documentCount := 0
	if docs, err := indexAccessor.AllDocuments(); err == nil {
		documentCount = len(docs)
	}

	stats := gin.H{
		"name":              settings.Name,
		"primary_key":       indexAccessor.PrimaryKey(),
		"document_count":    documentCount,
		"searchable_fields": settings.SearchableFields,
		"filterable_fields": settings.FilterableFields,
		"field_settings": gin.H{
			"fields_without_prefix_search": settings.FieldsWithoutPrefixSearch,
		},
	}

	c.JSON(http.StatusOK, stats)
}

// toStringSlice converts a decoded JSON array to a string slice, skipping
// any element that isn't itself a string.
func toStringSlice(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
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
