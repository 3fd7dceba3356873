package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/faceted-index/services"
)

// API holds dependencies for API handlers, primarily the indexing engine.
type API struct {
	engine services.IndexManager
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.IndexManager) *API {
	return &API{engine: engine}
}

// SetupRoutes defines all the API routes for the indexing engine.
func SetupRoutes(router *gin.Engine, engine services.IndexManager) {
	apiHandler := NewAPI(engine)

	router.GET("/health", apiHandler.HealthCheckHandler)

	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)
		indexRoutes.GET("", apiHandler.ListIndexesHandler)
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)
		indexRoutes.PATCH("/:indexName", apiHandler.RenameIndexHandler)
		indexRoutes.PATCH("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler)
		indexRoutes.GET("/:indexName/stats", apiHandler.GetIndexStatsHandler)

		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.AddDocumentsHandler)
			docRoutes.GET("", apiHandler.GetDocumentsHandler)
			docRoutes.DELETE("", apiHandler.DeleteAllDocumentsHandler)
			docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)
			docRoutes.DELETE("/:documentId", apiHandler.DeleteDocumentHandler)
		}
	}

	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler)
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)
	}
	indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)
}

// HealthCheckHandler provides a simple health check endpoint.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "faceted-index",
		"timestamp": time.Now().Unix(),
	})
}
