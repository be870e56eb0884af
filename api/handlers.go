package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/services"
)

// DefaultMetricsPath is where SetupRoutes exposes Prometheus metrics.
const DefaultMetricsPath = "/metrics"

// API holds dependencies for API handlers, primarily the index manager.
type API struct {
	engine    services.IndexManager
	metrics   *metrics.Metrics
	startedAt time.Time
}

// NewAPI creates a new API handler structure. m may be nil.
func NewAPI(engine services.IndexManager, m *metrics.Metrics) *API {
	return &API{
		engine:    engine,
		metrics:   m,
		startedAt: time.Now(),
	}
}

// NewRouter builds a gin engine with the middleware chain configured by
// server and every API route installed.
func NewRouter(engine services.IndexManager, m *metrics.Metrics, server config.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(), CORSMiddleware())
	if m != nil {
		router.Use(MetricsMiddleware(m))
	}
	if server.RateLimit > 0 {
		router.Use(RateLimitMiddleware(server.RateLimit, server.RateBurst))
	}
	if server.MaxBodyBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(server.MaxBodyBytes))
	}

	SetupRoutes(router, engine, m)
	return router
}

// SetupRoutes defines all the API routes for the documentation search service.
func SetupRoutes(router *gin.Engine, engine services.IndexManager, m *metrics.Metrics) {
	apiHandler := NewAPI(engine, m)

	router.GET("/health", apiHandler.HealthCheckHandler)
	if m != nil {
		router.GET(DefaultMetricsPath, gin.WrapH(m.Handler()))
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.GET("", apiHandler.ListIndexesHandler)
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)
		indexRoutes.PATCH("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler)
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)

		// Building and exchanging Sphinx search indexes
		indexRoutes.PUT("/:indexName/searchindex", apiHandler.ImportSearchIndexHandler)
		indexRoutes.GET("/:indexName/searchindex.js", apiHandler.ExportSearchIndexHandler)
		indexRoutes.POST("/:indexName/import", apiHandler.ImportFromSourceHandler)
		indexRoutes.POST("/:indexName/build", apiHandler.BuildIndexHandler)

		// Querying
		indexRoutes.GET("/:indexName/_search", apiHandler.SearchQueryHandler)
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
		indexRoutes.POST("/:indexName/_multi_search", apiHandler.MultiSearchHandler)
		indexRoutes.GET("/:indexName/terms", apiHandler.PrefixTermsHandler)
		indexRoutes.GET("/:indexName/terms/:term", apiHandler.LookupTermHandler)

		// Resolution
		indexRoutes.GET("/:indexName/documents/:docName", apiHandler.GetDocumentHandler)
		indexRoutes.GET("/:indexName/objects", apiHandler.ListTopLevelObjectsHandler)
		indexRoutes.GET("/:indexName/objects/:qualifiedName", apiHandler.GetObjectHandler)
		indexRoutes.GET("/:indexName/objects/:qualifiedName/children", apiHandler.ListChildrenHandler)
	}
}

// HealthCheckHandler reports liveness and the number of loaded indexes.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"indexes": len(api.engine.ListIndexes()),
		"uptime":  time.Since(api.startedAt).Round(time.Second).String(),
	})
}

// indexAccessor resolves the index named in the URL, sending the error
// response itself when it cannot.
func (api *API) indexAccessor(c *gin.Context) (services.IndexAccessor, string, bool) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return nil, indexName, false
	}

	accessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendEngineError(c, "get index", err)
		return nil, indexName, false
	}
	return accessor, indexName, true
}
