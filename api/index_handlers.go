package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/logger"
	"github.com/gcbaptista/go-doc-search/internal/sphinx"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

// IndexInfo describes the published snapshot of an index.
type IndexInfo struct {
	Name        string               `json:"name"`
	Settings    config.IndexSettings `json:"settings"`
	Stats       index.Stats          `json:"stats"`
	Fingerprint string               `json:"fingerprint"`
	EnvVersion  map[string]int       `json:"env_version,omitempty"`
	BuiltAt     time.Time            `json:"built_at"`
}

func newIndexInfo(accessor services.IndexAccessor) IndexInfo {
	snap := accessor.Snapshot()
	return IndexInfo{
		Name:        snap.Settings.Name,
		Settings:    snap.Settings.Clone(),
		Stats:       snap.Stats(),
		Fingerprint: fmt.Sprintf("%08x", snap.Fingerprint),
		EnvVersion:  snap.EnvVersion,
		BuiltAt:     snap.BuiltAt,
	}
}

// ImportSourceRequest names a searchindex.js location to import from.
type ImportSourceRequest struct {
	Source   string                `json:"source" binding:"required"`
	Settings *config.IndexSettings `json:"settings,omitempty"`
}

// BuildIndexRequest is a native build manifest with optional settings.
type BuildIndexRequest struct {
	model.BuildManifest
	Settings *config.IndexSettings `json:"settings,omitempty"`
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler retrieves the settings and size of a specific index.
func (api *API) GetIndexHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newIndexInfo(accessor))
}

// DeleteIndexHandler handles deleting an index. Engines with background
// jobs delete asynchronously and answer 202 with the job id.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if asyncEngine, ok := api.engine.(services.IndexManagerWithAsync); ok {
		jobID, err := asyncEngine.DeleteIndexAsync(indexName)
		if err != nil {
			SendEngineError(c, "delete index", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Index deletion started for '" + indexName + "'",
			"job_id":  jobID,
		})
		return
	}

	if err := api.engine.DeleteIndex(indexName); err != nil {
		SendEngineError(c, "delete index", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// UpdateIndexSettingsHandler rebuilds an index under new settings.
// Request Body: config.IndexSettings
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var settings config.IndexSettings
	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateIndexSettings(indexName, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.UpdateIndexSettings(indexName, settings); err != nil {
		SendEngineError(c, "update settings", err)
		return
	}

	api.respondWithIndex(c, http.StatusOK, indexName, "Settings of index '"+indexName+"' updated")
}

// ImportSearchIndexHandler replaces an index with the searchindex.js sent
// as the request body. Both the Search.setIndex(...) wrapper and bare JSON
// are accepted.
func (api *API) ImportSearchIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.ImportSphinx(indexName, c.Request.Body, nil); err != nil {
		SendEngineError(c, "import search index", err)
		return
	}

	api.respondWithIndex(c, http.StatusOK, indexName, "Index '"+indexName+"' imported")
}

// ImportFromSourceHandler imports a searchindex.js from a file or s3 location.
// Engines with background jobs import asynchronously and answer 202.
// Request Body: ImportSourceRequest
func (api *API) ImportFromSourceHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var req ImportSourceRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	req.Source = strings.TrimSpace(req.Source)
	if result := ValidateIndexSettings(indexName, req.Settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if asyncEngine, ok := api.engine.(services.IndexManagerWithAsync); ok {
		jobID, err := asyncEngine.ImportFromSourceAsync(indexName, req.Source, req.Settings)
		if err != nil {
			SendEngineError(c, "import", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Import of '" + req.Source + "' started for index '" + indexName + "'",
			"job_id":  jobID,
		})
		return
	}

	if err := api.engine.ImportFromSource(c.Request.Context(), indexName, req.Source, req.Settings); err != nil {
		SendEngineError(c, "import", err)
		return
	}
	api.respondWithIndex(c, http.StatusOK, indexName, "Index '"+indexName+"' imported")
}

// BuildIndexHandler builds an index from a native manifest. The build runs
// in the request unless async=true is given.
// Request Body: BuildIndexRequest
func (api *API) BuildIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var req BuildIndexRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateManifest(req.BuildManifest); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateIndexSettings(indexName, req.Settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if c.Query("async") == "true" {
		asyncEngine, ok := api.engine.(services.IndexManagerWithAsync)
		if !ok {
			SendError(c, http.StatusNotImplemented, ErrorCodeNotImplemented, "Background builds not supported by this engine")
			return
		}
		jobID, err := asyncEngine.BuildIndexAsync(indexName, req.BuildManifest, req.Settings)
		if err != nil {
			SendJobExecutionError(c, "build", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Build started for index '" + indexName + "'",
			"job_id":  jobID,
		})
		return
	}

	if err := api.engine.BuildIndex(indexName, req.BuildManifest, req.Settings); err != nil {
		SendEngineError(c, "build index", err)
		return
	}
	api.respondWithIndex(c, http.StatusCreated, indexName, "Index '"+indexName+"' built")
}

// ExportSearchIndexHandler serves the index as a Sphinx searchindex.js.
// The ETag is derived from the snapshot fingerprint so unchanged indexes
// answer If-None-Match with 304.
func (api *API) ExportSearchIndexHandler(c *gin.Context) {
	accessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	snap := accessor.Snapshot()
	etag := snap.ETag()
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", "application/javascript; charset=utf-8")
	c.Status(http.StatusOK)
	if err := sphinx.Encode(c.Writer, snap); err != nil {
		// headers are already sent; the client sees a truncated body
		logger.FromContext(c.Request.Context()).Error("export failed", "index", indexName, "error", err)
		_ = c.Error(err)
	}
}

func (api *API) respondWithIndex(c *gin.Context, status int, indexName, message string) {
	accessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		// deleted between publish and response
		c.JSON(status, gin.H{"message": message})
		return
	}
	c.JSON(status, gin.H{
		"message": message,
		"index":   newIndexInfo(accessor),
	})
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
