package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/engine"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	testutil "github.com/gcbaptista/go-doc-search/internal/testing"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

const testIndex = "workflows"

func setupTestRouter(t *testing.T, eng *engine.Engine, m *metrics.Metrics) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(eng, m, config.ServerConfig{MaxBodyBytes: 1 << 20})
}

// setupWithIndex returns a router over an engine holding the sample index.
func setupWithIndex(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	eng := testutil.CreateTestEngine(t)
	testutil.ImportTestIndex(t, eng, testIndex)
	return setupTestRouter(t, eng, nil), eng
}

func performRequest(router *gin.Engine, method, path string, body []byte, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealthCheckHandler(t *testing.T) {
	router, _ := setupWithIndex(t)

	w := performRequest(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[map[string]interface{}](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["indexes"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader), "every response carries a request id")
}

func TestIndexHandlers(t *testing.T) {
	router, _ := setupWithIndex(t)

	t.Run("list", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/indexes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[map[string]interface{}](t, w)
		assert.Equal(t, []interface{}{testIndex}, body["indexes"])
	})

	t.Run("get", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/indexes/"+testIndex, nil)
		require.Equal(t, http.StatusOK, w.Code)
		info := decodeBody[IndexInfo](t, w)
		assert.Equal(t, testIndex, info.Name)
		assert.Equal(t, 5, info.Stats.Documents)
		assert.Equal(t, 12, info.Stats.Objects)
		assert.Equal(t, map[string]int{"sphinx": 57}, info.EnvVersion)
		assert.Len(t, info.Fingerprint, 8)
	})

	t.Run("unknown index", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/indexes/missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		apiErr := decodeBody[APIError](t, w)
		assert.Equal(t, ErrorCodeIndexNotFound, apiErr.Code)
		assert.NotEmpty(t, apiErr.RequestID)
	})
}

func TestImportSearchIndexHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(t, eng, nil)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{"wrapped index", testutil.SampleSearchIndex, http.StatusOK, ""},
		{"bare json", `{"docnames":["intro"],"filenames":["intro.rst"],"titles":["Intro"],"terms":{"intro":0}}`, http.StatusOK, ""},
		{"malformed", "Search.setIndex({not json})", http.StatusBadRequest, ErrorCodeValidationFailed},
		{"empty", "", http.StatusBadRequest, ErrorCodeValidationFailed},
		{"duplicate docname", `{"docnames":["a","a"],"filenames":["a.rst","b.rst"],"titles":["A","B"]}`, http.StatusUnprocessableEntity, ErrorCodeIndexRejected},
		{"dangling posting", `{"docnames":["a"],"filenames":["a.rst"],"titles":["A"],"terms":{"x":3}}`, http.StatusUnprocessableEntity, ErrorCodeIndexRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/indexes/docs/searchindex", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeBody[APIError](t, w).Code)
			}
		})
	}

	// the failed imports left the last good version in place
	accessor, err := eng.GetIndex("docs")
	require.NoError(t, err)
	assert.Equal(t, 1, accessor.Snapshot().Stats().Documents)
}

func TestImportSearchIndexHandler_BodyLimit(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	gin.SetMode(gin.TestMode)
	router := NewRouter(eng, nil, config.ServerConfig{MaxBodyBytes: 64})

	w := performRequest(router, http.MethodPut, "/indexes/docs/searchindex", []byte(testutil.SampleSearchIndex))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, eng.ListIndexes())
}

func TestExportSearchIndexHandler(t *testing.T) {
	router, eng := setupWithIndex(t)

	w := performRequest(router, http.MethodGet, "/indexes/"+testIndex+"/searchindex.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Search.setIndex("))
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	accessor, err := eng.GetIndex(testIndex)
	require.NoError(t, err)
	assert.Equal(t, accessor.Snapshot().ETag(), etag)

	w = performRequest(router, http.MethodGet, "/indexes/"+testIndex+"/searchindex.js", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = performRequest(router, http.MethodGet, "/indexes/"+testIndex+"/searchindex.js", nil, "If-None-Match", `"0"`)
	assert.Equal(t, http.StatusOK, w.Code)

	// the export imports back to the same content
	export := w.Body.Bytes()
	req := httptest.NewRequest(http.MethodPut, "/indexes/copy/searchindex", bytes.NewReader(export))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	copied, err := eng.GetIndex("copy")
	require.NoError(t, err)
	assert.Equal(t, accessor.Snapshot().Stats().Documents, copied.Snapshot().Stats().Documents)
	assert.Equal(t, accessor.Snapshot().Stats().Objects, copied.Snapshot().Stats().Objects)
}

func TestSearchHandlers(t *testing.T) {
	router, _ := setupWithIndex(t)
	base := "/indexes/" + testIndex

	t.Run("post", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, base+"/_search", mustJSON(t, SearchRequest{Query: "config"}))
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody[services.SearchResult](t, w)
		require.NotEmpty(t, result.Hits)
		assert.Equal(t, services.HitDocument, result.Hits[0].Kind)
		assert.Equal(t, "config", result.Hits[0].Key)
		assert.Equal(t, "config.html", result.Hits[0].Link)
		assert.Equal(t, []string{"config"}, result.Tokens)
	})

	t.Run("get", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/_search?q=pipelin&kind=document", nil)
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody[services.SearchResult](t, w)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("no match", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/_search?q=zzzz", nil)
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody[services.SearchResult](t, w)
		assert.Equal(t, 0, result.Total)
		assert.Empty(t, result.Hits)
	})

	t.Run("misspelled", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/_search?q=confg", nil)
		require.Equal(t, http.StatusOK, w.Code)
		result := decodeBody[services.SearchResult](t, w)
		assert.Equal(t, []string{"config"}, result.Suggestions["confg"])
	})

	t.Run("bad kind", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, base+"/_search", mustJSON(t, SearchRequest{Query: "config", Kind: "page"}))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeInvalidQuery, decodeBody[APIError](t, w).Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, base+"/_search", []byte("{"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown index", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/indexes/missing/_search?q=config", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMultiSearchHandler(t *testing.T) {
	router, _ := setupWithIndex(t)
	path := "/indexes/" + testIndex + "/_multi_search"

	req := MultiSearchRequest{Queries: []NamedSearchRequest{
		{Name: "pages", Query: "config", Kind: "document"},
		{Name: "objects", Query: "binvol", Kind: "object"},
	}}
	w := performRequest(router, http.MethodPost, path, mustJSON(t, req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeBody[services.MultiSearchResult](t, w)
	assert.Equal(t, 2, result.TotalQueries)
	require.Contains(t, result.Results, "objects")
	require.NotEmpty(t, result.Results["objects"].Hits)
	assert.Equal(t, "config.Config.binvol", result.Results["objects"].Hits[0].Key)

	dup := MultiSearchRequest{Queries: []NamedSearchRequest{{Name: "a", Query: "x"}, {Name: "a", Query: "y"}}}
	w = performRequest(router, http.MethodPost, path, mustJSON(t, dup))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTermHandlers(t *testing.T) {
	router, _ := setupWithIndex(t)
	base := "/indexes/" + testIndex + "/terms"

	w := performRequest(router, http.MethodGet, base+"/pipelin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]interface{}](t, w)
	assert.EqualValues(t, 2, body["total"])

	w = performRequest(router, http.MethodGet, base+"/absent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody[map[string]interface{}](t, w)["total"])

	w = performRequest(router, http.MethodGet, base+"?prefix=CON&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prefix := decodeBody[struct {
		Prefix string   `json:"prefix"`
		Terms  []string `json:"terms"`
	}](t, w)
	assert.Equal(t, "con", prefix.Prefix)
	assert.Contains(t, prefix.Terms, "config")

	w = performRequest(router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentAndObjectHandlers(t *testing.T) {
	router, _ := setupWithIndex(t)
	base := "/indexes/" + testIndex

	t.Run("document", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/documents/config", nil)
		require.Equal(t, http.StatusOK, w.Code)
		doc := decodeBody[DocumentResponse](t, w)
		assert.Equal(t, "config module", doc.Title)
		assert.Equal(t, "config.rst", doc.Filename)
		assert.Equal(t, "config.html", doc.Link)
		assert.Empty(t, doc.Sections)
		require.Len(t, doc.IndexEntries, 1)
		assert.Equal(t, "module-config", doc.IndexEntries[0].Anchor)
	})

	t.Run("document sections", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/documents/api", nil)
		require.Equal(t, http.StatusOK, w.Code)
		doc := decodeBody[DocumentResponse](t, w)
		require.Len(t, doc.Sections, 1)
		assert.Equal(t, "API", doc.Sections[0].Title)
	})

	t.Run("unknown document", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/documents/missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, ErrorCodeDocumentNotFound, decodeBody[APIError](t, w).Code)
	})

	t.Run("object", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects/config.Config", nil)
		require.Equal(t, http.StatusOK, w.Code)
		obj := decodeBody[ObjectResponse](t, w)
		assert.Equal(t, model.KindClass, obj.Kind)
		assert.Equal(t, "config", obj.Parent)
		assert.Equal(t, "config", obj.Document)
		assert.Equal(t, "config.html#config.Config", obj.Link)
	})

	t.Run("module anchor", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects/config", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "config.html#module-config", decodeBody[ObjectResponse](t, w).Link)
	})

	t.Run("children", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects/config.Config/children", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[struct {
			Objects []ObjectResponse `json:"objects"`
		}](t, w)
		names := make([]string, len(body.Objects))
		for i, o := range body.Objects {
			names[i] = o.QualifiedName
		}
		assert.Equal(t, []string{"config.Config.binvol", "config.Config.brt_binning"}, names)
	})

	t.Run("top level", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody[struct {
			Total int `json:"total"`
		}](t, w)
		assert.Equal(t, 2, body.Total)
	})

	t.Run("unknown object", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects/config.Nope", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, ErrorCodeObjectNotFound, decodeBody[APIError](t, w).Code)

		w = performRequest(router, http.MethodGet, base+"/objects/config.Nope/children", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed name", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, base+"/objects/config..Config", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBuildIndexHandler(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(t, eng, nil)

	manifest := BuildIndexRequest{BuildManifest: model.BuildManifest{
		Documents: []model.DocumentInput{
			{DocName: "intro", Title: "Intro", Body: "Getting started"},
			{DocName: "config", Title: "Config", Body: "Settings reference"},
		},
		Objects: []model.ObjectInput{
			{QualifiedName: "config.Config", Kind: "class", DocName: "config"},
		},
	}}

	w := performRequest(router, http.MethodPost, "/indexes/site/build", mustJSON(t, manifest))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	testutil.RunSearchTests(t, mustGetIndex(t, eng, "site"), []testutil.SearchTestCase{
		{Name: "title match", Query: services.SearchQuery{QueryString: "config", Kind: services.HitDocument}, ExpectedCount: 1, ExpectedFirst: "config"},
		{Name: "no match", Query: services.SearchQuery{QueryString: "zzz"}, ExpectedCount: 0},
	})

	tests := []struct {
		name string
		body interface{}
	}{
		{"no documents", BuildIndexRequest{}},
		{"object on unknown page", BuildIndexRequest{BuildManifest: model.BuildManifest{
			Documents: []model.DocumentInput{{DocName: "intro", Title: "Intro"}},
			Objects:   []model.ObjectInput{{QualifiedName: "x", Kind: "module", DocName: "missing"}},
		}}},
		{"bad weights", BuildIndexRequest{
			BuildManifest: model.BuildManifest{Documents: []model.DocumentInput{{DocName: "intro", Title: "Intro"}}},
			Settings:      &config.IndexSettings{Weights: config.Weights{Title: 1, Object: 5, Body: 10}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/indexes/other/build", mustJSON(t, tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestBuildIndexHandler_Async(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	router := setupTestRouter(t, eng, nil)

	manifest := BuildIndexRequest{BuildManifest: model.BuildManifest{
		Documents: []model.DocumentInput{{DocName: "intro", Title: "Intro", Body: "Getting started"}},
	}}
	w := performRequest(router, http.MethodPost, "/indexes/site/build?async=true", mustJSON(t, manifest))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	jobID := decodeBody[map[string]string](t, w)["job_id"]
	job := testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeBuildIndex, "site")

	w = performRequest(router, http.MethodGet, "/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.JobStatusCompleted, decodeBody[model.Job](t, w).Status)
}

func TestImportFromSourceHandler(t *testing.T) {
	importDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(importDir, "workflows"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "workflows", "searchindex.js"), []byte(testutil.SampleSearchIndex), 0o600))

	eng := testutil.CreateTestEngine(t, testutil.EngineOptions{ImportDir: importDir})
	router := setupTestRouter(t, eng, nil)

	w := performRequest(router, http.MethodPost, "/indexes/workflows/import", mustJSON(t, ImportSourceRequest{Source: "workflows"}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	jobID := decodeBody[map[string]string](t, w)["job_id"]
	job := testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeImportIndex, "workflows")
	assert.Equal(t, "workflows", job.Metadata["source"])

	w = performRequest(router, http.MethodGet, "/indexes/workflows/jobs?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]interface{}](t, w)["total"])

	t.Run("missing file fails the job", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/indexes/other/import", mustJSON(t, ImportSourceRequest{Source: "nowhere/searchindex.js"}))
		require.Equal(t, http.StatusAccepted, w.Code)
		jobID := decodeBody[map[string]string](t, w)["job_id"]
		job := testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())
		assert.Equal(t, model.JobStatusFailed, job.Status)
		assert.Contains(t, job.Error, "not found")
	})

	t.Run("missing source", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/indexes/other/import", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad status filter", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/indexes/workflows/jobs?status=sleeping", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateIndexSettingsHandler(t *testing.T) {
	router, eng := setupWithIndex(t)
	path := "/indexes/" + testIndex + "/settings"

	settings := config.IndexSettings{
		Weights:    config.Weights{Title: 40, Object: 20, Body: 2},
		MaxResults: 1,
	}
	w := performRequest(router, http.MethodPatch, path, mustJSON(t, settings))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	accessor := mustGetIndex(t, eng, testIndex)
	assert.Equal(t, 40, accessor.Settings().Weights.Title)
	hits := accessor.Query("config")
	require.Len(t, hits, 1)
	assert.Equal(t, 40, hits[0].Score)

	w = performRequest(router, http.MethodPatch, path, mustJSON(t, config.IndexSettings{Name: "other"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPatch, "/indexes/missing/settings", mustJSON(t, settings))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIndexHandler(t *testing.T) {
	router, eng := setupWithIndex(t)

	w := performRequest(router, http.MethodDelete, "/indexes/"+testIndex, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	jobID := decodeBody[map[string]string](t, w)["job_id"]
	job := testutil.WaitForJobCompletion(t, eng, jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeDeleteIndex, testIndex)

	w = performRequest(router, http.MethodGet, "/indexes/"+testIndex, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, http.MethodDelete, "/indexes/"+testIndex, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobHandlers(t *testing.T) {
	router, _ := setupWithIndex(t)

	w := performRequest(router, http.MethodGet, "/jobs/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeJobNotFound, decodeBody[APIError](t, w).Code)

	w = performRequest(router, http.MethodGet, "/jobs/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]interface{}](t, w)
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "success_rate")
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	eng := testutil.CreateTestEngine(t, testutil.EngineOptions{Metrics: m})
	testutil.ImportTestIndex(t, eng, testIndex)
	router := setupTestRouter(t, eng, m)

	performRequest(router, http.MethodGet, "/indexes/"+testIndex+"/_search?q=config", nil)

	w := performRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, `http_requests_total{method="GET",path="/indexes/:indexName/_search",status="200"} 1`)
	assert.Contains(t, text, `search_queries_total{index="workflows",result_type="hit"} 1`)
	assert.Contains(t, text, `index_documents{index="workflows"} 5`)
}

func TestMiddleware(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	gin.SetMode(gin.TestMode)
	router := NewRouter(eng, nil, config.ServerConfig{RateLimit: 1, RateBurst: 2})

	t.Run("request id is echoed", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/health", nil, requestIDHeader, "abc-123")
		assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	})

	t.Run("cors preflight", func(t *testing.T) {
		w := performRequest(router, http.MethodOptions, "/indexes", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("rate limit", func(t *testing.T) {
		var codes []int
		for i := 0; i < 4; i++ {
			codes = append(codes, performRequest(router, http.MethodGet, "/indexes", nil).Code)
		}
		assert.Contains(t, codes, http.StatusTooManyRequests)
		// health checks bypass the limiter
		assert.Equal(t, http.StatusOK, performRequest(router, http.MethodGet, "/health", nil).Code)
	})
}

func mustGetIndex(t *testing.T, eng *engine.Engine, name string) services.IndexAccessor {
	t.Helper()
	accessor, err := eng.GetIndex(name)
	require.NoError(t, err)
	return accessor
}
