// Package testing provides utilities and helpers for testing the search engine.
package testing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/engine"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/internal/source"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

// SampleSearchIndex is a small Sphinx search index of a pipeline project:
// pages api, brt_flow, config, index and utils with their Python objects.
const SampleSearchIndex = `Search.setIndex({"docnames":["api","brt_flow","config","index","utils"],"filenames":["api.rst","brt_flow.rst","config.rst","index.rst","utils.rst"],"titles":["API","brt.flow","config module","Image Portal Workflows","utils module"],"terms":{"config":[0,2],"modul":[0,1,2,4],"slurm_exec":[0,2],"binvol":[0,2],"gen_thumb":1,"batchruntomo":1,"pipelin":[1,3],"neuroglanc":3,"add_asset":4,"header":4},"objects":{"":[[2,0,0,"-","config"],[4,0,0,"-","utils"]],"brt":[[1,0,0,"-","flow"]],"brt.flow":[[1,1,1,"","gen_thumbs"],[1,1,1,"","cleanup_files"]],"config":[[2,2,1,"","Config"],[2,1,1,"","SLURM_exec"]],"config.Config":[[2,3,1,"","binvol"],[2,3,1,"","brt_binning"]],"utils":[[4,2,1,"","Header"],[4,1,1,"","add_asset"]],"utils.Header":[[4,3,1,"","z"]]},"objtypes":{"0":"py:module","1":"py:function","2":"py:class","3":"py:attribute"},"objnames":{"0":["py","module","Python module"],"1":["py","function","Python function"],"2":["py","class","Python class"],"3":["py","attribute","Python attribute"]},"titleterms":{"api":0,"brt":1,"flow":1,"config":2,"modul":[2,4],"util":4,"imag":3,"portal":3,"workflow":3},"envversion":{"sphinx":57},"alltitles":{"API":[[0,"api"]],"Contents:":[[3,null]]},"indexentries":{"config":[[2,"module-config"]]}})`

// EngineOptions tweaks the engine created by CreateTestEngine.
type EngineOptions struct {
	ImportDir string // enables local import sources when set
	Metrics   *metrics.Metrics
}

// CreateTestEngine creates an engine over a temporary data directory and
// closes it when the test ends.
func CreateTestEngine(t *testing.T, opts ...EngineOptions) *engine.Engine {
	t.Helper()
	var o EngineOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	router, err := source.NewRouter(config.StorageConfig{ImportDir: o.ImportDir}, config.S3Config{})
	require.NoError(t, err, "Failed to create source router")

	eng, err := engine.NewEngine(engine.Options{
		DataDir:    t.TempDir(),
		MaxWorkers: 2,
		Source:     router,
		Metrics:    o.Metrics,
	})
	require.NoError(t, err, "Failed to create test engine")
	t.Cleanup(eng.Close)
	return eng
}

// ImportTestIndex imports SampleSearchIndex as indexName.
func ImportTestIndex(t *testing.T, eng *engine.Engine, indexName string) services.IndexAccessor {
	t.Helper()
	err := eng.ImportSphinx(indexName, strings.NewReader(SampleSearchIndex), nil)
	require.NoError(t, err, "Failed to import test index")

	accessor, err := eng.GetIndex(indexName)
	require.NoError(t, err, "Failed to get index accessor")
	return accessor
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
		Timeout:      5 * time.Second,
		PollInterval: 10 * time.Millisecond,
		LogProgress:  false,
	}
}

// WaitForJobCompletion polls a job until it reaches a terminal status or times out
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			if job.Status.IsTerminal() {
				return job
			}
			if opts.LogProgress && job.Progress != nil {
				t.Logf("Job %s progress: %d/%d - %s", jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name          string
	Query         services.SearchQuery
	ExpectedCount int
	ExpectedFirst string // Expected key of the first hit
	ValidateFunc  func(t *testing.T, results *services.SearchResult)
}

// RunSearchTests runs a suite of search tests against an index
func RunSearchTests(t *testing.T, indexAccessor services.IndexAccessor, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			results, err := indexAccessor.Search(tt.Query)
			require.NoError(t, err, "Search should not fail")

			assert.Equal(t, tt.ExpectedCount, results.Total, "Result count should match")

			if tt.ExpectedFirst != "" {
				require.NotEmpty(t, results.Hits, "Expected at least one hit")
				assert.Equal(t, tt.ExpectedFirst, results.Hits[0].Key, "First result should match expected")
			}

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, &results)
			}
		})
	}
}
