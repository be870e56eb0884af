package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-doc-search/config"
	internalErrors "github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

const workflowsIndex = `Search.setIndex({"docnames":["config","index","utils"],"filenames":["config.rst","index.rst","utils.rst"],"titles":["config module","Workflows","utils module"],"terms":{"config":[0,1],"binvol":0,"pipelin":1,"header":2},"objects":{"":[[0,0,0,"-","config"],[2,0,0,"-","utils"]],"config":[[0,1,1,"","Config"]],"config.Config":[[0,2,1,"","binvol"]]},"objtypes":{"0":"py:module","1":"py:class","2":"py:attribute"},"objnames":{"0":["py","module","Python module"],"1":["py","class","Python class"],"2":["py","attribute","Python attribute"]},"titleterms":{"config":0,"modul":[0,2],"util":2,"workflow":1},"envversion":{"sphinx":57},"alltitles":{"Contents:":[[1,null]]},"indexentries":{}})`

// fakeSource serves fixed documents by location.
type fakeSource map[string]string

func (f fakeSource) Fetch(_ context.Context, location string) (io.ReadCloser, error) {
	body, ok := f[location]
	if !ok {
		return nil, internalErrors.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func newTestEngine(t *testing.T, dataDir string) *Engine {
	t.Helper()
	eng, err := NewEngine(Options{
		DataDir:    dataDir,
		MaxWorkers: 2,
		Source:     fakeSource{"s3://docs/searchindex.js": workflowsIndex, "broken.js": "Search.setIndex({"},
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func importWorkflows(t *testing.T, eng *Engine) services.IndexAccessor {
	t.Helper()
	require.NoError(t, eng.ImportSphinx("workflows", strings.NewReader(workflowsIndex), nil))
	accessor, err := eng.GetIndex("workflows")
	require.NoError(t, err)
	return accessor
}

func waitForJob(t *testing.T, eng *Engine, jobID string) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = eng.GetJob(jobID)
		return err == nil && job.Status.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestEngine_ImportSphinxAndQuery(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())
	accessor := importWorkflows(t, eng)

	hits := accessor.Query("config")
	require.NotEmpty(t, hits)
	assert.Equal(t, "config", hits[0].Key, "the page titled config ranks first")

	obj, err := accessor.Object("config.Config.binvol")
	require.NoError(t, err)
	assert.Equal(t, model.KindAttribute, obj.Kind)

	children, err := accessor.ChildrenOf("")
	require.NoError(t, err)
	assert.Len(t, children, 2)

	_, err = accessor.Document("missing")
	assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)

	settings, err := eng.GetIndexSettings("workflows")
	require.NoError(t, err)
	assert.Equal(t, "workflows", settings.Name)
	assert.Equal(t, config.DefaultTitleWeight, settings.Weights.Title)

	assert.Equal(t, []string{"workflows"}, eng.ListIndexes())
}

func TestEngine_ImportRejectsBadInput(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())

	err := eng.ImportSphinx("workflows", strings.NewReader("Search.setIndex({"), nil)
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	err = eng.ImportSphinx("../escape", strings.NewReader(workflowsIndex), nil)
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	mismatched := config.IndexSettings{Name: "other"}
	err = eng.ImportSphinx("workflows", strings.NewReader(workflowsIndex), &mismatched)
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	assert.Empty(t, eng.ListIndexes(), "failed imports must not publish anything")
}

func TestEngine_ReplaceKeepsOldStateForReaders(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())
	accessor := importWorkflows(t, eng)
	before := accessor.Snapshot()

	manifest := model.BuildManifest{Documents: []model.DocumentInput{{DocName: "intro", Title: "Intro", Body: "hello"}}}
	require.NoError(t, eng.BuildIndex("workflows", manifest, nil))

	after := accessor.Snapshot()
	assert.NotSame(t, before, after)
	assert.Equal(t, 3, before.Documents.Len(), "the old snapshot is untouched")
	assert.Equal(t, 1, after.Documents.Len())
	assert.Empty(t, accessor.Query("binvol"))
	assert.NotEmpty(t, accessor.Query("hello"))
}

func TestEngine_ConcurrentQueriesDuringRebuild(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())
	accessor := importWorkflows(t, eng)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// every published version has exactly one page titled config
				hits := accessor.Query("config")
				if len(hits) == 0 {
					t.Error("query saw an empty index during rebuild")
					return
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, eng.ImportSphinx("workflows", strings.NewReader(workflowsIndex), nil))
	}
	close(stop)
	wg.Wait()
}

func TestEngine_PersistAndReload(t *testing.T) {
	dataDir := t.TempDir()
	eng := newTestEngine(t, dataDir)
	original := importWorkflows(t, eng).Snapshot()
	require.NoError(t, eng.PersistIndexData("workflows"))
	eng.Close()

	assert.FileExists(t, filepath.Join(dataDir, "workflows", settingsFile))
	assert.FileExists(t, filepath.Join(dataDir, "workflows", snapshotFile))

	// a stray directory without a snapshot is skipped, not fatal
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "junk"), 0750))

	reloaded := newTestEngine(t, dataDir)
	assert.Equal(t, []string{"workflows"}, reloaded.ListIndexes())

	accessor, err := reloaded.GetIndex("workflows")
	require.NoError(t, err)
	assert.Equal(t, original.Fingerprint, accessor.Snapshot().Fingerprint)
	assert.Equal(t, original.Terms.Terms(), accessor.Snapshot().Terms.Terms())
	assert.NotEmpty(t, accessor.Query("binvol"))
}

func TestEngine_DeleteIndex(t *testing.T) {
	dataDir := t.TempDir()
	eng := newTestEngine(t, dataDir)
	importWorkflows(t, eng)

	require.NoError(t, eng.DeleteIndex("workflows"))
	assert.NoDirExists(t, filepath.Join(dataDir, "workflows"))

	_, err := eng.GetIndex("workflows")
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
	assert.ErrorIs(t, eng.DeleteIndex("workflows"), internalErrors.ErrIndexNotFound)
}

func TestEngine_ExportSphinx(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())
	importWorkflows(t, eng)

	var buf bytes.Buffer
	require.NoError(t, eng.ExportSphinx("workflows", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Search.setIndex("))

	// the export imports back to the same content
	require.NoError(t, eng.ImportSphinx("copy", &buf, nil))
	a, _ := eng.GetIndex("workflows")
	b, _ := eng.GetIndex("copy")
	assert.Equal(t, a.Snapshot().Fingerprint, b.Snapshot().Fingerprint)

	assert.ErrorIs(t, eng.ExportSphinx("missing", &buf), internalErrors.ErrIndexNotFound)
}

func TestEngine_UpdateIndexSettings(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())
	accessor := importWorkflows(t, eng)

	newSettings := config.IndexSettings{Weights: config.Weights{Title: 40, Object: 20, Body: 2}, MaxResults: 1}
	require.NoError(t, eng.UpdateIndexSettings("workflows", newSettings))

	hits := accessor.Query("config")
	require.Len(t, hits, 1)
	assert.Equal(t, 40, hits[0].Score)

	inverted := config.IndexSettings{Weights: config.Weights{Title: 1, Object: 2, Body: 3}}
	assert.ErrorIs(t, eng.UpdateIndexSettings("workflows", inverted), internalErrors.ErrInvalidInput)
	assert.ErrorIs(t, eng.UpdateIndexSettings("missing", newSettings), internalErrors.ErrIndexNotFound)
}

func TestEngine_AsyncOperations(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())

	t.Run("import from source", func(t *testing.T) {
		jobID, err := eng.ImportFromSourceAsync("workflows", "s3://docs/searchindex.js", nil)
		require.NoError(t, err)

		job := waitForJob(t, eng, jobID)
		assert.Equal(t, model.JobStatusCompleted, job.Status, job.Error)
		assert.Equal(t, model.JobTypeImportIndex, job.Type)
		assert.Equal(t, "s3://docs/searchindex.js", job.Metadata["source"])

		_, err = eng.GetIndex("workflows")
		assert.NoError(t, err)
	})

	t.Run("failing import", func(t *testing.T) {
		jobID, err := eng.ImportFromSourceAsync("broken", "broken.js", nil)
		require.NoError(t, err)

		job := waitForJob(t, eng, jobID)
		assert.Equal(t, model.JobStatusFailed, job.Status)
		assert.Contains(t, job.Error, "malformed")
	})

	t.Run("missing source", func(t *testing.T) {
		jobID, err := eng.ImportFromSourceAsync("ghost", "s3://docs/missing.js", nil)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, waitForJob(t, eng, jobID).Status)
	})

	t.Run("build", func(t *testing.T) {
		manifest := model.BuildManifest{
			Documents: []model.DocumentInput{{DocName: "intro", Title: "Intro", Body: "hello"}},
			Objects:   []model.ObjectInput{{QualifiedName: "hello", Kind: "function", DocName: "intro"}},
		}
		jobID, err := eng.BuildIndexAsync("native", manifest, nil)
		require.NoError(t, err)
		job := waitForJob(t, eng, jobID)
		assert.Equal(t, model.JobStatusCompleted, job.Status, job.Error)
		assert.Equal(t, 2, job.Progress.Total)
	})

	t.Run("delete", func(t *testing.T) {
		jobID, err := eng.DeleteIndexAsync("native")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, waitForJob(t, eng, jobID).Status)

		_, err = eng.DeleteIndexAsync("native")
		assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
	})

	t.Run("invalid name fails before a job exists", func(t *testing.T) {
		_, err := eng.ImportFromSourceAsync("a/b", "s3://docs/searchindex.js", nil)
		assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput))
	})

	assert.Len(t, eng.ListJobs("workflows", nil), 1)
	metrics := eng.GetJobMetrics()
	assert.GreaterOrEqual(t, metrics.JobsFailed, int64(2))
}

func TestEngine_NoSourceConfigured(t *testing.T) {
	eng, err := NewEngine(Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer eng.Close()

	err = eng.ImportFromSource(context.Background(), "workflows", "s3://docs/searchindex.js", nil)
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	_, err = NewEngine(Options{})
	assert.Error(t, err)
}

func TestEngine_DisabledStopWordsSurviveRestart(t *testing.T) {
	const articles = `{"docnames":["intro"],"filenames":["intro.rst"],"titles":["Intro"],"terms":{"the":0,"pipelin":0}}`
	dataDir := t.TempDir()

	eng := newTestEngine(t, dataDir)
	require.NoError(t, eng.ImportSphinx("articles", strings.NewReader(articles), &config.IndexSettings{StopWords: []string{}}))
	accessor, err := eng.GetIndex("articles")
	require.NoError(t, err)
	require.Len(t, accessor.Query("the"), 1)
	eng.Close()

	reloaded := newTestEngine(t, dataDir)
	accessor, err = reloaded.GetIndex("articles")
	require.NoError(t, err)
	assert.Len(t, accessor.Query("the"), 1, "a restart must not bring default stop words back")
	assert.Empty(t, accessor.Settings().StopWords)
	assert.True(t, accessor.Settings().StopWordsDisabled)
}

func TestEngine_ConcurrentImportAndDeleteKeepDiskInSync(t *testing.T) {
	dataDir := t.TempDir()
	eng := newTestEngine(t, dataDir)
	importWorkflows(t, eng)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = eng.ImportSphinx("workflows", strings.NewReader(workflowsIndex), nil)
		}()
		go func() {
			defer wg.Done()
			_ = eng.DeleteIndex("workflows")
		}()
	}
	wg.Wait()

	_, err := eng.GetIndex("workflows")
	served := err == nil
	_, statErr := os.Stat(filepath.Join(dataDir, "workflows", snapshotFile))
	assert.Equal(t, served, statErr == nil, "served index and data directory disagree")
	eng.Close()

	reloaded := newTestEngine(t, dataDir)
	_, err = reloaded.GetIndex("workflows")
	assert.Equal(t, served, err == nil, "index presence changed across restart")
}
