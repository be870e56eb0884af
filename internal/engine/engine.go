// Package engine manages named documentation indexes: it imports and builds
// snapshots, publishes them atomically, persists them to the data directory
// and runs long operations as background jobs.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/jobs"
	"github.com/gcbaptista/go-doc-search/internal/logger"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/internal/source"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

// Options configures an Engine.
type Options struct {
	DataDir      string
	MaxWorkers   int
	JobRetention time.Duration
	Defaults     config.IndexSettings // applied when an import carries no settings
	Source       source.Fetcher       // resolves import locations; nil disables ImportFromSource
	Metrics      *metrics.Metrics     // optional
}

// Engine manages multiple documentation indexes.
// It implements the services.IndexManagerWithAsync and services.JobManager interfaces.
type Engine struct {
	mu        sync.RWMutex
	indexes   map[string]*IndexInstance
	publishMu sync.Mutex // orders persist+swap of builds against each other and deletes

	dataDir    string
	defaults   config.IndexSettings
	source     source.Fetcher
	metrics    *metrics.Metrics
	jobManager *jobs.Manager
	log        *slog.Logger
}

var (
	_ services.IndexManagerWithAsync = (*Engine)(nil)
	_ services.JobManager            = (*Engine)(nil)
)

// NewEngine creates the engine, loads every index found in the data
// directory and starts the job manager. Call Close to stop it.
func NewEngine(opts Options) (*Engine, error) {
	if opts.DataDir == "" {
		return nil, errors.NewValidationError("data_dir", "data directory is required")
	}
	if err := os.MkdirAll(opts.DataDir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", opts.DataDir, err)
	}

	e := &Engine{
		indexes:    make(map[string]*IndexInstance),
		dataDir:    opts.DataDir,
		defaults:   opts.Defaults.Clone(),
		source:     opts.Source,
		metrics:    opts.Metrics,
		jobManager: jobs.NewManager(opts.MaxWorkers, opts.JobRetention),
		log:        logger.WithComponent("engine"),
	}
	e.jobManager.SetObserver(func(jobType model.JobType, status model.JobStatus) {
		if status.IsTerminal() {
			e.metrics.ObserveJob(string(jobType), string(status))
		}
	})

	if err := e.loadIndexesFromDisk(); err != nil {
		return nil, err
	}
	e.jobManager.Start()
	return e, nil
}

// Close stops the job manager, cancelling running jobs.
func (e *Engine) Close() {
	e.jobManager.Stop()
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	instance, err := e.instance(name)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves the settings for a specific index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	instance, err := e.instance(name)
	if err != nil {
		return config.IndexSettings{}, err
	}
	return instance.Settings(), nil
}

// ListIndexes returns the names of all loaded indexes in sorted order.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJob retrieves a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns the jobs of an index, optionally filtered by status.
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// GetJobMetrics returns job performance metrics.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetJobSuccessRate returns the share of finished jobs that completed.
func (e *Engine) GetJobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// GetCurrentWorkload returns the number of running jobs.
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}
