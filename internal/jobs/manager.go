package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/logger"
	"github.com/gcbaptista/go-doc-search/model"
)

// DefaultRetention is how long finished jobs are kept when no retention is configured.
const DefaultRetention = 24 * time.Hour

// Observer is notified whenever a job reaches a new status.
type Observer func(jobType model.JobType, status model.JobStatus)

// Manager handles background job execution and tracking
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*model.Job
	workers   chan struct{} // Limits concurrent jobs
	retention time.Duration
	observer  Observer
	log       *slog.Logger

	ctx      context.Context // cancelled by Stop; parent of every job context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
	metrics  *JobMetrics
}

// NewManager creates a new job manager with specified worker count.
// A non-positive retention falls back to DefaultRetention.
func NewManager(maxWorkers int, retention time.Duration) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:      make(map[string]*model.Job),
		workers:   make(chan struct{}, maxWorkers),
		retention: retention,
		log:       logger.WithComponent("jobs"),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   NewJobMetrics(),
	}
}

// SetObserver registers fn to be told about status changes. Call before Start.
func (m *Manager) SetObserver(fn Observer) {
	m.observer = fn
}

// Start begins the job manager and starts background cleanup
func (m *Manager) Start() {
	m.log.Info("job manager started", "max_workers", cap(m.workers), "retention", m.retention)

	m.wg.Add(1)
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to return. It is safe to call
// more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.log.Info("job manager stopped")
	})
}

// CreateJob creates a new job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.metrics.RecordJobCreated(jobType, indexName)
	m.notify(jobType, model.JobStatusPending)
	m.log.Debug("created job", "job_id", job.ID, "type", job.Type, "index", job.IndexName)
	return job.ID
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns the jobs of an index, oldest first, optionally filtered by status
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if job.IndexName != indexName {
			continue
		}
		if status == nil || job.Status == *status {
			result = append(result, copyJob(job))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ExecuteJob schedules a pending job. jobFunc runs in its own goroutine once a
// worker slot is free; its context is cancelled when the manager stops.
func (m *Manager) ExecuteJob(jobID string, jobFunc func(ctx context.Context, job *model.Job) error) error {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	m.mu.Unlock()

	if m.ctx.Err() != nil {
		m.updateJobStatus(jobID, model.JobStatusCancelled, "Job manager shutting down")
		return fmt.Errorf("job manager is shutting down")
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.updateJobStatus(jobID, model.JobStatusCancelled, "Job manager shutting down")
			return
		}
		defer func() { <-m.workers }()

		m.mu.Lock()
		now := time.Now()
		job.StartedAt = &now
		m.mu.Unlock()
		m.updateJobStatus(jobID, model.JobStatusRunning, "")

		current, err := m.GetJob(jobID)
		if err != nil {
			return
		}

		startTime := time.Now()
		err = jobFunc(m.ctx, current)
		executionTime := time.Since(startTime)

		switch {
		case err != nil && m.ctx.Err() != nil:
			m.updateJobStatus(jobID, model.JobStatusCancelled, err.Error())
			m.log.Warn("job cancelled", "job_id", jobID, "error", err)
		case err != nil:
			m.metrics.RecordJobFailed(current.Type, current.IndexName)
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error())
			m.log.Error("job failed", "job_id", jobID, "type", current.Type, "duration", executionTime, "error", err)
		default:
			m.metrics.RecordJobCompleted(current.Type, current.IndexName, executionTime)
			m.updateJobStatus(jobID, model.JobStatusCompleted, "")
			m.log.Info("job completed", "job_id", jobID, "type", current.Type, "duration", executionTime)
		}
	}()

	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// updateJobStatus updates the status of a job (internal method)
func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return
	}

	oldStatus := job.Status
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if status.IsTerminal() {
		now := time.Now()
		job.CompletedAt = &now
	}
	jobType := job.Type
	m.mu.Unlock()

	m.metrics.RecordJobStatusChange(oldStatus, status)
	m.notify(jobType, status)
}

func (m *Manager) notify(jobType model.JobType, status model.JobStatus) {
	if m.observer != nil {
		m.observer(jobType, status)
	}
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()

	interval := m.retention / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(m.retention)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than the specified duration
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.log.Info("cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.GetSuccessRate()
}

// GetCurrentWorkload returns the number of currently active jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.GetCurrentWorkload()
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	if job.Metadata != nil {
		jobCopy.Metadata = make(map[string]string, len(job.Metadata))
		for k, v := range job.Metadata {
			jobCopy.Metadata[k] = v
		}
	}
	return &jobCopy
}
