package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-doc-search/model"
)

// JobStats counts the jobs of one job type or of one index.
type JobStats struct {
	Created         int64         `json:"created"`
	Completed       int64         `json:"completed"`
	Failed          int64         `json:"failed"`
	AverageDuration time.Duration `json:"average_duration_ns"`
}

// JobMetricsData is a point-in-time copy of the job counters.
type JobMetricsData struct {
	JobsCreated          int64                      `json:"jobs_created"`
	JobsCompleted        int64                      `json:"jobs_completed"`
	JobsFailed           int64                      `json:"jobs_failed"`
	AverageExecutionTime time.Duration              `json:"average_execution_time_ns"`
	Active               int64                      `json:"active"`
	ByType               map[model.JobType]JobStats `json:"by_type"`
	ByIndex              map[string]JobStats        `json:"by_index"`
	JobsByStatus         map[model.JobStatus]int64  `json:"jobs_by_status"`
	LastUpdated          time.Time                  `json:"last_updated"`
}

type jobCounter struct {
	created, completed, failed int64
	totalDuration              time.Duration
}

func (c *jobCounter) stats() JobStats {
	s := JobStats{Created: c.created, Completed: c.completed, Failed: c.failed}
	if c.completed > 0 {
		s.AverageDuration = c.totalDuration / time.Duration(c.completed)
	}
	return s
}

// JobMetrics keeps import, build and delete job counters per job type and
// per index. Prometheus gets the same events through the manager observer;
// these counters back the /jobs/metrics breakdown.
type JobMetrics struct {
	mu          sync.RWMutex
	total       jobCounter
	byType      map[model.JobType]*jobCounter
	byIndex     map[string]*jobCounter
	byStatus    map[model.JobStatus]int64
	lastUpdated time.Time
}

// NewJobMetrics creates an empty collector.
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		byType:      make(map[model.JobType]*jobCounter),
		byIndex:     make(map[string]*jobCounter),
		byStatus:    make(map[model.JobStatus]int64),
		lastUpdated: time.Now(),
	}
}

// counters returns the type and index counters, creating them on first use.
// Callers hold m.mu.
func (m *JobMetrics) counters(jobType model.JobType, indexName string) (*jobCounter, *jobCounter) {
	byType, ok := m.byType[jobType]
	if !ok {
		byType = &jobCounter{}
		m.byType[jobType] = byType
	}
	byIndex, ok := m.byIndex[indexName]
	if !ok {
		byIndex = &jobCounter{}
		m.byIndex[indexName] = byIndex
	}
	return byType, byIndex
}

// RecordJobCreated counts a new pending job.
func (m *JobMetrics) RecordJobCreated(jobType model.JobType, indexName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType, byIndex := m.counters(jobType, indexName)
	m.total.created++
	byType.created++
	byIndex.created++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status buckets.
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobCompleted counts a successful job and its run time.
func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, indexName string, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType, byIndex := m.counters(jobType, indexName)
	for _, c := range []*jobCounter{&m.total, byType, byIndex} {
		c.completed++
		c.totalDuration += executionTime
	}
	m.lastUpdated = time.Now()
}

// RecordJobFailed counts a failed job. Cancelled jobs are not failures.
func (m *JobMetrics) RecordJobFailed(jobType model.JobType, indexName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType, byIndex := m.counters(jobType, indexName)
	m.total.failed++
	byType.failed++
	byIndex.failed++
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy of the counters.
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.total.stats()
	data := JobMetricsData{
		JobsCreated:          total.Created,
		JobsCompleted:        total.Completed,
		JobsFailed:           total.Failed,
		AverageExecutionTime: total.AverageDuration,
		Active:               m.activeLocked(),
		ByType:               make(map[model.JobType]JobStats, len(m.byType)),
		ByIndex:              make(map[string]JobStats, len(m.byIndex)),
		JobsByStatus:         make(map[model.JobStatus]int64, len(m.byStatus)),
		LastUpdated:          m.lastUpdated,
	}
	for jobType, c := range m.byType {
		data.ByType[jobType] = c.stats()
	}
	for name, c := range m.byIndex {
		data.ByIndex[name] = c.stats()
	}
	for status, n := range m.byStatus {
		data.JobsByStatus[status] = n
	}
	return data
}

// GetSuccessRate returns completed / (completed + failed), 1.0 before any
// job finished.
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	finished := m.total.completed + m.total.failed
	if finished == 0 {
		return 1.0
	}
	return float64(m.total.completed) / float64(finished)
}

// GetCurrentWorkload returns the number of pending and running jobs.
func (m *JobMetrics) GetCurrentWorkload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked()
}

func (m *JobMetrics) activeLocked() int64 {
	return m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning]
}
