package services

import (
	"context"
	"io"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/jobs"
	"github.com/gcbaptista/go-doc-search/model"
)

// Hit kinds
const (
	HitDocument = "document"
	HitObject   = "object"
)

// Hit is one ranked search result: either a documentation page or a
// documented object.
type Hit struct {
	Kind     string                `json:"kind"`  // HitDocument or HitObject
	Key      string                `json:"key"`   // docname or qualified object name
	Title    string                `json:"title"` // page title, or qualified name for objects
	Link     string                `json:"link"`  // page URL relative to the documentation root
	Score    int                   `json:"score"` // sum of the matched posting weights
	Document *model.DocumentRecord `json:"document"`
	Object   *model.ObjectRecord   `json:"object,omitempty"`
	Matches  map[string]string     `json:"matches,omitempty"` // query token -> field it matched in
}

type SearchResult struct {
	Hits     []Hit    `json:"hits"`
	Tokens   []string `json:"tokens"` // normalized query tokens
	Total    int      `json:"total"`  // all matches; only the first MaxResults can be paged through
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Took     int64    `json:"took"`     // milliseconds
	QueryId  string   `json:"query_id"` // unique UUID for this search query

	// Suggestions maps unmatched tokens to close indexed terms; only set
	// when nothing matched.
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

type SearchQuery struct {
	QueryString string `json:"query"`
	Kind        string `json:"kind,omitempty"` // Optional: restrict hits to documents or objects
	Page        int    `json:"page,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// MultiSearchQuery represents a request to execute multiple named search queries
type MultiSearchQuery struct {
	Queries  []NamedSearchQuery `json:"queries"`
	Page     int                `json:"page,omitempty"`
	PageSize int                `json:"page_size,omitempty"`
}

// NamedSearchQuery represents a single named search query within a multi-search request
type NamedSearchQuery struct {
	Name  string `json:"name"`
	Query string `json:"query"`
	Kind  string `json:"kind,omitempty"`
}

// MultiSearchResult represents the response from a multi-search operation
type MultiSearchResult struct {
	Results          map[string]SearchResult `json:"results"`
	TotalQueries     int                     `json:"total_queries"`
	ProcessingTimeMs float64                 `json:"processing_time_ms"`
}

// Searcher defines operations for querying an index. Query never fails:
// empty, malformed and unmatched queries yield an empty slice.
type Searcher interface {
	Query(raw string) []Hit
	Search(query SearchQuery) (SearchResult, error)
}

// MultiSearcher defines operations for performing multiple queries in a single request
type MultiSearcher interface {
	MultiSearch(ctx context.Context, query MultiSearchQuery) (*MultiSearchResult, error)
}

// TermLookup exposes the raw term table of an index.
type TermLookup interface {
	LookupTerm(term string) []Hit
	PrefixTerms(prefix string, limit int) []string
}

// Resolver resolves documents and objects by name. Unknown names are
// not-found errors, distinct from empty results.
type Resolver interface {
	Document(docName string) (model.DocumentRecord, error)
	Object(qualifiedName string) (model.ObjectRecord, error)
	ChildrenOf(qualifiedName string) ([]model.ObjectRecord, error)
}

type IndexAccessor interface {
	Searcher
	MultiSearcher
	TermLookup
	Resolver
	Settings() config.IndexSettings
	Snapshot() *index.Snapshot
}

// IndexManager manages the lifecycle of indexes. Every import or build
// publishes a complete new snapshot; readers never see a partial index.
type IndexManager interface {
	ImportSphinx(name string, r io.Reader, settings *config.IndexSettings) error
	ImportFromSource(ctx context.Context, name, location string, settings *config.IndexSettings) error
	BuildIndex(name string, manifest model.BuildManifest, settings *config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error)
	GetIndexSettings(name string) (config.IndexSettings, error)
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	DeleteIndex(name string) error
	ListIndexes() []string
	PersistIndexData(name string) error
	ExportSphinx(name string, w io.Writer) error
}

// IndexManagerWithAsync extends IndexManager with background job variants.
type IndexManagerWithAsync interface {
	IndexManager
	ImportFromSourceAsync(name, location string, settings *config.IndexSettings) (string, error) // Returns job ID
	BuildIndexAsync(name string, manifest model.BuildManifest, settings *config.IndexSettings) (string, error)
	DeleteIndexAsync(name string) (string, error)
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
	GetJobMetrics() jobs.JobMetricsData
	GetJobSuccessRate() float64
	GetCurrentWorkload() int64
}
