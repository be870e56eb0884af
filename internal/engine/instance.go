package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/metrics"
	"github.com/gcbaptista/go-doc-search/internal/search"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

// indexState is one published version of an index.
type indexState struct {
	snapshot *index.Snapshot
	searcher *search.Service
}

// IndexInstance is a named index. Its current state is replaced wholesale on
// every rebuild, so a reader holding the old state keeps a consistent view.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	name    string
	state   atomic.Pointer[indexState]
	metrics *metrics.Metrics
}

var _ services.IndexAccessor = (*IndexInstance)(nil)

// NewIndexInstance creates an instance serving snap.
func NewIndexInstance(snap *index.Snapshot, m *metrics.Metrics) (*IndexInstance, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	instance := &IndexInstance{name: snap.Settings.Name, metrics: m}
	if err := instance.swap(snap); err != nil {
		return nil, err
	}
	return instance, nil
}

// swap publishes snap as the current state.
func (i *IndexInstance) swap(snap *index.Snapshot) error {
	if snap.Settings.Name != i.name {
		return fmt.Errorf("snapshot of index '%s' cannot replace index '%s'", snap.Settings.Name, i.name)
	}
	searcher, err := search.NewService(snap)
	if err != nil {
		return fmt.Errorf("failed to create search service for index '%s': %w", i.name, err)
	}
	i.state.Store(&indexState{snapshot: snap, searcher: searcher})

	stats := snap.Stats()
	i.metrics.SetIndexSize(i.name, stats.Terms, stats.Documents, stats.Objects)
	return nil
}

func (i *IndexInstance) current() *indexState {
	return i.state.Load()
}

// Name returns the index name.
func (i *IndexInstance) Name() string {
	return i.name
}

// Query delegates to the current searcher.
func (i *IndexInstance) Query(raw string) []services.Hit {
	start := time.Now()
	hits := i.current().searcher.Query(raw)
	i.metrics.ObserveSearch(i.name, time.Since(start).Seconds(), len(hits))
	return hits
}

// Search delegates to the current searcher and records the query.
func (i *IndexInstance) Search(query services.SearchQuery) (services.SearchResult, error) {
	start := time.Now()
	result, err := i.current().searcher.Search(query)
	if err != nil {
		return services.SearchResult{}, err
	}
	i.metrics.ObserveSearch(i.name, time.Since(start).Seconds(), result.Total)
	return result, nil
}

// MultiSearch runs every query against the same state.
func (i *IndexInstance) MultiSearch(ctx context.Context, query services.MultiSearchQuery) (*services.MultiSearchResult, error) {
	return i.current().searcher.MultiSearch(ctx, query)
}

// LookupTerm returns the raw postings of term as hits.
func (i *IndexInstance) LookupTerm(term string) []services.Hit {
	return i.current().searcher.LookupTerm(term)
}

// PrefixTerms lists indexed terms starting with prefix.
func (i *IndexInstance) PrefixTerms(prefix string, limit int) []string {
	return i.current().searcher.PrefixTerms(prefix, limit)
}

// Document resolves a page by docname.
func (i *IndexInstance) Document(docName string) (model.DocumentRecord, error) {
	return i.current().searcher.Document(docName)
}

// Object resolves an object by qualified name.
func (i *IndexInstance) Object(qualifiedName string) (model.ObjectRecord, error) {
	rec, err := i.current().searcher.Object(qualifiedName)
	if err != nil {
		return model.ObjectRecord{}, fmt.Errorf("index '%s': %w", i.name, err)
	}
	return rec, nil
}

// ChildrenOf lists the objects declared directly inside qualifiedName.
func (i *IndexInstance) ChildrenOf(qualifiedName string) ([]model.ObjectRecord, error) {
	children, err := i.current().searcher.ChildrenOf(qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("index '%s': %w", i.name, err)
	}
	return children, nil
}

// Settings returns the configuration settings for this index.
func (i *IndexInstance) Settings() config.IndexSettings {
	return i.current().snapshot.Settings.Clone()
}

// Snapshot returns the current snapshot. It must be treated as read-only.
func (i *IndexInstance) Snapshot() *index.Snapshot {
	return i.current().snapshot
}
