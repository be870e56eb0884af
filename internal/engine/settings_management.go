package engine

import (
	"fmt"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/indexing"
)

// UpdateIndexSettings rebuilds an index under new settings and publishes the
// result. Postings are re-weighted; terms already indexed are kept as is, so
// new stop words only affect later imports and queries.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}
	resolved, err := e.resolveSettings(name, &newSettings)
	if err != nil {
		return err
	}

	snap, err := indexing.Rebuild(instance.Snapshot(), resolved)
	e.metrics.ObserveBuild(sourceSettings, err)
	if err != nil {
		return fmt.Errorf("rebuilding index '%s': %w", name, err)
	}
	return e.publish(snap)
}
