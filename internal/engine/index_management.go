package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/indexing"
	"github.com/gcbaptista/go-doc-search/internal/sphinx"
	"github.com/gcbaptista/go-doc-search/model"
)

// Build sources, used as metric labels.
const (
	sourceSphinx   = "sphinx"
	sourceManifest = "manifest"
	sourceSettings = "settings"
)

// ImportSphinx decodes a Sphinx search index and publishes it as name,
// replacing any previous version.
func (e *Engine) ImportSphinx(name string, r io.Reader, settings *config.IndexSettings) error {
	resolved, err := e.resolveSettings(name, settings)
	if err != nil {
		return err
	}
	snap, err := sphinx.Decode(r, resolved)
	e.metrics.ObserveBuild(sourceSphinx, err)
	if err != nil {
		return fmt.Errorf("importing index '%s': %w", name, err)
	}
	return e.publish(snap)
}

// ImportFromSource fetches a Sphinx search index from location and imports it.
func (e *Engine) ImportFromSource(ctx context.Context, name, location string, settings *config.IndexSettings) error {
	if e.source == nil {
		return errors.NewValidationError("source", "no import sources are configured")
	}
	rc, err := e.source.Fetch(ctx, location)
	if err != nil {
		return fmt.Errorf("fetching '%s': %w", location, err)
	}
	defer rc.Close()

	return e.ImportSphinx(name, rc, settings)
}

// BuildIndex builds name from a native manifest and publishes it.
func (e *Engine) BuildIndex(name string, manifest model.BuildManifest, settings *config.IndexSettings) error {
	resolved, err := e.resolveSettings(name, settings)
	if err != nil {
		return err
	}
	snap, err := indexing.BuildFromManifest(resolved, manifest)
	e.metrics.ObserveBuild(sourceManifest, err)
	if err != nil {
		return fmt.Errorf("building index '%s': %w", name, err)
	}
	return e.publish(snap)
}

// publish persists snap and then makes it the current state of its index.
// Readers see either the old or the new snapshot, never a mix.
func (e *Engine) publish(snap *index.Snapshot) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	name := snap.Settings.Name
	if err := e.persistSnapshot(snap); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if instance, exists := e.indexes[name]; exists {
		if err := instance.swap(snap); err != nil {
			return err
		}
	} else {
		instance, err := NewIndexInstance(snap, e.metrics)
		if err != nil {
			return err
		}
		e.indexes[name] = instance
	}

	stats := snap.Stats()
	e.log.Info("index published", "index", name, "documents", stats.Documents, "objects", stats.Objects, "terms", stats.Terms, "fingerprint", fmt.Sprintf("%08x", snap.Fingerprint))
	return nil
}

// resolveSettings picks the settings for a build of name: the given ones,
// else those of the existing index, else the engine defaults.
func (e *Engine) resolveSettings(name string, settings *config.IndexSettings) (config.IndexSettings, error) {
	var resolved config.IndexSettings
	switch {
	case settings != nil:
		if settings.Name != "" && settings.Name != name {
			return config.IndexSettings{}, errors.NewValidationError("name", fmt.Sprintf("settings name '%s' does not match index '%s'", settings.Name, name))
		}
		resolved = settings.Clone()
	default:
		if instance, err := e.instance(name); err == nil {
			resolved = instance.Settings()
		} else {
			resolved = e.defaults.Clone()
		}
	}

	resolved.Name = name
	resolved.ApplyDefaults()
	if problems := resolved.Validate(); len(problems) > 0 {
		return config.IndexSettings{}, errors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	return resolved, nil
}

// DeleteIndex deletes an index and its data from disk. It is ordered with
// publish so a build that has persisted is either swapped in before the
// delete or fully removed by it.
func (e *Engine) DeleteIndex(name string) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; !exists {
		return errors.NewIndexNotFoundError(name)
	}
	delete(e.indexes, name)
	e.metrics.DeleteIndex(name)

	indexPath := e.indexPath(name)
	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to remove index directory %s: %w", indexPath, err)
	}

	e.log.Info("index deleted", "index", name)
	return nil
}

// ExportSphinx writes the current snapshot of name as searchindex.js.
func (e *Engine) ExportSphinx(name string, w io.Writer) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}
	return sphinx.Encode(w, instance.Snapshot())
}
