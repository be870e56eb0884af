package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/persistence"
)

const (
	dataDirPerm  = 0750
	settingsFile = "settings.gob"
	snapshotFile = "snapshot.gob.zst"
)

func (e *Engine) indexPath(name string) string {
	return filepath.Join(e.dataDir, name)
}

// loadIndexesFromDisk loads every index directory of the data directory
// concurrently. Unreadable indexes are logged and skipped.
func (e *Engine) loadIndexesFromDisk() error {
	e.log.Info("loading indexes from disk", "data_dir", e.dataDir)

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		return fmt.Errorf("reading data directory %s: %w", e.dataDir, err)
	}

	var mu sync.Mutex
	loaded := make(map[string]*IndexInstance)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		g.Go(func() error {
			instance, err := e.loadIndex(name)
			if err != nil {
				e.log.Warn("skipping index", "index", name, "error", err)
				return nil
			}
			mu.Lock()
			loaded[name] = instance
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	for name, instance := range loaded {
		e.indexes[name] = instance
	}
	e.mu.Unlock()

	e.log.Info("indexes loaded", "count", len(loaded))
	return nil
}

// loadIndex reads and verifies one persisted index.
func (e *Engine) loadIndex(name string) (*IndexInstance, error) {
	indexPath := e.indexPath(name)

	var settings config.IndexSettings
	if err := persistence.LoadGob(filepath.Join(indexPath, settingsFile), &settings); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings.Name != name {
		return nil, fmt.Errorf("index name in settings ('%s') does not match directory name ('%s')", settings.Name, name)
	}

	snap := &index.Snapshot{}
	if err := persistence.LoadCompressedGob(filepath.Join(indexPath, snapshotFile), snap); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot file missing")
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	settings.ApplyDefaults()
	snap.Settings = settings
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if got := snap.ComputeFingerprint(); got != snap.Fingerprint {
		return nil, fmt.Errorf("snapshot fingerprint mismatch: stored %08x, computed %08x", snap.Fingerprint, got)
	}

	instance, err := NewIndexInstance(snap, e.metrics)
	if err != nil {
		return nil, err
	}
	e.log.Debug("loaded index", "index", name, "documents", snap.Documents.Len(), "objects", snap.Objects.Len())
	return instance, nil
}

// PersistIndexData writes the current snapshot of an index to disk.
func (e *Engine) PersistIndexData(name string) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}
	return e.persistSnapshot(instance.Snapshot())
}

// persistSnapshot writes the settings and the compressed snapshot of snap.
func (e *Engine) persistSnapshot(snap *index.Snapshot) error {
	name := snap.Settings.Name
	indexPath := e.indexPath(name)
	if err := os.MkdirAll(indexPath, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for index %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(indexPath, settingsFile), snap.Settings); err != nil {
		return fmt.Errorf("failed to save settings for index %s: %w", name, err)
	}
	if err := persistence.SaveCompressedGob(filepath.Join(indexPath, snapshotFile), snap); err != nil {
		return fmt.Errorf("failed to save snapshot for index %s: %w", name, err)
	}
	return nil
}
