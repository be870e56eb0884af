package indexing

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/model"
)

// BuildFromManifest builds a snapshot from a native manifest. Documents are
// registered first so objects may reference any page of the manifest.
func BuildFromManifest(settings config.IndexSettings, manifest model.BuildManifest) (*index.Snapshot, error) {
	b, err := NewBuilder(settings)
	if err != nil {
		return nil, err
	}

	for i, page := range manifest.Documents {
		if _, err := b.AddPage(page); err != nil {
			return nil, fmt.Errorf("document %d ('%s'): %w", i, page.DocName, err)
		}
	}
	for i, obj := range manifest.Objects {
		if _, err := b.AddObjectInput(obj); err != nil {
			return nil, fmt.Errorf("object %d ('%s'): %w", i, obj.QualifiedName, err)
		}
	}
	return b.Build()
}

// DecodeManifest reads a JSON build manifest.
func DecodeManifest(r io.Reader) (model.BuildManifest, error) {
	var manifest model.BuildManifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return model.BuildManifest{}, fmt.Errorf("decoding build manifest: %w", err)
	}
	return manifest, nil
}
