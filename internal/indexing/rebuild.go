package indexing

import (
	"fmt"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
)

// Rebuild builds a new snapshot holding the content of snap under new
// settings. Every posting is re-weighted for its field; documents and objects
// keep their ids.
func Rebuild(snap *index.Snapshot, settings config.IndexSettings) (*index.Snapshot, error) {
	if snap == nil || snap.Terms == nil || snap.Documents == nil || snap.Objects == nil {
		return nil, fmt.Errorf("cannot rebuild an incomplete snapshot")
	}
	b, err := NewBuilder(settings)
	if err != nil {
		return nil, err
	}

	for _, doc := range snap.Documents.All() {
		if _, err := b.AddDocument(doc.DocName, doc.Title, doc.Filename); err != nil {
			return nil, err
		}
	}
	for _, obj := range snap.Objects.All() {
		if _, err := b.AddObject(obj); err != nil {
			return nil, err
		}
	}

	var insertErr error
	snap.Terms.Range(func(term string, postings index.PostingList) bool {
		for _, p := range postings {
			if insertErr = b.AddTerm(term, p.Ref, p.Field); insertErr != nil {
				return false
			}
		}
		return true
	})
	if insertErr != nil {
		return nil, insertErr
	}

	for _, s := range snap.Sections {
		if err := b.AddSection(s.Title, s.DocID, s.Anchor); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.IndexEntries {
		if err := b.AddIndexEntry(e.Text, e.DocID, e.Anchor); err != nil {
			return nil, err
		}
	}
	if err := b.SetEnvVersion(snap.EnvVersion); err != nil {
		return nil, err
	}
	return b.Build()
}
