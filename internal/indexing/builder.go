// Package indexing builds immutable documentation index snapshots.
package indexing

import (
	"fmt"
	"strings"
	"time"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/tokenizer"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/store"
)

// Builder accumulates documents, objects and postings in a single batch pass
// and publishes them as an index.Snapshot. A Builder is not safe for
// concurrent use.
//
// The first failed mutation poisons the builder: later mutations return the
// same error and Build refuses to publish, so a half-built index never
// escapes.
type Builder struct {
	settings  config.IndexSettings
	stopWords tokenizer.StopWords

	terms      *index.TermTable
	documents  *store.DocumentRegistry
	objects    *store.ObjectTable
	sections   []model.Section
	entries    []model.IndexEntry
	envVersion map[string]int

	err   error
	built bool
}

// NewBuilder returns a builder for an index with the given settings.
// Defaults are applied before the settings are validated.
func NewBuilder(settings config.IndexSettings) (*Builder, error) {
	settings = settings.Clone()
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	return &Builder{
		settings:   settings,
		stopWords:  settings.StopWordSet(),
		terms:      index.NewTermTable(),
		documents:  store.NewDocumentRegistry(),
		objects:    store.NewObjectTable(),
		envVersion: make(map[string]int),
	}, nil
}

// Settings returns the effective settings of the index being built.
func (b *Builder) Settings() config.IndexSettings {
	return b.settings.Clone()
}

// Err returns the failure that poisoned the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// check reports whether the builder still accepts mutations.
func (b *Builder) check() error {
	if b.built {
		return fmt.Errorf("%w: index already built", errors.ErrBuildSealed)
	}
	return b.err
}

// fail records err as the poisoning failure and returns it.
func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

// WeightFor returns the configured relevance weight of a match field.
func (b *Builder) WeightFor(field index.Field) int {
	switch field {
	case index.FieldTitle:
		return b.settings.Weights.Title
	case index.FieldObject:
		return b.settings.Weights.Object
	default:
		return b.settings.Weights.Body
	}
}

// AddDocument registers a page without indexing any text.
func (b *Builder) AddDocument(docName, title, filename string) (model.DocumentRecord, error) {
	if err := b.check(); err != nil {
		return model.DocumentRecord{}, err
	}
	rec, err := b.documents.Register(docName, title, filename)
	if err != nil {
		return model.DocumentRecord{}, b.fail(err)
	}
	return rec, nil
}

// AddPage registers a page and indexes its title and body text.
func (b *Builder) AddPage(page model.DocumentInput) (model.DocumentRecord, error) {
	rec, err := b.AddDocument(page.DocName, page.Title, page.ResolvedFilename())
	if err != nil {
		return model.DocumentRecord{}, err
	}
	ref := index.DocumentRef(rec.ID)
	if err := b.IndexText(ref, index.FieldTitle, page.Title); err != nil {
		return model.DocumentRecord{}, err
	}
	if err := b.IndexText(ref, index.FieldBody, page.Body); err != nil {
		return model.DocumentRecord{}, err
	}
	return rec, nil
}

// IndexText normalizes text and posts every remaining token to ref.
func (b *Builder) IndexText(ref index.Ref, field index.Field, text string) error {
	if err := b.check(); err != nil {
		return err
	}
	weight := b.WeightFor(field)
	for _, token := range tokenizer.Normalize(text, b.stopWords) {
		b.terms.Insert(token, index.Posting{Ref: ref, Field: field, Weight: weight})
	}
	return nil
}

// AddTerm posts an already normalized term to ref. Blank terms are ignored;
// references are checked when the index is built.
func (b *Builder) AddTerm(term string, ref index.Ref, field index.Field) error {
	if err := b.check(); err != nil {
		return err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	b.terms.Insert(term, index.Posting{Ref: ref, Field: field, Weight: b.WeightFor(field)})
	return nil
}

// AddObject registers an object and posts the components of its qualified
// name with object weight. Re-adding an object with the same kind is a no-op.
func (b *Builder) AddObject(rec model.ObjectRecord) (model.ObjectRecord, error) {
	if err := b.check(); err != nil {
		return model.ObjectRecord{}, err
	}
	registered, err := b.objects.RegisterRecord(rec)
	if err != nil {
		return model.ObjectRecord{}, b.fail(err)
	}

	ref := index.ObjectRef(registered.ID)
	weight := b.WeightFor(index.FieldObject)
	for _, token := range tokenizer.QualifiedNameTokens(registered.QualifiedName) {
		b.terms.Insert(token, index.Posting{Ref: ref, Field: index.FieldObject, Weight: weight})
	}
	return registered, nil
}

// AddObjectInput registers a manifest object. Its document must already be
// registered; the description is indexed as body text of the object.
func (b *Builder) AddObjectInput(in model.ObjectInput) (model.ObjectRecord, error) {
	if err := b.check(); err != nil {
		return model.ObjectRecord{}, err
	}
	doc, err := b.documents.Get(in.DocName)
	if err != nil {
		return model.ObjectRecord{}, b.fail(fmt.Errorf("object '%s': %w", in.QualifiedName, err))
	}

	rec, err := b.AddObject(model.ObjectRecord{
		QualifiedName: in.QualifiedName,
		Kind:          model.ParseObjectKind(in.Kind),
		DocID:         doc.ID,
		Priority:      1,
		Signature:     in.Signature,
	})
	if err != nil {
		return model.ObjectRecord{}, err
	}
	if err := b.IndexText(index.ObjectRef(rec.ID), index.FieldBody, in.Description); err != nil {
		return model.ObjectRecord{}, err
	}
	return rec, nil
}

// AddSection records a titled section of a document.
func (b *Builder) AddSection(title string, docID uint32, anchor string) error {
	if err := b.check(); err != nil {
		return err
	}
	b.sections = append(b.sections, model.Section{Title: title, DocID: docID, Anchor: anchor})
	return nil
}

// AddIndexEntry records an entry of the general index.
func (b *Builder) AddIndexEntry(text string, docID uint32, anchor string) error {
	if err := b.check(); err != nil {
		return err
	}
	b.entries = append(b.entries, model.IndexEntry{Text: text, DocID: docID, Anchor: anchor})
	return nil
}

// SetEnvVersion records the generator environment versions carried by the index.
func (b *Builder) SetEnvVersion(versions map[string]int) error {
	if err := b.check(); err != nil {
		return err
	}
	for k, v := range versions {
		b.envVersion[k] = v
	}
	return nil
}

// Build validates every reference and freezes the accumulated data into a
// snapshot. It fails if any earlier mutation failed, and can be called once.
func (b *Builder) Build() (*index.Snapshot, error) {
	if b.built {
		return nil, fmt.Errorf("%w: index already built", errors.ErrBuildSealed)
	}
	if b.err != nil {
		return nil, fmt.Errorf("build aborted: %w", b.err)
	}
	b.built = true

	snap := &index.Snapshot{
		Settings:     b.settings,
		Terms:        b.terms,
		Documents:    b.documents,
		Objects:      b.objects,
		Sections:     b.sections,
		IndexEntries: b.entries,
		EnvVersion:   b.envVersion,
		BuiltAt:      time.Now().UTC(),
	}
	if err := snap.Validate(); err != nil {
		b.err = err
		return nil, fmt.Errorf("build aborted: %w", err)
	}
	snap.Fingerprint = snap.ComputeFingerprint()
	return snap, nil
}
