package sphinx

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/indexing"
	"github.com/gcbaptista/go-doc-search/model"
)

// Decode reads a Sphinx search index, either raw JSON or wrapped in
// Search.setIndex(...), and builds a snapshot from it. Terms are taken as
// already normalized: "terms" become body postings and "titleterms" title
// postings; object names are indexed with object weight.
func Decode(r io.Reader, settings config.IndexSettings) (*index.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading search index: %w", err)
	}
	data = unwrap(data)
	if len(data) == 0 {
		return nil, errors.NewValidationError("searchindex", "search index is empty")
	}

	var raw searchIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewValidationError("searchindex", fmt.Sprintf("malformed search index: %v", err))
	}
	if err := raw.validateShape(); err != nil {
		return nil, err
	}

	b, err := indexing.NewBuilder(settings)
	if err != nil {
		return nil, err
	}
	if err := raw.load(b); err != nil {
		return nil, err
	}
	return b.Build()
}

func (raw *searchIndex) validateShape() error {
	if len(raw.Filenames) != len(raw.DocNames) {
		return errors.NewValidationError("filenames", fmt.Sprintf("%d filenames for %d docnames", len(raw.Filenames), len(raw.DocNames)))
	}
	if len(raw.Titles) != len(raw.DocNames) {
		return errors.NewValidationError("titles", fmt.Sprintf("%d titles for %d docnames", len(raw.Titles), len(raw.DocNames)))
	}
	return nil
}

func (raw *searchIndex) load(b *indexing.Builder) error {
	for i, docName := range raw.DocNames {
		if _, err := b.AddDocument(docName, raw.Titles[i], raw.Filenames[i]); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}

	if err := addTerms(b, "terms", raw.Terms, index.FieldBody); err != nil {
		return err
	}
	if err := addTerms(b, "titleterms", raw.TitleTerms, index.FieldTitle); err != nil {
		return err
	}

	types, err := raw.objectTypes()
	if err != nil {
		return err
	}
	if err := raw.loadObjects(b, types); err != nil {
		return err
	}

	for _, title := range sortedKeys(raw.AllTitles) {
		for _, loc := range raw.AllTitles[title] {
			doc, err := docID(loc.Doc)
			if err != nil {
				return fmt.Errorf("alltitles '%s': %w", title, err)
			}
			if err := b.AddSection(title, doc, loc.Anchor); err != nil {
				return err
			}
		}
	}
	for _, text := range sortedKeys(raw.IndexEntries) {
		for _, loc := range raw.IndexEntries[text] {
			doc, err := docID(loc.Doc)
			if err != nil {
				return fmt.Errorf("indexentries '%s': %w", text, err)
			}
			if err := b.AddIndexEntry(text, doc, loc.Anchor); err != nil {
				return err
			}
		}
	}

	return b.SetEnvVersion(raw.EnvVersion)
}

func addTerms(b *indexing.Builder, section string, terms map[string]docIndexes, field index.Field) error {
	for _, term := range sortedKeys(terms) {
		for _, idx := range terms[term] {
			doc, err := docID(idx)
			if err != nil {
				return fmt.Errorf("%s '%s': %w", section, term, err)
			}
			if err := b.AddTerm(term, index.DocumentRef(doc), field); err != nil {
				return err
			}
		}
	}
	return nil
}

// objectTypes decodes objtypes/objnames into types keyed by code.
func (raw *searchIndex) objectTypes() (map[int]model.ObjectType, error) {
	types := make(map[int]model.ObjectType, len(raw.ObjTypes))
	for key, name := range raw.ObjTypes {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.NewValidationError("objtypes", fmt.Sprintf("invalid type code '%s'", key))
		}
		typ := model.ObjectType{Label: name}
		if domain, role, ok := strings.Cut(name, ":"); ok {
			typ.Domain, typ.Role = domain, role
		} else {
			typ.Role = name
		}
		if parts := raw.ObjNames[key]; len(parts) >= 3 {
			typ = model.ObjectType{Domain: parts[0], Role: parts[1], Label: parts[2]}
		}
		types[code] = typ
	}
	return types, nil
}

// loadObjects registers objects prefix by prefix. Within a prefix the file
// order is kept, so children stay in declaration order.
func (raw *searchIndex) loadObjects(b *indexing.Builder, types map[int]model.ObjectType) error {
	for _, prefix := range sortedKeys(raw.Objects) {
		entries, err := decodeObjectEntries(raw.Objects[prefix])
		if err != nil {
			return errors.NewValidationError("objects", fmt.Sprintf("prefix '%s': %v", prefix, err))
		}
		for _, entry := range entries {
			typ, ok := types[entry.TypeCode]
			if !ok {
				return errors.NewValidationError("objects", fmt.Sprintf("object '%s' uses unknown type code %d", entry.Name, entry.TypeCode))
			}
			doc, err := docID(entry.Doc)
			if err != nil {
				return fmt.Errorf("object '%s': %w", entry.Name, err)
			}

			qualifiedName := entry.Name
			if prefix != "" {
				qualifiedName = prefix + "." + entry.Name
			}
			_, err = b.AddObject(model.ObjectRecord{
				QualifiedName: qualifiedName,
				Kind:          model.ParseObjectKind(typ.Role),
				Type:          typ,
				DocID:         doc,
				Anchor:        entry.Anchor,
				Priority:      entry.Priority,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeObjectEntries accepts the list form {prefix: [[doc, type, prio, anchor, name], ...]}
// and the legacy map form {prefix: {name: [doc, type, prio, anchor]}}.
func decodeObjectEntries(data json.RawMessage) ([]objectEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var byName map[string]objectEntry
		if err := json.Unmarshal(data, &byName); err != nil {
			return nil, err
		}
		entries := make([]objectEntry, 0, len(byName))
		for _, name := range sortedKeys(byName) {
			entry := byName[name]
			entry.Name = name
			entries = append(entries, entry)
		}
		return entries, nil
	}

	var entries []objectEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("object entry without a name")
		}
	}
	return entries, nil
}

func docID(idx int) (uint32, error) {
	if idx < 0 {
		return 0, errors.NewValidationError("document index", fmt.Sprintf("negative document index %d", idx))
	}
	return uint32(idx), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
