package sphinx

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/model"
)

// Encode writes snap as a searchindex.js file, wrapped in Search.setIndex(...).
//
// Only document postings are written: Sphinx has no slot for postings of
// objects, whose names the client matches on its own. A document posting
// lands under "titleterms" when its strongest match was the title and under
// "terms" otherwise.
func Encode(w io.Writer, snap *index.Snapshot) error {
	raw, err := fromSnapshot(snap)
	if err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding search index: %w", err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(wrapperPrefix); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if _, err := bw.WriteString(wrapperSuffix); err != nil {
		return err
	}
	return bw.Flush()
}

func fromSnapshot(snap *index.Snapshot) (*searchIndex, error) {
	if snap == nil || snap.Terms == nil || snap.Documents == nil || snap.Objects == nil {
		return nil, fmt.Errorf("cannot encode an incomplete snapshot")
	}

	docs := snap.Documents.All()
	raw := &searchIndex{
		DocNames:     make([]string, len(docs)),
		Filenames:    make([]string, len(docs)),
		Titles:       make([]string, len(docs)),
		Terms:        make(map[string]docIndexes),
		TitleTerms:   make(map[string]docIndexes),
		Objects:      make(map[string]json.RawMessage),
		ObjTypes:     make(map[string]string),
		ObjNames:     make(map[string][]string),
		EnvVersion:   snap.EnvVersion,
		AllTitles:    make(map[string][]location),
		IndexEntries: make(map[string][]location),
	}
	for i, doc := range docs {
		raw.DocNames[i] = doc.DocName
		raw.Filenames[i] = doc.Filename
		raw.Titles[i] = doc.Title
	}

	snap.Terms.Range(func(term string, postings index.PostingList) bool {
		for _, p := range postings {
			if p.Ref.Kind != index.RefDocument {
				continue
			}
			if p.Field == index.FieldTitle {
				raw.TitleTerms[term] = append(raw.TitleTerms[term], int(p.Ref.ID))
			} else {
				raw.Terms[term] = append(raw.Terms[term], int(p.Ref.ID))
			}
		}
		return true
	})

	for code, typ := range snap.Objects.Types() {
		key := strconv.Itoa(code)
		raw.ObjTypes[key] = typ.Key()
		raw.ObjNames[key] = []string{typ.Domain, typ.Role, typ.Label}
	}

	byParent := make(map[string][]objectEntry)
	for _, obj := range snap.Objects.All() {
		code, ok := snap.Objects.TypeCode(obj.Type)
		if !ok {
			return nil, fmt.Errorf("object '%s' has unregistered type '%s'", obj.QualifiedName, obj.Type.Key())
		}
		byParent[obj.Parent] = append(byParent[obj.Parent], objectEntry{
			Doc:      int(obj.DocID),
			TypeCode: code,
			Priority: obj.Priority,
			Anchor:   compactAnchor(obj),
			Name:     obj.Name,
		})
	}
	for parent, entries := range byParent {
		data, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encoding objects of '%s': %w", parent, err)
		}
		raw.Objects[parent] = data
	}

	for _, s := range snap.Sections {
		raw.AllTitles[s.Title] = append(raw.AllTitles[s.Title], location{Doc: int(s.DocID), Anchor: s.Anchor})
	}
	for _, e := range snap.IndexEntries {
		raw.IndexEntries[e.Text] = append(raw.IndexEntries[e.Text], location{Doc: int(e.DocID), Anchor: e.Anchor})
	}
	return raw, nil
}

// compactAnchor reverses model.ObjectRecord.ResolvedAnchor.
func compactAnchor(obj model.ObjectRecord) string {
	switch obj.Anchor {
	case "", "-":
		return obj.Anchor
	case obj.QualifiedName:
		return ""
	case obj.Type.Role + "-" + obj.QualifiedName:
		return "-"
	default:
		return obj.Anchor
	}
}
