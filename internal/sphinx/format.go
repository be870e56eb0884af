// Package sphinx reads and writes Sphinx search indexes (searchindex.js).
package sphinx

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

const (
	wrapperPrefix = "Search.setIndex("
	wrapperSuffix = ")"
)

// searchIndex mirrors the top-level object of searchindex.js.
type searchIndex struct {
	DocNames     []string                   `json:"docnames"`
	Filenames    []string                   `json:"filenames"`
	Titles       []string                   `json:"titles"`
	Terms        map[string]docIndexes      `json:"terms"`
	Objects      map[string]json.RawMessage `json:"objects"`
	ObjTypes     map[string]string          `json:"objtypes"`
	ObjNames     map[string][]string        `json:"objnames"`
	TitleTerms   map[string]docIndexes      `json:"titleterms"`
	EnvVersion   map[string]int             `json:"envversion,omitempty"`
	AllTitles    map[string][]location      `json:"alltitles,omitempty"`
	IndexEntries map[string][]location      `json:"indexentries,omitempty"`
}

// docIndexes is a list of document positions, written as a bare integer when
// it holds a single element.
type docIndexes []int

func (d *docIndexes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []int
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*d = list
		return nil
	}
	var single int
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("document index must be an integer or a list of integers: %w", err)
	}
	*d = docIndexes{single}
	return nil
}

func (d docIndexes) MarshalJSON() ([]byte, error) {
	if len(d) == 1 {
		return json.Marshal(d[0])
	}
	return json.Marshal([]int(d))
}

// location is a [docIndex, anchor] pair; a null anchor points at the top of
// the page. Trailing elements written by newer generators are ignored.
type location struct {
	Doc    int
	Anchor string
}

func (l *location) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) < 2 {
		return fmt.Errorf("location needs a document index and an anchor, got %s", data)
	}
	if err := json.Unmarshal(parts[0], &l.Doc); err != nil {
		return fmt.Errorf("location document index: %w", err)
	}
	var anchor *string
	if err := json.Unmarshal(parts[1], &anchor); err != nil {
		return fmt.Errorf("location anchor: %w", err)
	}
	if anchor != nil {
		l.Anchor = *anchor
	}
	return nil
}

func (l location) MarshalJSON() ([]byte, error) {
	var anchor any
	if l.Anchor != "" {
		anchor = l.Anchor
	}
	return json.Marshal([]any{l.Doc, anchor})
}

// objectEntry is one documented object: [docIndex, typeCode, priority, anchor, name].
// The legacy map form omits the name, which is then the map key.
type objectEntry struct {
	Doc      int
	TypeCode int
	Priority int
	Anchor   string
	Name     string
}

func (o *objectEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) < 4 {
		return fmt.Errorf("object entry needs at least 4 elements, got %d", len(parts))
	}
	targets := []any{&o.Doc, &o.TypeCode, &o.Priority, &o.Anchor}
	if len(parts) >= 5 {
		targets = append(targets, &o.Name)
	}
	for i, target := range targets {
		if err := json.Unmarshal(parts[i], target); err != nil {
			return fmt.Errorf("object entry element %d: %w", i, err)
		}
	}
	return nil
}

func (o objectEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Doc, o.TypeCode, o.Priority, o.Anchor, o.Name})
}

// unwrap strips the Search.setIndex(...) wrapper, if present.
func unwrap(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte(wrapperPrefix)) {
		return data
	}
	data = bytes.TrimPrefix(data, []byte(wrapperPrefix))
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte(";"))
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte(wrapperSuffix))
	return data
}
