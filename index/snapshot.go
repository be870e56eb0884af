// Package index provides the term table and the immutable snapshot that ties
// a built documentation index together.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"time"

	farmhash "github.com/leemcloughlin/gofarmhash"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/store"
)

// Snapshot is a fully built index. It is never mutated after it has been
// published; a rebuild produces a new Snapshot.
type Snapshot struct {
	Settings     config.IndexSettings
	Terms        *TermTable
	Documents    *store.DocumentRegistry
	Objects      *store.ObjectTable
	Sections     []model.Section
	IndexEntries []model.IndexEntry
	EnvVersion   map[string]int
	BuiltAt      time.Time
	Fingerprint  uint32
}

// Stats summarizes the size of a snapshot.
type Stats struct {
	Documents    int `json:"documents"`
	Objects      int `json:"objects"`
	Terms        int `json:"terms"`
	Sections     int `json:"sections"`
	IndexEntries int `json:"index_entries"`
}

// Stats returns the number of records held by the snapshot.
func (s *Snapshot) Stats() Stats {
	return Stats{
		Documents:    s.Documents.Len(),
		Objects:      s.Objects.Len(),
		Terms:        s.Terms.Len(),
		Sections:     len(s.Sections),
		IndexEntries: len(s.IndexEntries),
	}
}

// Validate checks that every posting, object, section and index entry refers
// to a registered document or object. All dangling references are reported
// in a single DanglingReferenceError.
func (s *Snapshot) Validate() error {
	var dangling []string

	s.Terms.Range(func(term string, postings PostingList) bool {
		for _, p := range postings {
			if !s.resolvable(p.Ref) {
				dangling = append(dangling, fmt.Sprintf("term '%s' -> %s", term, p.Ref))
			}
		}
		return true
	})
	for _, obj := range s.Objects.All() {
		if !s.Documents.Contains(obj.DocID) {
			dangling = append(dangling, fmt.Sprintf("object '%s' -> document #%d", obj.QualifiedName, obj.DocID))
		}
	}
	for _, sec := range s.Sections {
		if !s.Documents.Contains(sec.DocID) {
			dangling = append(dangling, fmt.Sprintf("section '%s' -> document #%d", sec.Title, sec.DocID))
		}
	}
	for _, entry := range s.IndexEntries {
		if !s.Documents.Contains(entry.DocID) {
			dangling = append(dangling, fmt.Sprintf("index entry '%s' -> document #%d", entry.Text, entry.DocID))
		}
	}

	if len(dangling) > 0 {
		return errors.NewDanglingReferenceError(dangling)
	}
	return nil
}

func (s *Snapshot) resolvable(ref Ref) bool {
	if ref.Kind == RefObject {
		return s.Objects.Contains(ref.ID)
	}
	return s.Documents.Contains(ref.ID)
}

// ComputeFingerprint hashes the searchable content of the snapshot. Two
// snapshots with the same documents, objects, postings, sections and index
// entries share a fingerprint regardless of when they were built.
func (s *Snapshot) ComputeFingerprint() uint32 {
	var buf bytes.Buffer
	writeString := func(v string) {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(v)))
		buf.WriteString(v)
	}
	writeUint := func(v uint32) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	for _, doc := range s.Documents.All() {
		writeString(doc.DocName)
		writeString(doc.Title)
		writeString(doc.Filename)
	}
	for _, obj := range s.Objects.All() {
		writeString(obj.QualifiedName)
		writeString(obj.Type.Key())
		writeString(obj.Anchor)
		writeUint(obj.DocID)
		writeUint(uint32(obj.Priority))
		writeString(obj.Signature)
	}
	s.Terms.Range(func(term string, postings PostingList) bool {
		writeString(term)
		for _, p := range postings {
			writeUint(p.Ref.Key())
			writeUint(uint32(p.Field))
			writeUint(uint32(p.Weight))
		}
		return true
	})
	for _, sec := range s.Sections {
		writeString(sec.Title)
		writeUint(sec.DocID)
		writeString(sec.Anchor)
	}
	for _, entry := range s.IndexEntries {
		writeString(entry.Text)
		writeUint(entry.DocID)
		writeString(entry.Anchor)
	}
	keys := make([]string, 0, len(s.EnvVersion))
	for k := range s.EnvVersion {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeString(k)
		writeUint(uint32(s.EnvVersion[k]))
	}

	return farmhash.Hash32WithSeed(buf.Bytes(), 0)
}

// ETag returns the quoted entity tag derived from the fingerprint.
func (s *Snapshot) ETag() string {
	return `"` + strconv.FormatUint(uint64(s.Fingerprint), 16) + `"`
}
