package index

import (
	"bytes"
	"encoding/gob"
	"strings"
	"sync"

	"github.com/huandu/skiplist"
)

// TermTable maps a normalized term to the postings that contain it.
// Terms are kept in a sorted skip list so prefix lookups seek straight to the
// first candidate instead of scanning the dictionary.
type TermTable struct {
	mu    sync.RWMutex
	terms *skiplist.SkipList // term -> PostingList
}

// NewTermTable returns an empty term table.
func NewTermTable() *TermTable {
	return &TermTable{terms: skiplist.New(skiplist.String)}
}

// Insert adds posting under term. If the same reference is already posted
// under the term, the higher weight wins and carries its field with it.
func (tt *TermTable) Insert(term string, posting Posting) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if elem := tt.terms.Get(term); elem != nil {
		elem.Value = elem.Value.(PostingList).merge(posting)
		return
	}
	tt.terms.Set(term, PostingList{posting})
}

// Lookup returns the postings of term. An absent term yields an empty list.
func (tt *TermTable) Lookup(term string) PostingList {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	if elem := tt.terms.Get(term); elem != nil {
		return elem.Value.(PostingList).Clone()
	}
	return PostingList{}
}

// Contains reports whether term has at least one posting.
func (tt *TermTable) Contains(term string) bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.terms.Get(term) != nil
}

// PrefixLookup returns the union of the postings of every term starting with
// prefix. A reference found under several terms keeps its highest weight.
func (tt *TermTable) PrefixLookup(prefix string) PostingList {
	var lists []PostingList
	tt.rangePrefix(prefix, func(_ string, postings PostingList) bool {
		lists = append(lists, postings)
		return true
	})
	return Union(lists...)
}

// PrefixTerms returns up to limit terms starting with prefix, in order.
// A limit of zero or less means no limit.
func (tt *TermTable) PrefixTerms(prefix string, limit int) []string {
	var terms []string
	tt.rangePrefix(prefix, func(term string, _ PostingList) bool {
		terms = append(terms, term)
		return limit <= 0 || len(terms) < limit
	})
	if terms == nil {
		return []string{}
	}
	return terms
}

func (tt *TermTable) rangePrefix(prefix string, fn func(term string, postings PostingList) bool) {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	for elem := tt.terms.Find(prefix); elem != nil; elem = elem.Next() {
		term := elem.Key().(string)
		if !strings.HasPrefix(term, prefix) {
			return
		}
		if !fn(term, elem.Value.(PostingList)) {
			return
		}
	}
}

// Range calls fn for every term in ascending order until fn returns false.
// The posting list passed to fn must not be modified.
func (tt *TermTable) Range(fn func(term string, postings PostingList) bool) {
	tt.rangePrefix("", fn)
}

// Terms returns all terms in ascending order.
func (tt *TermTable) Terms() []string {
	return tt.PrefixTerms("", 0)
}

// Len returns the number of distinct terms.
func (tt *TermTable) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.terms.Len()
}

// gobTermEntry is the serialized form of one term and its postings.
type gobTermEntry struct {
	Term     string
	Postings PostingList
}

// gobTermTableData is a helper struct for Gob encoding/decoding TermTable data.
// It excludes the mutex and the skip list links.
type gobTermTableData struct {
	Entries []gobTermEntry
}

// GobEncode implements the gob.GobEncoder interface for TermTable.
func (tt *TermTable) GobEncode() ([]byte, error) {
	data := gobTermTableData{Entries: make([]gobTermEntry, 0, tt.Len())}
	tt.Range(func(term string, postings PostingList) bool {
		data.Entries = append(data.Entries, gobTermEntry{Term: term, Postings: postings})
		return true
	})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for TermTable.
func (tt *TermTable) GobDecode(data []byte) error {
	decoded := gobTermTableData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return err
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()

	tt.terms = skiplist.New(skiplist.String)
	for _, entry := range decoded.Entries {
		postings := entry.Postings
		if postings == nil {
			postings = PostingList{}
		}
		tt.terms.Set(entry.Term, postings)
	}
	return nil
}
