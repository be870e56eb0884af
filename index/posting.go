package index

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// RefKind tags what a Ref points at.
type RefKind uint8

const (
	RefDocument RefKind = iota
	RefObject
)

func (k RefKind) String() string {
	if k == RefObject {
		return "object"
	}
	return "document"
}

// Ref is a tagged reference into the document registry or the object table.
// ID is the record's position in its registry.
type Ref struct {
	Kind RefKind
	ID   uint32
}

// DocumentRef references the document with the given registry ID.
func DocumentRef(id uint32) Ref { return Ref{Kind: RefDocument, ID: id} }

// ObjectRef references the object with the given table ID.
func ObjectRef(id uint32) Ref { return Ref{Kind: RefObject, ID: id} }

// Key packs the reference into a single uint32 (ID<<1 | kind) so posting sets
// can be held in roaring bitmaps. IDs must stay below 1<<31.
func (r Ref) Key() uint32 {
	return r.ID<<1 | uint32(r.Kind)
}

// RefFromKey reverses Key.
func RefFromKey(key uint32) Ref {
	return Ref{Kind: RefKind(key & 1), ID: key >> 1}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s #%d", r.Kind, r.ID)
}

// Field records where a term matched.
type Field uint8

const (
	FieldBody Field = iota
	FieldObject
	FieldTitle
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldObject:
		return "object"
	default:
		return "body"
	}
}

// Posting is one reference under a term together with the field it matched
// in and the relevance weight it was inserted with.
type Posting struct {
	Ref    Ref
	Field  Field
	Weight int
}

// PostingList is kept sorted by Ref.Key with at most one posting per Ref.
type PostingList []Posting

// find returns the position of ref in the list, or the insertion point.
func (pl PostingList) find(ref Ref) (int, bool) {
	key := ref.Key()
	i := sort.Search(len(pl), func(i int) bool { return pl[i].Ref.Key() >= key })
	return i, i < len(pl) && pl[i].Ref == ref
}

// Get returns the posting for ref, if present.
func (pl PostingList) Get(ref Ref) (Posting, bool) {
	i, ok := pl.find(ref)
	if !ok {
		return Posting{}, false
	}
	return pl[i], true
}

// Contains reports whether ref has a posting in the list.
func (pl PostingList) Contains(ref Ref) bool {
	_, ok := pl.find(ref)
	return ok
}

// merge inserts p keeping order; when the ref is already present the
// higher weight wins.
func (pl PostingList) merge(p Posting) PostingList {
	i, ok := pl.find(p.Ref)
	if ok {
		if p.Weight > pl[i].Weight {
			pl[i] = p
		}
		return pl
	}
	pl = append(pl, Posting{})
	copy(pl[i+1:], pl[i:])
	pl[i] = p
	return pl
}

// Union merges several lists into a new sorted list; duplicate refs keep the max weight.
func Union(lists ...PostingList) PostingList {
	switch len(lists) {
	case 0:
		return PostingList{}
	case 1:
		return lists[0].Clone()
	}
	byKey := make(map[uint32]Posting)
	for _, list := range lists {
		for _, p := range list {
			key := p.Ref.Key()
			if existing, ok := byKey[key]; !ok || p.Weight > existing.Weight {
				byKey[key] = p
			}
		}
	}
	result := make(PostingList, 0, len(byKey))
	for _, p := range byKey {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ref.Key() < result[j].Ref.Key() })
	return result
}

// Clone returns an independent copy of the list.
func (pl PostingList) Clone() PostingList {
	clone := make(PostingList, len(pl))
	copy(clone, pl)
	return clone
}

// Refs returns the references of the list in order.
func (pl PostingList) Refs() []Ref {
	refs := make([]Ref, len(pl))
	for i, p := range pl {
		refs[i] = p.Ref
	}
	return refs
}

// Bitmap returns the set of ref keys held by the list.
func (pl PostingList) Bitmap() *roaring.Bitmap {
	bm := roaring.New()
	for _, p := range pl {
		bm.Add(p.Ref.Key())
	}
	return bm
}
