package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/model"
)

// ObjectTable resolves qualified object names to their records and keeps the
// parent-to-children relation in declaration order.
type ObjectTable struct {
	mu        sync.RWMutex
	objects   []model.ObjectRecord
	byName    map[string]uint32   // qualified name -> ID
	children  map[string][]uint32 // parent qualified name -> child IDs; "" holds top-level objects
	types     []model.ObjectType  // type code -> type
	typeCodes map[string]int      // ObjectType.Key() -> type code
}

// NewObjectTable returns an empty object table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{
		byName:    make(map[string]uint32),
		children:  make(map[string][]uint32),
		typeCodes: make(map[string]int),
	}
}

// Register records an object of the given kind documented in docID.
// Registering a name again with the same kind returns the existing record;
// a different kind fails with a DuplicateObjectError.
func (t *ObjectTable) Register(qualifiedName string, kind model.ObjectKind, docID uint32, signature string) (model.ObjectRecord, error) {
	return t.RegisterRecord(model.ObjectRecord{
		QualifiedName: qualifiedName,
		Kind:          kind,
		DocID:         docID,
		Signature:     signature,
		Priority:      1,
	})
}

// RegisterRecord is Register for a fully populated record. ID, Name and
// Parent are derived from the qualified name; an empty Type defaults to the
// Python type of the kind.
func (t *ObjectTable) RegisterRecord(rec model.ObjectRecord) (model.ObjectRecord, error) {
	qn := strings.TrimSpace(rec.QualifiedName)
	if qn == "" || qn != rec.QualifiedName {
		return model.ObjectRecord{}, errors.NewValidationError("qualified_name", fmt.Sprintf("invalid qualified name '%s'", rec.QualifiedName))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, exists := t.byName[qn]; exists {
		existing := t.objects[id]
		if existing.Kind != rec.Kind {
			return model.ObjectRecord{}, errors.NewDuplicateObjectError(qn, existing.Kind.String(), rec.Kind.String())
		}
		return existing, nil
	}

	if rec.Type == (model.ObjectType{}) {
		rec.Type = model.DefaultObjectType(rec.Kind)
	}
	t.typeCode(rec.Type)

	rec.ID = uint32(len(t.objects))
	rec.Parent, rec.Name = model.SplitQualifiedName(qn)
	t.objects = append(t.objects, rec)
	t.byName[qn] = rec.ID
	t.children[rec.Parent] = append(t.children[rec.Parent], rec.ID)
	return rec, nil
}

// typeCode returns the code of typ, assigning the next free code on first use.
// Callers must hold the write lock.
func (t *ObjectTable) typeCode(typ model.ObjectType) int {
	if code, ok := t.typeCodes[typ.Key()]; ok {
		return code
	}
	code := len(t.types)
	t.types = append(t.types, typ)
	t.typeCodes[typ.Key()] = code
	return code
}

// Resolve returns the object registered under qualifiedName.
func (t *ObjectTable) Resolve(qualifiedName string) (model.ObjectRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.byName[qualifiedName]
	if !ok {
		return model.ObjectRecord{}, errors.NewObjectNotFoundError(qualifiedName)
	}
	return t.objects[id], nil
}

// ByID returns the object at position id.
func (t *ObjectTable) ByID(id uint32) (model.ObjectRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(id) >= len(t.objects) {
		return model.ObjectRecord{}, false
	}
	return t.objects[id], true
}

// Contains reports whether id refers to a registered object.
func (t *ObjectTable) Contains(id uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(id) < len(t.objects)
}

// ChildrenOf returns the members of qualifiedName in declaration order.
// The empty name returns top-level objects. A name that is neither
// registered nor the parent of a registered object is not found; a
// registered object without members yields an empty slice.
func (t *ObjectTable) ChildrenOf(qualifiedName string) ([]model.ObjectRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids, isParent := t.children[qualifiedName]
	if !isParent && qualifiedName != "" {
		if _, registered := t.byName[qualifiedName]; !registered {
			return nil, errors.NewObjectNotFoundError(qualifiedName)
		}
	}

	children := make([]model.ObjectRecord, len(ids))
	for i, id := range ids {
		children[i] = t.objects[id]
	}
	return children, nil
}

// Parents returns every distinct parent name in ascending order, "" first
// when top-level objects exist.
func (t *ObjectTable) Parents() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	parents := make([]string, 0, len(t.children))
	for parent := range t.children {
		parents = append(parents, parent)
	}
	sort.Strings(parents)
	return parents
}

// All returns every object in registration order.
func (t *ObjectTable) All() []model.ObjectRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	objects := make([]model.ObjectRecord, len(t.objects))
	copy(objects, t.objects)
	return objects
}

// Len returns the number of registered objects.
func (t *ObjectTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objects)
}

// TypeCode returns the code assigned to typ, if any object uses it.
func (t *ObjectTable) TypeCode(typ model.ObjectType) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	code, ok := t.typeCodes[typ.Key()]
	return code, ok
}

// Types returns the object types indexed by their code.
func (t *ObjectTable) Types() []model.ObjectType {
	t.mu.RLock()
	defer t.mu.RUnlock()

	types := make([]model.ObjectType, len(t.types))
	copy(types, t.types)
	return types
}

// gobObjectTableData is a helper struct for Gob encoding/decoding ObjectTable data.
// Lookup maps are rebuilt on decode.
type gobObjectTableData struct {
	Objects []model.ObjectRecord
	Types   []model.ObjectType
}

// GobEncode implements the gob.GobEncoder interface for ObjectTable.
func (t *ObjectTable) GobEncode() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobObjectTableData{Objects: t.objects, Types: t.types}); err != nil {
		return nil, fmt.Errorf("failed to gob encode object table: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for ObjectTable.
func (t *ObjectTable) GobDecode(data []byte) error {
	decoded := gobObjectTableData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode object table: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.objects = decoded.Objects
	t.types = decoded.Types
	t.byName = make(map[string]uint32, len(t.objects))
	t.children = make(map[string][]uint32)
	t.typeCodes = make(map[string]int, len(t.types))
	for code, typ := range t.types {
		t.typeCodes[typ.Key()] = code
	}
	for i, obj := range t.objects {
		if obj.ID != uint32(i) {
			return fmt.Errorf("object '%s' stored at position %d with ID %d", obj.QualifiedName, i, obj.ID)
		}
		t.byName[obj.QualifiedName] = obj.ID
		t.children[obj.Parent] = append(t.children[obj.Parent], obj.ID)
	}
	return nil
}
