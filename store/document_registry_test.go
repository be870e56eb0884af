package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"reflect"
	"testing"

	internalErrors "github.com/gcbaptista/go-doc-search/internal/errors"
)

func TestDocumentRegistry_RegisterAndGet(t *testing.T) {
	r := NewDocumentRegistry()

	intro, err := r.Register("d1", "Intro", "d1.rst")
	if err != nil {
		t.Fatalf("Register(d1) failed: %v", err)
	}
	cfg, err := r.Register("d2", "Config", "d2.rst")
	if err != nil {
		t.Fatalf("Register(d2) failed: %v", err)
	}

	if intro.ID != 0 || cfg.ID != 1 {
		t.Errorf("IDs = %d, %d; want positions 0, 1", intro.ID, cfg.ID)
	}

	got, err := r.Get("d2")
	if err != nil {
		t.Fatalf("Get(d2) failed: %v", err)
	}
	if got != cfg {
		t.Errorf("Get(d2) = %+v, want %+v", got, cfg)
	}

	byID, ok := r.ByID(0)
	if !ok || byID.DocName != "d1" {
		t.Errorf("ByID(0) = %+v, %v", byID, ok)
	}
	if _, ok := r.ByID(2); ok {
		t.Error("ByID(2) should not exist")
	}
}

func TestDocumentRegistry_GetUnknown(t *testing.T) {
	r := NewDocumentRegistry()

	_, err := r.Get("missing")
	if !errors.Is(err, internalErrors.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if !errors.Is(err, internalErrors.ErrNotFound) {
		t.Errorf("expected error to match ErrNotFound, got %v", err)
	}
}

func TestDocumentRegistry_DuplicateLeavesRegistryUnchanged(t *testing.T) {
	r := NewDocumentRegistry()
	if _, err := r.Register("d1", "Intro", "d1.rst"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	before := r.All()

	_, err := r.Register("d1", "Introduction", "other.rst")
	if !errors.Is(err, internalErrors.ErrDuplicateDocument) {
		t.Fatalf("expected duplicate-document error, got %v", err)
	}
	var dupErr *internalErrors.DuplicateDocumentError
	if !errors.As(err, &dupErr) || dupErr.ExistingTitle != "Intro" {
		t.Errorf("expected DuplicateDocumentError naming the existing title, got %v", err)
	}

	if !reflect.DeepEqual(r.All(), before) {
		t.Errorf("registry changed after failed Register: %v", r.All())
	}
	got, _ := r.Get("d1")
	if got.Title != "Intro" {
		t.Errorf("title = %q, want Intro", got.Title)
	}
}

func TestDocumentRegistry_EmptyName(t *testing.T) {
	r := NewDocumentRegistry()
	_, err := r.Register("  ", "Blank", "")
	if !errors.Is(err, internalErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after rejected Register", r.Len())
	}
}

func TestDocumentRegistry_GobRoundTrip(t *testing.T) {
	r := NewDocumentRegistry()
	_, _ = r.Register("index", "EM Workflows", "index.rst")
	_, _ = r.Register("modules", "Modules", "modules.rst")

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded := NewDocumentRegistry()
	if err := gob.NewDecoder(&buf).Decode(decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !reflect.DeepEqual(decoded.All(), r.All()) {
		t.Errorf("All() differs after round trip")
	}
	got, err := decoded.Get("modules")
	if err != nil || got.ID != 1 {
		t.Errorf("Get(modules) after round trip = %+v, %v", got, err)
	}
}
