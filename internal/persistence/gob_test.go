package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type payload struct {
	Name  string
	Terms map[string][]int
}

func samplePayload() payload {
	return payload{
		Name: "workflows",
		Terms: map[string][]int{
			"config": {0, 2},
			"modul":  {0, 1, 2, 4},
			"binvol": {2},
		},
	}
}

func TestGobRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		save func(string, any) error
		load func(string, any) error
	}{
		{"plain", SaveGob, LoadGob},
		{"compressed", SaveCompressedGob, LoadCompressedGob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", "data.gob")
			want := samplePayload()
			if err := tt.save(path, want); err != nil {
				t.Fatalf("save error = %v", err)
			}

			var got payload
			if err := tt.load(path, &got); err != nil {
				t.Fatalf("load error = %v", err)
			}
			if got.Name != want.Name || len(got.Terms) != len(want.Terms) || got.Terms["modul"][3] != 4 {
				t.Errorf("round trip = %+v, want %+v", got, want)
			}
		})
	}
}

func TestLoadGob_Missing(t *testing.T) {
	var got payload
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadGob() on missing file = %v, want os.ErrNotExist", err)
	}
	err = LoadCompressedGob(filepath.Join(t.TempDir(), "missing.gob.zst"), &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadCompressedGob() on missing file = %v, want os.ErrNotExist", err)
	}
}

func TestLoadCompressedGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob.zst")
	if err := os.WriteFile(path, []byte("not zstd at all"), 0600); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := LoadCompressedGob(path, &got); err == nil {
		t.Error("LoadCompressedGob() on corrupt file, wantErr, got nil")
	}
}

func TestSaveGob_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.gob")
	if err := SaveGob(path, samplePayload()); err != nil {
		t.Fatal(err)
	}
	if err := SaveGob(path, payload{Name: "second"}); err != nil {
		t.Fatal(err)
	}

	var got payload
	if err := LoadGob(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "second" {
		t.Errorf("Name = %q, want second", got.Name)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestSaveGob_EncodeFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.gob")
	if err := SaveGob(path, samplePayload()); err != nil {
		t.Fatal(err)
	}

	// gob cannot encode channels
	if err := SaveGob(path, make(chan int)); err == nil {
		t.Fatal("SaveGob() with a channel, wantErr, got nil")
	}

	var got payload
	if err := LoadGob(path, &got); err != nil || got.Name != "workflows" {
		t.Errorf("previous file should survive a failed save, got %+v, %v", got, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the data file, found %d entries", len(entries))
	}
}
