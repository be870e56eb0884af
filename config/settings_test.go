package config

import (
	"bytes"
	"encoding/gob"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	settings := IndexSettings{Name: "portal"}
	settings.ApplyDefaults()

	if settings.Weights.Title != DefaultTitleWeight || settings.Weights.Object != DefaultObjectWeight || settings.Weights.Body != DefaultBodyWeight {
		t.Errorf("unexpected default weights: %+v", settings.Weights)
	}
	if settings.MinPrefixLength != DefaultMinPrefixLength {
		t.Errorf("expected min prefix length %d, got %d", DefaultMinPrefixLength, settings.MinPrefixLength)
	}
	if settings.MaxResults != DefaultMaxResults {
		t.Errorf("expected max results %d, got %d", DefaultMaxResults, settings.MaxResults)
	}
	if len(settings.StopWords) == 0 {
		t.Error("expected default stop words to be applied")
	}
	if problems := settings.Validate(); len(problems) != 0 {
		t.Errorf("defaults should validate, got %v", problems)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	settings := IndexSettings{
		Name:            "portal",
		Weights:         Weights{Title: 20, Object: 8, Body: 2},
		MinPrefixLength: 4,
		StopWords:       []string{},
		MaxResults:      50,
	}
	settings.ApplyDefaults()

	if settings.Weights.Title != 20 || settings.MinPrefixLength != 4 || settings.MaxResults != 50 {
		t.Errorf("explicit values were overwritten: %+v", settings)
	}
	if len(settings.StopWords) != 0 {
		t.Errorf("explicit empty stop-word list should disable stop words, got %v", settings.StopWords)
	}
}

func TestValidate(t *testing.T) {
	base := func() IndexSettings {
		s := IndexSettings{Name: "portal"}
		s.ApplyDefaults()
		return s
	}

	tests := []struct {
		name           string
		mutate         func(s *IndexSettings)
		expectedErrors int
		contains       string
	}{
		{"valid defaults", func(s *IndexSettings) {}, 0, ""},
		{"empty name", func(s *IndexSettings) { s.Name = "  " }, 1, "Index name"},
		{"path separator in name", func(s *IndexSettings) { s.Name = "../etc" }, 1, "path separators"},
		{"title not above object", func(s *IndexSettings) { s.Weights = Weights{Title: 5, Object: 5, Body: 1} }, 1, "Title weight"},
		{"object not above body", func(s *IndexSettings) { s.Weights = Weights{Title: 10, Object: 1, Body: 1} }, 1, "Object weight"},
		{"non-positive body", func(s *IndexSettings) { s.Weights = Weights{Title: 10, Object: 5, Body: 0} }, 1, "Body weight"},
		{"zero prefix length", func(s *IndexSettings) { s.MinPrefixLength = 0 }, 1, "min_prefix_length"},
		{"zero max results", func(s *IndexSettings) { s.MaxResults = 0 }, 1, "max_results"},
		{"duplicate stop word", func(s *IndexSettings) { s.StopWords = []string{"the", "The"} }, 1, "Duplicate value"},
		{"blank stop word", func(s *IndexSettings) { s.StopWords = []string{" "} }, 1, "Stop word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			problems := s.Validate()
			if len(problems) != tt.expectedErrors {
				t.Fatalf("expected %d problems, got %d: %v", tt.expectedErrors, len(problems), problems)
			}
			if tt.contains != "" && !strings.Contains(problems[0], tt.contains) {
				t.Errorf("expected problem to mention %q, got %q", tt.contains, problems[0])
			}
		})
	}
}

func TestStopWordSet(t *testing.T) {
	s := IndexSettings{StopWords: []string{"The", "of"}}
	set := s.StopWordSet()
	if !set.Contains("the") || !set.Contains("of") || set.Contains("config") {
		t.Errorf("unexpected stop-word set: %v", set)
	}
}

func TestClone(t *testing.T) {
	s := IndexSettings{Name: "portal", StopWords: []string{"the"}}
	c := s.Clone()
	c.StopWords[0] = "changed"
	if s.StopWords[0] != "the" {
		t.Error("Clone must deep-copy stop words")
	}
}

func TestApplyDefaults_DisabledStopWordsSurviveGob(t *testing.T) {
	settings := IndexSettings{Name: "portal", StopWords: []string{}}
	settings.ApplyDefaults()
	if !settings.StopWordsDisabled {
		t.Fatal("explicit empty stop-word list should set StopWordsDisabled")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(settings); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded IndexSettings
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.StopWords != nil {
		t.Fatalf("gob is expected to fold the empty list into nil, got %#v", decoded.StopWords)
	}

	decoded.ApplyDefaults()
	if len(decoded.StopWords) != 0 {
		t.Errorf("stop words came back after a gob round trip: %v", decoded.StopWords)
	}
	if decoded.StopWordSet().Contains("the") {
		t.Error("'the' must not be a stop word")
	}
}
