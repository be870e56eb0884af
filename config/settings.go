// Package config provides configuration structures for the documentation search service.
// It defines per-index settings (scoring weights, prefix search, stop words) and the
// application configuration loaded from YAML.
package config

import (
	"strconv"
	"strings"

	"github.com/gcbaptista/go-doc-search/internal/tokenizer"
)

const (
	DefaultTitleWeight     = 10
	DefaultObjectWeight    = 5
	DefaultBodyWeight      = 1
	DefaultMinPrefixLength = 3
	DefaultMaxResults      = 1000
)

// Weights are the relevance weights given to a posting depending on where the
// term matched. Title matches must outrank object-name matches, which must
// outrank body matches.
type Weights struct {
	Title  int `json:"title" yaml:"title"`
	Object int `json:"object" yaml:"object"`
	Body   int `json:"body" yaml:"body"`
}

// IndexSettings contains all configuration options for a documentation index.
type IndexSettings struct {
	Name              string   `json:"name" yaml:"name"`                                                   // Unique name for the index
	Weights           Weights  `json:"weights" yaml:"weights"`                                             // Scoring weights per match field
	MinPrefixLength   int      `json:"min_prefix_length" yaml:"min_prefix_length"`                         // Shortest query token allowed to fall back to prefix lookup
	StopWords         []string `json:"stop_words" yaml:"stop_words"`                                       // Words dropped from text and queries
	StopWordsDisabled bool     `json:"stop_words_disabled,omitempty" yaml:"stop_words_disabled,omitempty"` // Set by ApplyDefaults for an explicit empty list
	MaxResults        int      `json:"max_results" yaml:"max_results"`                                     // Upper bound on hits kept per query
}

// Validate checks the settings and returns every problem found.
// Call ApplyDefaults first; zero values are reported as invalid.
func (settings *IndexSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Index name cannot be empty or whitespace-only")
	} else if strings.ContainsAny(settings.Name, `/\`) || settings.Name == "." || settings.Name == ".." {
		problems = append(problems, "Index name '"+settings.Name+"' must not contain path separators")
	}

	w := settings.Weights
	if w.Body <= 0 {
		problems = append(problems, "Body weight must be positive, got "+strconv.Itoa(w.Body))
	}
	if w.Object <= w.Body {
		problems = append(problems, "Object weight ("+strconv.Itoa(w.Object)+") must be greater than body weight ("+strconv.Itoa(w.Body)+")")
	}
	if w.Title <= w.Object {
		problems = append(problems, "Title weight ("+strconv.Itoa(w.Title)+") must be greater than object weight ("+strconv.Itoa(w.Object)+")")
	}

	if settings.MinPrefixLength < 1 {
		problems = append(problems, "min_prefix_length must be at least 1")
	}
	if settings.MaxResults < 1 {
		problems = append(problems, "max_results must be at least 1")
	}

	problems = append(problems, checkDuplicates("stop_words", settings.StopWords)...)
	for _, word := range settings.StopWords {
		if strings.TrimSpace(word) == "" {
			problems = append(problems, "Stop word cannot be empty or whitespace-only")
		}
	}

	return problems
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, values []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, value := range values {
		key := strings.ToLower(value)
		if seen[key] {
			errors = append(errors, "Duplicate value '"+value+"' found in "+fieldName)
		}
		seen[key] = true
	}

	return errors
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.Weights == (Weights{}) {
		settings.Weights = Weights{Title: DefaultTitleWeight, Object: DefaultObjectWeight, Body: DefaultBodyWeight}
	}
	if settings.MinPrefixLength == 0 {
		settings.MinPrefixLength = DefaultMinPrefixLength
	}
	if settings.MaxResults == 0 {
		settings.MaxResults = DefaultMaxResults
	}
	// nil means "use the built-in list"; an explicit empty list disables stop
	// words. The flag keeps that choice once encoders fold [] into nil.
	if settings.StopWords != nil && len(settings.StopWords) == 0 {
		settings.StopWordsDisabled = true
	}
	switch {
	case settings.StopWordsDisabled:
		settings.StopWords = []string{}
	case settings.StopWords == nil:
		settings.StopWords = tokenizer.DefaultStopWords()
	}
}

// StopWordSet returns the stop words as a lookup set.
func (settings *IndexSettings) StopWordSet() tokenizer.StopWords {
	return tokenizer.NewStopWords(settings.StopWords)
}

// Clone returns a deep copy so callers can keep settings immutable.
func (settings IndexSettings) Clone() IndexSettings {
	clone := settings
	if settings.StopWords != nil {
		clone.StopWords = make([]string, len(settings.StopWords))
		copy(clone.StopWords, settings.StopWords)
	}
	return clone
}
