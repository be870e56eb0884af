package tokenizer

import (
	"regexp"
	"strings"
)

// nonTermRegex matches sequences of characters that can never be part of a term.
// Underscore is kept so identifiers such as "slurm_exec" stay a single token.
var nonTermRegex = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// defaultStopWords is the English stop-word list used by Sphinx search indexes.
var defaultStopWords = []string{
	"a", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "near", "no", "not", "of", "on", "or", "such",
	"that", "the", "their", "then", "there", "these", "they", "this",
	"to", "was", "will", "with",
}

// DefaultStopWords returns a fresh copy of the built-in stop-word list.
func DefaultStopWords() []string {
	words := make([]string, len(defaultStopWords))
	copy(words, defaultStopWords)
	return words
}

// StopWords is a set of lowercased words dropped during normalization.
type StopWords map[string]struct{}

// NewStopWords builds a set from the given words, lowercasing each one.
func NewStopWords(words []string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Contains reports whether word is a stop word. A nil set contains nothing.
func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Tokenize lowercases text and splits it on non-term characters.
// Empty fragments are dropped; the result is never nil.
func Tokenize(text string) []string {
	lowerText := strings.ToLower(text)
	split := nonTermRegex.Split(lowerText, -1)

	tokens := make([]string, 0, len(split))
	for _, s := range split {
		if s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Normalize tokenizes text, drops stop words and removes repeated tokens
// while keeping first-occurrence order.
func Normalize(text string, stopWords StopWords) []string {
	tokens := Tokenize(text)

	result := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if stopWords.Contains(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}

// QualifiedNameTokens splits a dotted object name ("config.Config.binvol")
// into its lowercased, de-duplicated components. Stop words are kept: object
// names are matched literally.
func QualifiedNameTokens(qualifiedName string) []string {
	return Normalize(qualifiedName, nil)
}
