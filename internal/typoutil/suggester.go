package typoutil

import (
	"sort"
	"strconv"
	"sync"
)

const maxCacheSize = 1024

// Suggestion is an indexed term close to a query token.
type Suggestion struct {
	Term     string `json:"term"`
	Distance int    `json:"distance"`
}

// Suggester proposes indexed terms for tokens that matched nothing. It is
// built once per snapshot and is safe for concurrent use.
type Suggester struct {
	byLength map[int][]string // indexed terms bucketed by rune count

	cacheMu sync.RWMutex
	cache   map[string][]Suggestion
}

// NewSuggester indexes terms by length.
func NewSuggester(terms []string) *Suggester {
	byLength := make(map[int][]string)
	for _, term := range terms {
		n := len([]rune(term))
		byLength[n] = append(byLength[n], term)
	}
	return &Suggester{
		byLength: byLength,
		cache:    make(map[string][]Suggestion),
	}
}

// Suggest returns up to maxResults terms within maxDistance edits of token,
// closest first and alphabetical within a distance. The token itself is
// never suggested.
func (s *Suggester) Suggest(token string, maxDistance, maxResults int) []Suggestion {
	if maxDistance <= 0 || maxResults <= 0 || token == "" {
		return []Suggestion{}
	}

	cacheKey := token + "\x00" + strconv.Itoa(maxDistance) + "\x00" + strconv.Itoa(maxResults)
	s.cacheMu.RLock()
	cached, ok := s.cache[cacheKey]
	s.cacheMu.RUnlock()
	if ok {
		return copySuggestions(cached)
	}

	n := len([]rune(token))
	found := make([]Suggestion, 0)
	for length := n - maxDistance; length <= n+maxDistance; length++ {
		for _, term := range s.byLength[length] {
			if term == token {
				continue
			}
			if d := Distance(token, term, maxDistance); d <= maxDistance {
				found = append(found, Suggestion{Term: term, Distance: d})
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].Term < found[j].Term
	})
	if len(found) > maxResults {
		found = found[:maxResults]
	}

	s.cacheMu.Lock()
	if len(s.cache) < maxCacheSize {
		s.cache[cacheKey] = found
	}
	s.cacheMu.Unlock()

	return copySuggestions(found)
}

// copySuggestions keeps cached slices private to the suggester. The copy is
// never nil.
func copySuggestions(src []Suggestion) []Suggestion {
	out := make([]Suggestion, len(src))
	copy(out, src)
	return out
}
