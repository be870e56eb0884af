package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/index"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/tokenizer"
	"github.com/gcbaptista/go-doc-search/internal/typoutil"
	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxSuggestions  = 3
)

// Service answers queries against one immutable snapshot. It holds no
// locks of its own and is safe for concurrent use.
type Service struct {
	snapshot  *index.Snapshot
	settings  config.IndexSettings
	stopWords tokenizer.StopWords
	suggester *typoutil.Suggester
}

// NewService creates a new search Service over snap.
func NewService(snap *index.Snapshot) (*Service, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	if snap.Terms == nil || snap.Documents == nil || snap.Objects == nil {
		return nil, fmt.Errorf("snapshot '%s' is incomplete", snap.Settings.Name)
	}

	settings := snap.Settings.Clone()
	settings.ApplyDefaults()
	return &Service{
		snapshot:  snap,
		settings:  settings,
		stopWords: settings.StopWordSet(),
		suggester: typoutil.NewSuggester(snap.Terms.Terms()),
	}, nil
}

// Snapshot returns the snapshot the service queries.
func (s *Service) Snapshot() *index.Snapshot {
	return s.snapshot
}

// Settings returns the index settings of the snapshot.
func (s *Service) Settings() config.IndexSettings {
	return s.settings.Clone()
}

// Tokens returns the normalized tokens a raw query resolves to.
func (s *Service) Tokens(raw string) []string {
	return tokenizer.Normalize(raw, s.stopWords)
}

// Query resolves a raw query string into ranked hits. Every token must match
// (AND semantics); a token without exact postings falls back to a prefix
// lookup when it is at least MinPrefixLength characters long. The score of a
// hit is the sum of its matched posting weights. Empty, malformed and
// unmatched queries return an empty slice. At most MaxResults hits are
// returned.
func (s *Service) Query(raw string) []services.Hit {
	return s.capped(s.rank(raw))
}

func (s *Service) capped(hits []services.Hit) []services.Hit {
	if len(hits) > s.settings.MaxResults {
		return hits[:s.settings.MaxResults]
	}
	return hits
}

// rank returns every hit of raw in result order, without the MaxResults cap.
func (s *Service) rank(raw string) []services.Hit {
	tokens := s.Tokens(raw)
	if len(tokens) == 0 {
		return []services.Hit{}
	}

	lists := make([]index.PostingList, len(tokens))
	var matched *roaring.Bitmap
	for i, token := range tokens {
		postings := s.snapshot.Terms.Lookup(token)
		if len(postings) == 0 && utf8.RuneCountInString(token) >= s.settings.MinPrefixLength {
			postings = s.snapshot.Terms.PrefixLookup(token)
		}
		if len(postings) == 0 {
			return []services.Hit{}
		}
		lists[i] = postings

		if matched == nil {
			matched = postings.Bitmap()
		} else {
			matched = roaring.And(matched, postings.Bitmap())
		}
		if matched.IsEmpty() {
			return []services.Hit{}
		}
	}

	keys := matched.ToArray()
	hits := make([]services.Hit, 0, len(keys))
	for _, key := range keys {
		ref := index.RefFromKey(key)
		hit, ok := s.hitFor(ref)
		if !ok {
			continue
		}
		hit.Matches = make(map[string]string, len(tokens))
		for i, token := range tokens {
			p, _ := lists[i].Get(ref)
			hit.Score += p.Weight
			hit.Matches[token] = p.Field.String()
		}
		hits = append(hits, hit)
	}

	sortHits(hits)
	return hits
}

// Search wraps Query with kind filtering, pagination and timing.
func (s *Service) Search(query services.SearchQuery) (services.SearchResult, error) {
	startTime := time.Now()

	kind := strings.ToLower(strings.TrimSpace(query.Kind))
	if kind != "" && kind != services.HitDocument && kind != services.HitObject {
		return services.SearchResult{}, errors.NewValidationError("kind", fmt.Sprintf("unknown hit kind '%s', expected '%s' or '%s'", query.Kind, services.HitDocument, services.HitObject))
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		return services.SearchResult{}, errors.NewValidationError("page_size", fmt.Sprintf("page_size cannot exceed %d", maxPageSize))
	}

	hits := s.rank(query.QueryString)
	if kind != "" {
		filtered := hits[:0]
		for _, hit := range hits {
			if hit.Kind == kind {
				filtered = append(filtered, hit)
			}
		}
		hits = filtered
	}

	total := len(hits)
	hits = s.capped(hits)
	start := (page - 1) * pageSize
	if start > len(hits) {
		start = len(hits)
	}
	end := start + pageSize
	if end > len(hits) {
		end = len(hits)
	}

	tokens := s.Tokens(query.QueryString)
	result := services.SearchResult{
		Hits:     hits[start:end],
		Tokens:   tokens,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		QueryId:  uuid.New().String(),
	}
	if total == 0 {
		result.Suggestions = s.Suggest(tokens)
	}
	result.Took = time.Since(startTime).Milliseconds()
	return result, nil
}

// Suggest proposes indexed terms for every token that matches no term
// exactly or by prefix. Tokens with nothing close are left out; nil means
// there is nothing to suggest.
func (s *Service) Suggest(tokens []string) map[string][]string {
	var suggestions map[string][]string
	for _, token := range tokens {
		if s.snapshot.Terms.Contains(token) {
			continue
		}
		if utf8.RuneCountInString(token) >= s.settings.MinPrefixLength && len(s.snapshot.Terms.PrefixTerms(token, 1)) > 0 {
			continue
		}
		found := s.suggester.Suggest(token, typoutil.MaxDistanceFor(token), maxSuggestions)
		if len(found) == 0 {
			continue
		}
		if suggestions == nil {
			suggestions = make(map[string][]string)
		}
		for _, suggestion := range found {
			suggestions[token] = append(suggestions[token], suggestion.Term)
		}
	}
	return suggestions
}

// LookupTerm returns the exact postings of a single term as hits, scored by
// their posting weight. The term is lowercased but not stop-word filtered.
func (s *Service) LookupTerm(term string) []services.Hit {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []services.Hit{}
	}
	return s.postingHits(term, s.snapshot.Terms.Lookup(term))
}

// PrefixTerms returns up to limit indexed terms starting with prefix.
func (s *Service) PrefixTerms(prefix string, limit int) []string {
	return s.snapshot.Terms.PrefixTerms(strings.ToLower(strings.TrimSpace(prefix)), limit)
}

// PrefixLookup returns the union of postings of every term starting with
// prefix as hits.
func (s *Service) PrefixLookup(prefix string) []services.Hit {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []services.Hit{}
	}
	return s.postingHits(prefix, s.snapshot.Terms.PrefixLookup(prefix))
}

func (s *Service) postingHits(token string, postings index.PostingList) []services.Hit {
	hits := make([]services.Hit, 0, len(postings))
	for _, p := range postings {
		hit, ok := s.hitFor(p.Ref)
		if !ok {
			continue
		}
		hit.Score = p.Weight
		hit.Matches = map[string]string{token: p.Field.String()}
		hits = append(hits, hit)
	}
	sortHits(hits)
	return hits
}

// Document resolves a document by docname.
func (s *Service) Document(docName string) (model.DocumentRecord, error) {
	doc, err := s.snapshot.Documents.Get(docName)
	if err != nil {
		return model.DocumentRecord{}, errors.NewDocumentNotFoundError(docName, s.settings.Name)
	}
	return doc, nil
}

// Object resolves an object by qualified name.
func (s *Service) Object(qualifiedName string) (model.ObjectRecord, error) {
	return s.snapshot.Objects.Resolve(qualifiedName)
}

// ChildrenOf returns the members of an object in declaration order; the
// empty name lists top-level objects.
func (s *Service) ChildrenOf(qualifiedName string) ([]model.ObjectRecord, error) {
	return s.snapshot.Objects.ChildrenOf(qualifiedName)
}

// hitFor materializes the record behind ref. Snapshots are validated on
// build, so a miss only happens for a corrupted snapshot and is skipped.
func (s *Service) hitFor(ref index.Ref) (services.Hit, bool) {
	if ref.Kind == index.RefObject {
		obj, ok := s.snapshot.Objects.ByID(ref.ID)
		if !ok {
			return services.Hit{}, false
		}
		doc, ok := s.snapshot.Documents.ByID(obj.DocID)
		if !ok {
			return services.Hit{}, false
		}
		return services.Hit{
			Kind:     services.HitObject,
			Key:      obj.QualifiedName,
			Title:    obj.QualifiedName,
			Link:     doc.Link(obj.ResolvedAnchor()),
			Document: &doc,
			Object:   &obj,
		}, true
	}

	doc, ok := s.snapshot.Documents.ByID(ref.ID)
	if !ok {
		return services.Hit{}, false
	}
	return services.Hit{
		Kind:     services.HitDocument,
		Key:      doc.DocName,
		Title:    doc.Title,
		Link:     doc.Link(""),
		Document: &doc,
	}, true
}

// sortHits orders hits by descending score, then key, then documents
// before objects.
func sortHits(hits []services.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Key != hits[j].Key {
			return hits[i].Key < hits[j].Key
		}
		return hits[i].Kind == services.HitDocument && hits[j].Kind == services.HitObject
	})
}
