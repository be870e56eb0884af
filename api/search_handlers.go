package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/services"
)

// SearchRequest defines the structure for search queries.
type SearchRequest struct {
	Query    string `json:"query" form:"q"`
	Kind     string `json:"kind,omitempty" form:"kind"` // Optional: "document" or "object"
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"page_size" form:"page_size"`
}

// MultiSearchRequest represents the JSON request for multi-search
type MultiSearchRequest struct {
	Queries  []NamedSearchRequest `json:"queries" binding:"required"`
	Page     int                  `json:"page,omitempty"`
	PageSize int                  `json:"page_size,omitempty"`
}

// NamedSearchRequest represents a single named search query in the request
type NamedSearchRequest struct {
	Name  string `json:"name" binding:"required"`
	Query string `json:"query"`
	Kind  string `json:"kind,omitempty"`
}

// TermsQuery holds the query parameters of a prefix listing.
type TermsQuery struct {
	Prefix string `form:"prefix"`
	Limit  int    `form:"limit"`
}

// SearchHandler handles search requests to an index.
// Request Body: SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	accessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}

	api.search(c, accessor, indexName, req)
}

// SearchQueryHandler is the GET form of SearchHandler: ?q=&kind=&page=&page_size=
func (api *API) SearchQueryHandler(c *gin.Context) {
	accessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req SearchRequest
	if result := ValidateQueryBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	api.search(c, accessor, indexName, req)
}

func (api *API) search(c *gin.Context, accessor services.IndexAccessor, indexName string, req SearchRequest) {
	results, err := accessor.Search(services.SearchQuery{
		QueryString: req.Query,
		Kind:        req.Kind,
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// MultiSearchHandler runs several named queries against one snapshot.
// Request Body: MultiSearchRequest
func (api *API) MultiSearchHandler(c *gin.Context) {
	accessor, indexName, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var req MultiSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}

	query := services.MultiSearchQuery{
		Queries:  make([]services.NamedSearchQuery, len(req.Queries)),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	for i, q := range req.Queries {
		query.Queries[i] = services.NamedSearchQuery{Name: q.Name, Query: q.Query, Kind: q.Kind}
	}

	results, err := accessor.MultiSearch(c.Request.Context(), query)
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// LookupTermHandler returns the raw postings of one stemmed term.
func (api *API) LookupTermHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	term := strings.TrimSpace(c.Param("term"))
	if term == "" {
		result := &ValidationResult{Valid: true}
		result.AddError("term", "Term is required")
		SendValidationError(c, result)
		return
	}

	hits := accessor.LookupTerm(term)
	c.JSON(http.StatusOK, gin.H{
		"term":  strings.ToLower(term),
		"hits":  hits,
		"total": len(hits),
	})
}

// PrefixTermsHandler lists indexed terms starting with ?prefix=, for
// autocompletion.
func (api *API) PrefixTermsHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	var q TermsQuery
	if result := ValidateQueryBinding(c, &q); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if strings.TrimSpace(q.Prefix) == "" {
		result := &ValidationResult{Valid: true}
		result.AddError("prefix", "Prefix is required")
		SendValidationError(c, result)
		return
	}

	terms := accessor.PrefixTerms(q.Prefix, ValidatePrefixLimit(q.Limit))
	c.JSON(http.StatusOK, gin.H{
		"prefix": strings.ToLower(strings.TrimSpace(q.Prefix)),
		"terms":  terms,
		"total":  len(terms),
	})
}
