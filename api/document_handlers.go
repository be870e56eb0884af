package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/model"
	"github.com/gcbaptista/go-doc-search/services"
)

// DocumentResponse is a page with its sections and general index entries.
type DocumentResponse struct {
	model.DocumentRecord
	Link         string             `json:"link"`
	Sections     []model.Section    `json:"sections"`
	IndexEntries []model.IndexEntry `json:"index_entries"`
}

// ObjectResponse is an object with the page link it resolves to.
type ObjectResponse struct {
	model.ObjectRecord
	Link     string `json:"link"`
	Document string `json:"document"`
}

// GetDocumentHandler resolves a page by docname.
func (api *API) GetDocumentHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	docName := c.Param("docName")
	if result := ValidateDocName(docName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, err := accessor.Document(docName)
	if err != nil {
		SendEngineError(c, "get document", err)
		return
	}

	snap := accessor.Snapshot()
	resp := DocumentResponse{
		DocumentRecord: doc,
		Link:           doc.Link(""),
		Sections:       []model.Section{},
		IndexEntries:   []model.IndexEntry{},
	}
	for _, s := range snap.Sections {
		if s.DocID == doc.ID {
			resp.Sections = append(resp.Sections, s)
		}
	}
	for _, e := range snap.IndexEntries {
		if e.DocID == doc.ID {
			resp.IndexEntries = append(resp.IndexEntries, e)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetObjectHandler resolves an object by qualified name.
func (api *API) GetObjectHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	qualifiedName := c.Param("qualifiedName")
	if result := ValidateQualifiedName(qualifiedName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	obj, err := accessor.Object(qualifiedName)
	if err != nil {
		SendEngineError(c, "get object", err)
		return
	}

	c.JSON(http.StatusOK, objectResponse(accessor, obj))
}

// ListChildrenHandler lists the members of an object in declaration order.
func (api *API) ListChildrenHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	qualifiedName := c.Param("qualifiedName")
	if result := ValidateQualifiedName(qualifiedName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	api.listChildren(c, accessor, qualifiedName)
}

// ListTopLevelObjectsHandler lists objects that have no container, such as modules.
func (api *API) ListTopLevelObjectsHandler(c *gin.Context) {
	accessor, _, ok := api.indexAccessor(c)
	if !ok {
		return
	}

	api.listChildren(c, accessor, "")
}

func (api *API) listChildren(c *gin.Context, accessor services.IndexAccessor, qualifiedName string) {
	children, err := accessor.ChildrenOf(qualifiedName)
	if err != nil {
		SendEngineError(c, "list children", err)
		return
	}

	objects := make([]ObjectResponse, len(children))
	for i, child := range children {
		objects[i] = objectResponse(accessor, child)
	}
	c.JSON(http.StatusOK, gin.H{
		"parent":  qualifiedName,
		"objects": objects,
		"total":   len(objects),
	})
}

func objectResponse(accessor services.IndexAccessor, obj model.ObjectRecord) ObjectResponse {
	resp := ObjectResponse{ObjectRecord: obj}
	if doc, ok := accessor.Snapshot().Documents.ByID(obj.DocID); ok {
		resp.Document = doc.DocName
		resp.Link = doc.Link(obj.ResolvedAnchor())
	}
	return resp
}
