// Package api provides validation utilities for API request handling.
package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/model"
)

const (
	defaultPrefixLimit = 20
	maxPrefixLimit     = 1000
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateIndexName validates an index name parameter. Index names become
// directory names in the data directory.
func ValidateIndexName(indexName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if indexName == "" {
		result.AddError("indexName", "Index name is required")
		return result
	}

	if strings.TrimSpace(indexName) != indexName {
		result.AddError("indexName", "Index name cannot have leading or trailing whitespace")
		return result
	}

	if strings.ContainsAny(indexName, `/\`) || indexName == "." || indexName == ".." {
		result.AddError("indexName", "Index name cannot contain path separators")
	}

	return result
}

// ValidateDocName validates a docname path parameter
func ValidateDocName(docName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if docName == "" {
		result.AddError("docName", "Document name is required")
		return result
	}

	if strings.TrimSpace(docName) != docName {
		result.AddError("docName", "Document name cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateQualifiedName validates a dotted object name
func ValidateQualifiedName(qualifiedName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if qualifiedName == "" {
		result.AddError("qualifiedName", "Qualified name is required")
		return result
	}

	if strings.HasPrefix(qualifiedName, ".") || strings.HasSuffix(qualifiedName, ".") || strings.Contains(qualifiedName, "..") {
		result.AddError("qualifiedName", "Qualified name '"+qualifiedName+"' has an empty component")
	}

	return result
}

// ValidateIndexSettings applies defaults to settings and reports every problem.
// The settings name may be empty; it is then taken from the URL.
func ValidateIndexSettings(indexName string, settings *config.IndexSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		return result
	}
	if settings.Name != "" && settings.Name != indexName {
		result.AddError("settings.name", fmt.Sprintf("Settings name '%s' does not match index '%s'", settings.Name, indexName))
		return result
	}

	resolved := settings.Clone()
	resolved.Name = indexName
	resolved.ApplyDefaults()
	for _, problem := range resolved.Validate() {
		result.AddError("settings", problem)
	}

	return result
}

// ValidateManifest checks a build manifest before it is handed to the builder.
func ValidateManifest(manifest model.BuildManifest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(manifest.Documents) == 0 {
		result.AddError("documents", "At least one document is required")
		return result
	}

	seen := make(map[string]bool, len(manifest.Documents))
	for i, doc := range manifest.Documents {
		field := fmt.Sprintf("documents[%d].doc_name", i)
		switch {
		case strings.TrimSpace(doc.DocName) == "":
			result.AddError(field, "Document name cannot be empty or whitespace-only")
		case seen[doc.DocName]:
			result.AddError(field, "Duplicate document name '"+doc.DocName+"'")
		}
		seen[doc.DocName] = true
	}

	for i, obj := range manifest.Objects {
		if nameResult := ValidateQualifiedName(obj.QualifiedName); nameResult.HasErrors() {
			result.AddError(fmt.Sprintf("objects[%d].qualified_name", i), nameResult.Errors[0].Message)
		}
		if !seen[obj.DocName] {
			result.AddError(fmt.Sprintf("objects[%d].doc_name", i), "Unknown document '"+obj.DocName+"'")
		}
	}

	return result
}

// ValidateJobStatus checks an optional status filter.
func ValidateJobStatus(status string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch model.JobStatus(status) {
	case "", model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
		model.JobStatusFailed, model.JobStatusCancelling, model.JobStatusCancelled:
	default:
		result.AddError("status", "Unknown job status '"+status+"'")
	}

	return result
}

// ValidatePrefixLimit clamps the number of terms returned by a prefix listing.
func ValidatePrefixLimit(limit int) int {
	if limit <= 0 {
		return defaultPrefixLimit
	}
	if limit > maxPrefixLimit {
		return maxPrefixLimit
	}
	return limit
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}

// ValidateQueryBinding validates query parameter binding
func ValidateQueryBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindQuery(target); err != nil {
		result.AddError("query_parameters", "Invalid query parameters: "+err.Error())
	}

	return result
}
