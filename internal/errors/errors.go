package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions
var (
	// ErrNotFound is matched by every "no such thing" error below
	ErrNotFound = errors.New("not found")

	// ErrIndexNotFound is returned when an index is not found
	ErrIndexNotFound = errors.New("index not found")

	// ErrDocumentNotFound is returned when a document is not registered
	ErrDocumentNotFound = errors.New("document not found")

	// ErrObjectNotFound is returned when an object is not registered
	ErrObjectNotFound = errors.New("object not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateDocument is returned when a docname is registered twice
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrDuplicateObject is returned when a qualified name is registered twice with a different kind
	ErrDuplicateObject = errors.New("duplicate object")

	// ErrDanglingReference is returned when a posting, object or section points outside its registry
	ErrDanglingReference = errors.New("dangling reference")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrBuildSealed is returned when a builder is used after Build or after a failed mutation
	ErrBuildSealed = errors.New("build sealed")
)

// IndexNotFoundError represents an index not found error with context
type IndexNotFoundError struct {
	IndexName string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("index named '%s' not found", e.IndexName)
}

func (e *IndexNotFoundError) Is(target error) bool {
	return target == ErrIndexNotFound || target == ErrNotFound
}

// NewIndexNotFoundError creates a new IndexNotFoundError
func NewIndexNotFoundError(indexName string) *IndexNotFoundError {
	return &IndexNotFoundError{IndexName: indexName}
}

// DocumentNotFoundError represents a document not found error with context
type DocumentNotFoundError struct {
	DocName   string
	IndexName string
}

func (e *DocumentNotFoundError) Error() string {
	if e.IndexName != "" {
		return fmt.Sprintf("document '%s' not found in index '%s'", e.DocName, e.IndexName)
	}
	return fmt.Sprintf("document '%s' not found", e.DocName)
}

func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound || target == ErrNotFound
}

// NewDocumentNotFoundError creates a new DocumentNotFoundError
func NewDocumentNotFoundError(docName string, indexName ...string) *DocumentNotFoundError {
	err := &DocumentNotFoundError{DocName: docName}
	if len(indexName) > 0 {
		err.IndexName = indexName[0]
	}
	return err
}

// ObjectNotFoundError represents an unknown qualified object name
type ObjectNotFoundError struct {
	QualifiedName string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object '%s' not found", e.QualifiedName)
}

func (e *ObjectNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound || target == ErrNotFound
}

// NewObjectNotFoundError creates a new ObjectNotFoundError
func NewObjectNotFoundError(qualifiedName string) *ObjectNotFoundError {
	return &ObjectNotFoundError{QualifiedName: qualifiedName}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound || target == ErrNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// DuplicateDocumentError is returned when a docname is already registered
type DuplicateDocumentError struct {
	DocName       string
	ExistingTitle string
	Title         string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document '%s' already registered (title '%s', rejected title '%s')", e.DocName, e.ExistingTitle, e.Title)
}

func (e *DuplicateDocumentError) Is(target error) bool {
	return target == ErrDuplicateDocument
}

// NewDuplicateDocumentError creates a new DuplicateDocumentError
func NewDuplicateDocumentError(docName, existingTitle, title string) *DuplicateDocumentError {
	return &DuplicateDocumentError{DocName: docName, ExistingTitle: existingTitle, Title: title}
}

// DuplicateObjectError is returned when a qualified name is registered with a conflicting kind
type DuplicateObjectError struct {
	QualifiedName string
	ExistingKind  string
	Kind          string
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("object '%s' already registered as %s, cannot register as %s", e.QualifiedName, e.ExistingKind, e.Kind)
}

func (e *DuplicateObjectError) Is(target error) bool {
	return target == ErrDuplicateObject
}

// NewDuplicateObjectError creates a new DuplicateObjectError
func NewDuplicateObjectError(qualifiedName, existingKind, kind string) *DuplicateObjectError {
	return &DuplicateObjectError{QualifiedName: qualifiedName, ExistingKind: existingKind, Kind: kind}
}

// DanglingReferenceError collects every reference that points outside its registry
type DanglingReferenceError struct {
	References []string
}

func (e *DanglingReferenceError) Error() string {
	const maxShown = 5
	shown := e.References
	suffix := ""
	if len(shown) > maxShown {
		suffix = fmt.Sprintf(" (and %d more)", len(shown)-maxShown)
		shown = shown[:maxShown]
	}
	return fmt.Sprintf("%d dangling reference(s): %s%s", len(e.References), strings.Join(shown, "; "), suffix)
}

func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// NewDanglingReferenceError creates a new DanglingReferenceError
func NewDanglingReferenceError(references []string) *DanglingReferenceError {
	return &DanglingReferenceError{References: references}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
