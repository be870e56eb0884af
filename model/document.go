package model

import "strings"

// DocumentRecord describes one documentation page.
// ID is the page's position in the document registry and doubles as the
// document index used by Sphinx search indexes.
type DocumentRecord struct {
	ID       uint32 `json:"id"`
	DocName  string `json:"doc_name"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// Link returns the page URL relative to the documentation root, with an
// optional fragment.
func (d DocumentRecord) Link(anchor string) string {
	link := d.DocName + ".html"
	if anchor != "" {
		link += "#" + anchor
	}
	return link
}

// Section is a titled section inside a document (Sphinx "alltitles").
type Section struct {
	Title  string `json:"title"`
	DocID  uint32 `json:"doc_id"`
	Anchor string `json:"anchor,omitempty"`
}

// IndexEntry is an entry of the generated general index (Sphinx "indexentries").
type IndexEntry struct {
	Text   string `json:"text"`
	DocID  uint32 `json:"doc_id"`
	Anchor string `json:"anchor,omitempty"`
}

// DocumentInput is one page of a build manifest.
type DocumentInput struct {
	DocName  string `json:"doc_name" yaml:"doc_name"`
	Title    string `json:"title" yaml:"title"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Body     string `json:"body,omitempty" yaml:"body,omitempty"`
}

// ResolvedFilename returns Filename, or "<docname>.rst" when it was left empty.
func (d DocumentInput) ResolvedFilename() string {
	if strings.TrimSpace(d.Filename) != "" {
		return d.Filename
	}
	return d.DocName + ".rst"
}

// ObjectInput is one documented object of a build manifest.
type ObjectInput struct {
	QualifiedName string `json:"qualified_name" yaml:"qualified_name"`
	Kind          string `json:"kind" yaml:"kind"`
	DocName       string `json:"doc_name" yaml:"doc_name"`
	Signature     string `json:"signature,omitempty" yaml:"signature,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
}

// BuildManifest is the native input for building an index without Sphinx.
type BuildManifest struct {
	Documents []DocumentInput `json:"documents" yaml:"documents"`
	Objects   []ObjectInput   `json:"objects,omitempty" yaml:"objects,omitempty"`
}
