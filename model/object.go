package model

import "strings"

// ObjectKind classifies a documented programmatic entity.
type ObjectKind uint8

const (
	KindOther ObjectKind = iota
	KindModule
	KindFunction
	KindClass
	KindAttribute
	KindMethod
	KindProperty
	KindException
	KindData
)

var kindNames = map[ObjectKind]string{
	KindOther:     "other",
	KindModule:    "module",
	KindFunction:  "function",
	KindClass:     "class",
	KindAttribute: "attribute",
	KindMethod:    "method",
	KindProperty:  "property",
	KindException: "exception",
	KindData:      "data",
}

func (k ObjectKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "other"
}

// MarshalText lets kinds travel as strings in JSON and YAML.
func (k ObjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a role name; unknown roles become KindOther.
func (k *ObjectKind) UnmarshalText(text []byte) error {
	*k = ParseObjectKind(string(text))
	return nil
}

// ParseObjectKind maps a role name such as "method" or "py:method" to a kind.
// Role aliases used by documentation generators (classmethod, staticmethod)
// collapse onto their base kind.
func ParseObjectKind(role string) ObjectKind {
	role = strings.ToLower(strings.TrimSpace(role))
	if i := strings.LastIndexByte(role, ':'); i >= 0 {
		role = role[i+1:]
	}
	switch role {
	case "module":
		return KindModule
	case "function":
		return KindFunction
	case "class":
		return KindClass
	case "attribute":
		return KindAttribute
	case "method", "classmethod", "staticmethod":
		return KindMethod
	case "property":
		return KindProperty
	case "exception":
		return KindException
	case "data":
		return KindData
	default:
		return KindOther
	}
}

// ObjectType is a (domain, role, label) triple such as ("py", "function", "Python function").
type ObjectType struct {
	Domain string `json:"domain"`
	Role   string `json:"role"`
	Label  string `json:"label"`
}

// Key returns "domain:role", the form used in Sphinx objtypes.
func (t ObjectType) Key() string {
	return t.Domain + ":" + t.Role
}

// DefaultObjectType returns the Python-domain type for a kind.
func DefaultObjectType(kind ObjectKind) ObjectType {
	role := kind.String()
	return ObjectType{Domain: "py", Role: role, Label: "Python " + role}
}

// ObjectRecord describes one documented object.
// Parent is the qualified name of the container and is a non-owning
// back-reference; it may name an object that was never registered
// (for example the package of a documented module).
type ObjectRecord struct {
	ID            uint32     `json:"id"`
	QualifiedName string     `json:"qualified_name"`
	Name          string     `json:"name"`
	Parent        string     `json:"parent"`
	Kind          ObjectKind `json:"kind"`
	Type          ObjectType `json:"type"`
	DocID         uint32     `json:"doc_id"`
	Anchor        string     `json:"anchor,omitempty"`
	Priority      int        `json:"priority"`
	Signature     string     `json:"signature,omitempty"`
}

// SplitQualifiedName splits "config.Config.binvol" into ("config.Config", "binvol").
func SplitQualifiedName(qualifiedName string) (parent, name string) {
	if i := strings.LastIndexByte(qualifiedName, '.'); i >= 0 {
		return qualifiedName[:i], qualifiedName[i+1:]
	}
	return "", qualifiedName
}

// ResolvedAnchor expands the compact Sphinx anchor encoding:
// "" means the anchor equals the qualified name and "-" means "<role>-<qualified name>".
func (o ObjectRecord) ResolvedAnchor() string {
	switch o.Anchor {
	case "":
		return o.QualifiedName
	case "-":
		return o.Type.Role + "-" + o.QualifiedName
	default:
		return o.Anchor
	}
}
