package domain

import (
	"strconv"
	"strings"
)

// DocumentKind discriminates the document types stored in one archive.
// Sections of every kind share one shape and one table.
type DocumentKind string

// Available document kinds.
const (
	// KindWorkSpecification is a work specification (Arbejdsbeskrivelse).
	KindWorkSpecification DocumentKind = "work_specification"

	// KindConstructionElementSpecification is a construction element
	// specification (Bygningsdelsbeskrivelse).
	KindConstructionElementSpecification DocumentKind = "construction_element_specification"
)

// IsValid returns true if the document kind is recognised.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindWorkSpecification, KindConstructionElementSpecification:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k DocumentKind) String() string {
	return string(k)
}

// Document is a top-level named unit owning an ordered forest of sections.
type Document struct {
	// ID is assigned by the archive store on insert.
	ID int64

	// Kind is the document type.
	Kind DocumentKind

	// GUID is the stable identifier from the source system.
	GUID string

	// Key is a fresh identifier minted per run for work specifications.
	Key string

	// Name is the display name.
	Name string

	// Code is the optional classification code (the work area id for
	// work specifications).
	Code string
}

// Section is a node in a document's section tree.
type Section struct {
	// ID is assigned by the archive store on insert.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Kind mirrors the owning document's kind.
	Kind DocumentKind

	// Key is the arena index of this section within its SectionTree.
	Key int

	// ParentKey is the arena index of the parent, nil for roots.
	ParentKey *int

	// ParentID is the store identifier of the parent, nil for roots.
	ParentID *int64

	// SectionNo is the position among siblings.
	SectionNo int

	// Heading is the section title.
	Heading string

	// Body is an HTML fragment.
	Body string

	// GUID is the stable identifier from the source system.
	GUID string
}

// IsRoot returns true if the section has no parent.
func (s *Section) IsRoot() bool {
	return s.ParentKey == nil && s.ParentID == nil
}

// SectionTree is an arena of sections in pre-order. Parents always
// precede their children, so the slice can be persisted front to back.
type SectionTree struct {
	Sections []Section
}

// Add appends a section under parent (nil for a root) and returns its key.
func (t *SectionTree) Add(parent *int, s Section) int {
	s.Key = len(t.Sections)
	if parent != nil {
		p := *parent
		s.ParentKey = &p
	}
	t.Sections = append(t.Sections, s)
	return s.Key
}

// Len returns the number of sections in the tree.
func (t *SectionTree) Len() int {
	return len(t.Sections)
}

// Roots returns the root sections in sibling order.
func (t *SectionTree) Roots() []*Section {
	return t.Children(nil)
}

// Children returns the direct children of parent in sibling order.
// A nil parent selects the roots.
func (t *SectionTree) Children(parent *int) []*Section {
	var out []*Section
	for i := range t.Sections {
		s := &t.Sections[i]
		switch {
		case parent == nil && s.IsRoot():
			out = append(out, s)
		case parent != nil && s.ParentKey != nil && *s.ParentKey == *parent:
			out = append(out, s)
		}
	}
	return out
}

// ParseSectionNo extracts the sibling position from a dotted numbering
// string: "2.1.5" yields 5, "1." yields 1.
func ParseSectionNo(number string) (int, error) {
	parts := strings.Split(strings.Trim(number, "."), ".")
	last := parts[len(parts)-1]
	n, err := strconv.ParseInt(last, 10, 0)
	if err != nil {
		return 0, &SectionNumberError{Number: number}
	}
	return int(n), nil
}

// MappedDocument is a document together with its section tree, ready
// to be persisted.
type MappedDocument struct {
	Document Document
	Tree     SectionTree
}
