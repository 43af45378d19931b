package domain

// Source document types as named by the spec tool.
const (
	// RemoteTypeWorkSpecification marks a work specification in a listing.
	RemoteTypeWorkSpecification = "Arbejdsbeskrivelse"

	// RemoteTypeConstructionElementSpecification marks a construction
	// element specification in a listing.
	RemoteTypeConstructionElementSpecification = "Bygningsdelsbeskrivelse"

	// ProjectDescriptionGroup is the content group whose master texts form
	// a work specification section body.
	ProjectDescriptionGroup = "Projektspecifik beskrivelse"
)

// WorkArea is a named collection of documents in the document source.
type WorkArea struct {
	ID     string `json:"Id"`
	Name   string `json:"Name"`
	Access string `json:"Access"`
}

// DocumentRef is a document entry in a work area listing.
type DocumentRef struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	WorkAreaID   string `json:"WorkAreaId"`
	WorkAreaName string `json:"WorkAreaName"`
	Type         string `json:"Type"`
}

// RemoteDocument is a document with its full section tree as delivered by
// the document source.
type RemoteDocument struct {
	ID           string          `json:"Id"`
	Name         string          `json:"Name"`
	WorkAreaID   string          `json:"WorkAreaId"`
	WorkAreaName string          `json:"WorkAreaName"`
	Type         string          `json:"Type"`
	DocumentType string          `json:"DocumentType"`
	Sections     []RemoteSection `json:"Sections"`
}

// RemoteSection is one node of a remote section tree.
type RemoteSection struct {
	ID       string          `json:"Id"`
	Title    string          `json:"Title"`
	Number   string          `json:"Number"`
	Groups   []ContentGroup  `json:"Groups"`
	Sections []RemoteSection `json:"Sections"`
}

// Group returns the content group with the given name, or nil.
func (s *RemoteSection) Group(name string) *ContentGroup {
	for i := range s.Groups {
		if s.Groups[i].Name == name {
			return &s.Groups[i]
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree rooted at s.
func (s *RemoteSection) Count() int {
	n := 1
	for i := range s.Sections {
		n += s.Sections[i].Count()
	}
	return n
}

// ContentGroup is a named set of content items within a section.
type ContentGroup struct {
	Name     string        `json:"Name"`
	Contents []ContentItem `json:"Contents"`
}

// ContentItem is one text fragment of a content group.
type ContentItem struct {
	ID           string `json:"Id"`
	IsMasterText bool   `json:"IsMasterText"`
	MasterTextID string `json:"MasterTextId"`
	Text         string `json:"Text"`
	MasterText   string `json:"MasterText"`
}
