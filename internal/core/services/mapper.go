package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

// BodyPolicy derives a section body from a remote section at mapping time.
type BodyPolicy func(s *domain.RemoteSection) string

// ProjectDescriptionBody joins the master texts of the project-specific
// description group with newlines. Missing group or items yield "".
func ProjectDescriptionBody(s *domain.RemoteSection) string {
	group := s.Group(domain.ProjectDescriptionGroup)
	if group == nil {
		return ""
	}
	texts := make([]string, 0, len(group.Contents))
	for _, item := range group.Contents {
		texts = append(texts, item.MasterText)
	}
	return strings.Join(texts, "\n")
}

// EmptyBody leaves the body empty; it is populated by direct authoring only.
func EmptyBody(*domain.RemoteSection) string {
	return ""
}

// BodyPolicyFor returns the body policy of a document kind.
func BodyPolicyFor(kind domain.DocumentKind) BodyPolicy {
	if kind == domain.KindWorkSpecification {
		return ProjectDescriptionBody
	}
	return EmptyBody
}

// SectionMapper converts remote section trees into section arenas.
// It performs no I/O.
type SectionMapper struct {
	policies map[domain.DocumentKind]BodyPolicy
}

// NewSectionMapper creates a mapper with the default body policies.
func NewSectionMapper() *SectionMapper {
	return &SectionMapper{
		policies: map[domain.DocumentKind]BodyPolicy{
			domain.KindWorkSpecification:                BodyPolicyFor(domain.KindWorkSpecification),
			domain.KindConstructionElementSpecification: BodyPolicyFor(domain.KindConstructionElementSpecification),
		},
	}
}

// MapDocument maps a remote document of the given kind. The document's
// Name and GUID are taken from the source; callers fill Key and Code.
func (m *SectionMapper) MapDocument(remote *domain.RemoteDocument, kind domain.DocumentKind) (*domain.MappedDocument, error) {
	if remote == nil || !kind.IsValid() {
		return nil, domain.ErrInvalidInput
	}

	tree, err := m.MapTree(kind, remote.Sections)
	if err != nil {
		return nil, fmt.Errorf("map document %s: %w", remote.ID, err)
	}

	return &domain.MappedDocument{
		Document: domain.Document{
			Kind: kind,
			GUID: remote.ID,
			Name: remote.Name,
		},
		Tree: tree,
	}, nil
}

// MapTree maps a forest of remote sections, preserving shape and sibling
// order. Sections are emitted in pre-order.
func (m *SectionMapper) MapTree(kind domain.DocumentKind, sections []domain.RemoteSection) (domain.SectionTree, error) {
	policy, ok := m.policies[kind]
	if !ok {
		policy = EmptyBody
	}

	n := 0
	for i := range sections {
		n += sections[i].Count()
	}
	tree := domain.SectionTree{Sections: make([]domain.Section, 0, n)}
	if err := m.mapSiblings(&tree, kind, policy, nil, sections); err != nil {
		return domain.SectionTree{}, err
	}
	return tree, nil
}

func (m *SectionMapper) mapSiblings(
	tree *domain.SectionTree,
	kind domain.DocumentKind,
	policy BodyPolicy,
	parent *int,
	sections []domain.RemoteSection,
) error {
	seen := make(map[int]string, len(sections))
	for i := range sections {
		remote := &sections[i]

		sectionNo, err := domain.ParseSectionNo(remote.Number)
		if err != nil {
			return err
		}
		if prev, dup := seen[sectionNo]; dup {
			return fmt.Errorf("%w: sections %q and %q share number %d",
				domain.ErrStoreIntegrityViolation, prev, remote.Number, sectionNo)
		}
		seen[sectionNo] = remote.Number

		if err := uuid.Validate(remote.ID); err != nil {
			return fmt.Errorf("%w: section %q has identifier %q: %w",
				domain.ErrInvalidInput, remote.Number, remote.ID, err)
		}

		key := tree.Add(parent, domain.Section{
			Kind:      kind,
			SectionNo: sectionNo,
			Heading:   remote.Title,
			Body:      policy(remote),
			GUID:      remote.ID,
		})

		if err := m.mapSiblings(tree, kind, policy, &key, remote.Sections); err != nil {
			return err
		}
	}
	return nil
}
