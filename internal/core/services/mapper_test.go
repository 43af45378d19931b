package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

func projectGroup(texts ...string) []domain.ContentGroup {
	items := make([]domain.ContentItem, 0, len(texts))
	for _, t := range texts {
		items = append(items, domain.ContentItem{IsMasterText: true, MasterText: t})
	}
	return []domain.ContentGroup{{Name: domain.ProjectDescriptionGroup, Contents: items}}
}

func TestSectionMapper_MapTree_PreservesShapeAndOrder(t *testing.T) {
	type node struct {
		guid      string
		heading   string
		sectionNo int
		parent    string // GUID of the parent, "" for a root
	}

	tests := []struct {
		name  string
		input []domain.RemoteSection
		roots []string
		want  []node
	}{
		{
			name: "sibling order kept",
			input: []domain.RemoteSection{
				{ID: guidA, Title: "Scope", Number: "1", Sections: []domain.RemoteSection{
					{ID: guidB, Title: "Walls", Number: "1.2"},
					{ID: guidC, Title: "Roof", Number: "1.1"},
				}},
				{ID: guidD, Title: "Materials", Number: "2."},
			},
			roots: []string{guidA, guidD},
			want: []node{
				{guidA, "Scope", 1, ""},
				{guidB, "Walls", 2, guidA},
				{guidC, "Roof", 1, guidA},
				{guidD, "Materials", 2, ""},
			},
		},
		{
			name: "three levels deep",
			input: []domain.RemoteSection{
				{ID: guidA, Title: "General", Number: "1"},
				{ID: guidB, Title: "Floors", Number: "2", Sections: []domain.RemoteSection{
					{ID: guidC, Title: "Screed", Number: "2.1", Sections: []domain.RemoteSection{
						{ID: guidD, Title: "Tolerances", Number: "2.1.5"},
					}},
				}},
			},
			roots: []string{guidA, guidB},
			want: []node{
				{guidA, "General", 1, ""},
				{guidB, "Floors", 2, ""},
				{guidC, "Screed", 1, guidB},
				{guidD, "Tolerances", 5, guidC},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := NewSectionMapper().MapTree(domain.KindWorkSpecification, tt.input)
			require.NoError(t, err)
			require.Equal(t, len(tt.want), tree.Len())

			var roots []string
			for _, r := range tree.Roots() {
				roots = append(roots, r.GUID)
			}
			assert.Equal(t, tt.roots, roots)

			for i, want := range tt.want {
				got := tree.Sections[i]
				assert.Equal(t, want.guid, got.GUID, "section %d", i)
				assert.Equal(t, want.heading, got.Heading, "section %d", i)
				assert.Equal(t, want.sectionNo, got.SectionNo, "section %d", i)
				if want.parent == "" {
					assert.Nil(t, got.ParentKey, "section %d", i)
					continue
				}
				require.NotNil(t, got.ParentKey, "section %d", i)
				assert.Equal(t, want.parent, tree.Sections[*got.ParentKey].GUID, "section %d", i)
			}
		})
	}
}

func TestSectionMapper_BodyPolicies(t *testing.T) {
	m := NewSectionMapper()
	remote := []domain.RemoteSection{{
		ID: guidA, Number: "1",
		Groups: append(projectGroup("first", "second"), domain.ContentGroup{
			Name:     "Other",
			Contents: []domain.ContentItem{{MasterText: "ignored"}},
		}),
	}}

	ws, err := m.MapTree(domain.KindWorkSpecification, remote)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", ws.Sections[0].Body)

	ces, err := m.MapTree(domain.KindConstructionElementSpecification, remote)
	require.NoError(t, err)
	assert.Equal(t, "", ces.Sections[0].Body)
	assert.Equal(t, domain.KindConstructionElementSpecification, ces.Sections[0].Kind)
}

func TestProjectDescriptionBody_MissingGroup(t *testing.T) {
	assert.Equal(t, "", ProjectDescriptionBody(&domain.RemoteSection{}))
	assert.Equal(t, "", ProjectDescriptionBody(&domain.RemoteSection{Groups: projectGroup()}))
}

func TestSectionMapper_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   []domain.RemoteSection
		wantErr error
	}{
		{
			name:    "malformed number",
			input:   []domain.RemoteSection{{ID: guidA, Number: "1.x"}},
			wantErr: domain.ErrMalformedSectionNumber,
		},
		{
			name:    "empty number",
			input:   []domain.RemoteSection{{ID: guidA, Number: ""}},
			wantErr: domain.ErrMalformedSectionNumber,
		},
		{
			name: "duplicate sibling number",
			input: []domain.RemoteSection{
				{ID: guidA, Number: "1"},
				{ID: guidB, Number: "2.1"},
			},
			wantErr: domain.ErrStoreIntegrityViolation,
		},
		{
			name:    "nested malformed number",
			input:   []domain.RemoteSection{{ID: guidA, Number: "1", Sections: []domain.RemoteSection{{ID: guidB, Number: "?"}}}},
			wantErr: domain.ErrMalformedSectionNumber,
		},
		{
			name:    "identifier not a uuid",
			input:   []domain.RemoteSection{{ID: "section-1", Number: "1"}},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSectionMapper().MapTree(domain.KindWorkSpecification, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSectionMapper_MalformedNumberCarriesValue(t *testing.T) {
	_, err := NewSectionMapper().MapTree(domain.KindWorkSpecification,
		[]domain.RemoteSection{{ID: guidA, Number: "A.b"}})

	var numErr *domain.SectionNumberError
	require.ErrorAs(t, err, &numErr)
	assert.Equal(t, "A.b", numErr.Number)
}

func TestSectionMapper_MapDocument(t *testing.T) {
	m := NewSectionMapper()
	remote := &domain.RemoteDocument{
		ID:       "doc-1",
		Name:     "Facade",
		Sections: []domain.RemoteSection{{ID: guidA, Number: "1", Title: "General"}},
	}

	mapped, err := m.MapDocument(remote, domain.KindConstructionElementSpecification)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", mapped.Document.GUID)
	assert.Equal(t, "Facade", mapped.Document.Name)
	assert.Equal(t, 1, mapped.Tree.Len())

	_, err = m.MapDocument(nil, domain.KindWorkSpecification)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = m.MapDocument(remote, domain.DocumentKind("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSectionMapper_EmptyForest(t *testing.T) {
	tree, err := NewSectionMapper().MapTree(domain.KindWorkSpecification, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
}
