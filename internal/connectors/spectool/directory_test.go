package spectool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "workareas.json", `[{"Id":"wa1","Name":"Area"}]`)
	writeFile(t, dir, "documents-wa1.json", `[{"Id":"d1","Type":"Arbejdsbeskrivelse"}]`)
	writeFile(t, dir, "document-d1.json", `{"Id":"d1","Sections":[{"Title":"T","Number":"1"}]}`)

	src, err := NewDirectorySource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	areas, err := src.WorkAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.WorkArea{{ID: "wa1", Name: "Area"}}, areas)

	refs, err := src.Documents(ctx, "wa1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, domain.RemoteTypeWorkSpecification, refs[0].Type)

	doc, err := src.Document(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Sections[0].Number)

	_, err = src.Document(ctx, "d2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = src.Documents(ctx, "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDirectorySource_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "workareas.json", `{not json`)

	src, err := NewDirectorySource(dir)
	require.NoError(t, err)
	_, err = src.WorkAreas(context.Background())
	assert.Error(t, err)
}

func TestNewDirectorySource_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	writeFile(t, filepath.Dir(file), "f", "x")

	_, err := NewDirectorySource(file)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewDirectorySource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
