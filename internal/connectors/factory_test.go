package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/connectors/spectool"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

func TestFactory_SupportedTypes(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, []string{TypeDirectory, TypeSpecTool}, f.SupportedTypes())
}

func TestFactory_CreateDirectory(t *testing.T) {
	f := NewFactory()

	src, err := f.Create(context.Background(), SourceConfig{Type: TypeDirectory, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &spectool.DirectorySource{}, src)

	_, err = f.Create(context.Background(), SourceConfig{Type: TypeDirectory})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFactory_CreateSpecToolValidation(t *testing.T) {
	f := NewFactory()
	ctx := context.Background()

	_, err := f.Create(ctx, SourceConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.Create(ctx, SourceConfig{URL: "https://spec.example"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	src, err := f.Create(ctx, SourceConfig{URL: "https://spec.example", Token: "tok"})
	require.NoError(t, err)
	assert.IsType(t, &spectool.Client{}, src)
}

func TestFactory_UnknownType(t *testing.T) {
	_, err := NewFactory().Create(context.Background(), SourceConfig{Type: "ftp"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "want one of directory, spectool")
}

func TestFactory_Register(t *testing.T) {
	f := NewFactory()
	called := false
	f.Register("fake", func(_ context.Context, _ SourceConfig) (driven.DocumentSource, error) {
		called = true
		return nil, nil
	})

	_, err := f.Create(context.Background(), SourceConfig{Type: "fake"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, f.SupportedTypes(), "fake")
}
