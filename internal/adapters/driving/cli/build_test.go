package cli

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/logger"
)

func TestBuildCmd_Flags(t *testing.T) {
	for _, name := range []string{"output", "work-area", "from", "compression", "concurrency", "no-manifest"} {
		assert.NotNil(t, buildCmd.Flags().Lookup(name), name)
	}
}

func TestBuildCmd_RunsPipeline(t *testing.T) {
	te, restore := setupTestWiring(t)
	defer restore()

	out, err := execute(t, "build", "--from", t.TempDir(), "-w", "Harbour", "-o", "out.db.zst",
		"--compression", "zstd", "--concurrency", "2", "--no-manifest")
	require.NoError(t, err)

	require.Len(t, te.packager.requests, 1)
	assert.Equal(t, "Harbour", te.packager.requests[0].WorkArea)
	assert.Equal(t, "out.db.zst", te.packager.requests[0].OutputPath)
	assert.Equal(t, "zstd", te.settings.Compression)
	assert.Equal(t, 2, te.settings.ImageConcurrency)
	assert.False(t, te.settings.ManifestEnabled)

	assert.Contains(t, out, "Wrote out.db.zst")
	assert.Contains(t, out, "Attachments")
	assert.Contains(t, out, "signed")
	assert.NotContains(t, out, "Source documents")
}

func TestBuildCmd_VerboseListsSourceDocuments(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)
	defer logger.SetVerbose(false)

	out, err := execute(t, "-v", "build", "--from", ".", "-w", "Harbour")
	require.NoError(t, err)
	assert.Contains(t, out, "Source documents: d1, d2")
}

func TestBuildCmd_UsesConfiguredDefaults(t *testing.T) {
	te, restore := setupTestWiring(t)
	defer restore()
	te.env[file.EnvSpecToolURL] = "https://spec.example"
	te.env[file.EnvCredentials] = "alice:pw"

	_, err := execute(t, "config", "set", file.KeyWorkArea, "Harbour")
	require.NoError(t, err)

	_, err = execute(t, "build")
	require.NoError(t, err)
	require.Len(t, te.packager.requests, 1)
	assert.Equal(t, "Harbour", te.packager.requests[0].WorkArea)
	assert.Equal(t, file.DefaultOutputPath, te.packager.requests[0].OutputPath)
	assert.Equal(t, "alice:pw", te.settings.Credentials)
}

func TestBuildCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr error
		wantMsg string
	}{
		{
			name:    "no source",
			args:    []string{"build", "-w", "Harbour"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "no credentials",
			args:    []string{"build", "-w", "Harbour"},
			env:     map[string]string{file.EnvSpecToolURL: "https://spec.example"},
			wantErr: domain.ErrAuthRequired,
		},
		{
			name:    "no work area",
			args:    []string{"build", "--from", "."},
			wantMsg: "no work area",
		},
		{
			name:    "bad compression",
			args:    []string{"build", "--from", ".", "-w", "Harbour", "--compression", "rar"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "unexpected argument",
			args:    []string{"build", "extra"},
			wantMsg: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te, restore := setupTestWiring(t)
			defer restore()
			for k, v := range tt.env {
				te.env[k] = v
			}

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, te.packager.requests)
		})
	}
}

func TestBuildCmd_PipelineError(t *testing.T) {
	te, restore := setupTestWiring(t)
	defer restore()
	te.packager.err = domain.ErrArchiveLocked

	_, err := execute(t, "build", "--from", ".", "-w", "Harbour")
	assert.ErrorIs(t, err, domain.ErrArchiveLocked)
}

func TestBuildCmd_AuthErrorHint(t *testing.T) {
	te, restore := setupTestWiring(t)
	defer restore()
	te.packager.err = domain.ErrAuthInvalid

	_, err := execute(t, "build", "--from", ".", "-w", "Harbour")
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Contains(t, err.Error(), file.EnvCredentials)
}

func TestBuildCmd_NotConfigured(t *testing.T) {
	previous := wiring
	wiring = nil
	defer func() { wiring = previous }()

	_, err := execute(t, "build", "--from", ".", "-w", "Harbour")
	assert.ErrorIs(t, err, errNotConfigured)
}
