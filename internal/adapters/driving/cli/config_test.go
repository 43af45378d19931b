package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mspec/internal/core/domain"
)

func TestConfigCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range configCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"get", "set", "path"}, names)
}

func TestConfigCmd_SetAndGet(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()

	out, err := execute(t, "config", "set", file.KeySpecToolURL, "https://spec.example")
	require.NoError(t, err)
	assert.Contains(t, out, "spectool.url updated")

	out, err = execute(t, "config", "get", file.KeySpecToolURL)
	require.NoError(t, err)
	assert.Equal(t, "https://spec.example\n", out)
}

func TestConfigCmd_GetAllMasksSecrets(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()

	_, err := execute(t, "config", "set", file.KeyToken, "very-secret")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", file.KeyImageConcurrency, "8")
	require.NoError(t, err)

	out, err := execute(t, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, file.KeyImageConcurrency)
	assert.Contains(t, out, "8")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "very-secret")
}

func TestConfigCmd_GetEmpty(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()

	out, err := execute(t, "config", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration in")
}

func TestConfigCmd_GetMissing(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()

	_, err := execute(t, "config", "get", file.KeyWorkArea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spectool.work_area is not set")
}

func TestConfigCmd_SetRejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "colour", "blue"},
		{"bad compression", file.KeyCompression, "rar"},
		{"bad number", file.KeyImageConcurrency, "many"},
		{"bad bool", file.KeyManifestEnabled, "sometimes"},
		{"bad secret", file.KeyManifestSecret, "xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, restore := setupTestWiring(t)
			defer restore()

			_, err := execute(t, "config", "set", tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestConfigCmd_Path(t *testing.T) {
	_, restore := setupTestWiring(t)
	defer restore()

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "config.toml", filepath.Base(out[:len(out)-1]))
}
