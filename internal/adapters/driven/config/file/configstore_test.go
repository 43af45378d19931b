package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mspec", "config.toml"), store.Path())
}

func TestConfigStore_GetString(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("spectool.url", "https://spec.example"))
	assert.Equal(t, "https://spec.example", store.GetString("spectool.url"))
	assert.Equal(t, "", store.GetString("nonexistent"))

	require.NoError(t, store.Set("images.concurrency", 8))
	assert.Equal(t, "", store.GetString("images.concurrency"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "int", value: 42, want: 42},
		{name: "int64", value: int64(7), want: 7},
		{name: "numeric string", value: " 12 ", want: 12},
		{name: "text", value: "many", want: 0},
		{name: "bool", value: true, want: 0},
	}

	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Set("k", tt.value))
			assert.Equal(t, tt.want, store.GetInt("k"))
		})
	}
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_GetBool(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("a", true))
	require.NoError(t, store.Set("b", "false"))
	require.NoError(t, store.Set("c", "TRUE"))
	require.NoError(t, store.Set("d", "maybe"))

	assert.True(t, store.GetBool("a"))
	assert.False(t, store.GetBool("b"))
	assert.True(t, store.GetBool("c"))
	assert.False(t, store.GetBool("d"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("list", []string{"a", "b"}))
	require.NoError(t, store.Set("csv", "x, y,,z"))

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Equal(t, []string{"x", "y", "z"}, store.GetStringSlice("csv"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("spectool.url", "https://spec.example"))
	require.NoError(t, store.Set("spectool.work_area", "Harbour"))
	require.NoError(t, store.Set("images.concurrency", 6))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[spectool]")
	assert.Contains(t, string(data), "[images]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "https://spec.example", reloaded.GetString("spectool.url"))
	assert.Equal(t, "Harbour", reloaded.GetString("spectool.work_area"))
	assert.Equal(t, 6, reloaded.GetInt("images.concurrency"))
	assert.Equal(t, []string{"images.concurrency", "spectool.url", "spectool.work_area"}, reloaded.Keys())
}

func TestConfigStore_LoadNestedFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := "[output]\npath = \"out.db.gz\"\ncompression = \"zstd\"\n\n[manifest]\nenabled = false\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "out.db.gz", store.GetString("output.path"))
	assert.Equal(t, "zstd", store.GetString("output.compression"))
	_, ok := store.Get("manifest.enabled")
	assert.True(t, ok)
	assert.False(t, store.GetBool("manifest.enabled"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("manifest.secret", "00ff"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("images.concurrency", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("images.concurrency")
		}()
	}
	wg.Wait()
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[[[broken"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestNestMap(t *testing.T) {
	flat := map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
		"a.c":   "shadowed",
	}

	nested := nestMap(flat)

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flattenMap(nested, ""))
}
