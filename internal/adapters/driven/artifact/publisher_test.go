package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	require.NoError(t, err)
	return matches
}

func TestPublisher_PublishWritesOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "molio.mspec.gz")

	a, err := NewPublisher().Acquire(context.Background(), out)
	require.NoError(t, err)
	defer a.Release()

	n, err := a.Publish(writeString("archive"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	assert.Empty(t, tempFiles(t, filepath.Dir(out)))
}

func TestPublisher_FailedPublishKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "molio.mspec.gz")
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0644))

	a, err := NewPublisher().Acquire(context.Background(), out)
	require.NoError(t, err)
	defer a.Release()

	boom := errors.New("boom")
	_, err = a.Publish(func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	assert.Empty(t, tempFiles(t, dir))
}

func TestPublisher_FailedPublishCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "molio.mspec.gz")

	a, err := NewPublisher().Acquire(context.Background(), out)
	require.NoError(t, err)
	defer a.Release()

	_, err = a.Publish(func(io.Writer) error { return errors.New("nope") })
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestPublisher_SecondAcquireIsLocked(t *testing.T) {
	out := filepath.Join(t.TempDir(), "molio.mspec.gz")
	p := NewPublisher()

	first, err := p.Acquire(context.Background(), out)
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), out)
	assert.ErrorIs(t, err, domain.ErrArchiveLocked)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	again, err := p.Acquire(context.Background(), out)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestPublisher_PublishAfterRelease(t *testing.T) {
	out := filepath.Join(t.TempDir(), "molio.mspec.gz")

	a, err := NewPublisher().Acquire(context.Background(), out)
	require.NoError(t, err)
	require.NoError(t, a.Release())

	_, err = a.Publish(writeString("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPublisher_EmptyPath(t *testing.T) {
	_, err := NewPublisher().Acquire(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPublisher().Acquire(ctx, filepath.Join(t.TempDir(), "x.gz"))
	assert.ErrorIs(t, err, context.Canceled)
}
