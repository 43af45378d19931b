package domain

import (
	"crypto/sha1" //nolint:gosec // test vector
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	content := []byte("png bytes")
	want := sha1.Sum(content) //nolint:gosec // test vector

	got := HashContent(content)

	assert.Len(t, got, HashSize)
	assert.Equal(t, want[:], got)
	assert.NotEqual(t, got, HashContent([]byte("png bytez")))
}

func TestAttachment_Matches(t *testing.T) {
	a := Attachment{Hash: HashContent([]byte("a"))}

	assert.True(t, a.Matches(HashContent([]byte("a"))))
	assert.False(t, a.Matches(HashContent([]byte("b"))))
	assert.False(t, a.Matches(a.Hash[:4]), "truncated hashes never match")
	assert.Len(t, a.HashKey(), 2*HashSize)
}

func TestIsSupportedImageMimeType(t *testing.T) {
	for _, mt := range []string{"image/apng", "image/bmp", "image/gif", "image/jpeg", "image/png", "image/svg+xml", "image/webp"} {
		assert.True(t, IsSupportedImageMimeType(mt), mt)
	}
	for _, mt := range []string{"application/octet-stream", "image/tiff", "text/html", ""} {
		assert.False(t, IsSupportedImageMimeType(mt), mt)
	}
}

func TestAttachmentURN(t *testing.T) {
	assert.Equal(t, "urn:mspec:attachment:7", AttachmentURN("mspec", 7))
	assert.Equal(t, "urn:mspec:attachment:3", AttachmentURN("", 3))
	assert.Equal(t, "urn:molio:attachment:12", AttachmentURN("molio", 12))
}

func TestIsInternalReference(t *testing.T) {
	tests := []struct {
		src  string
		kind string
		want bool
	}{
		{"urn:mspec:attachment:1", "mspec", true},
		{" URN:mspec:attachment:1", "", true},
		{"urn:molio:attachment:7", "molio", true},
		{"urn:molio:attachment:7", "mspec", false},
		{"urn:isbn:0451450523", "mspec", false},
		{"urn:mspec:attachment:x", "mspec", false},
		{"http://example.com/a.png", "mspec", false},
		{"images/urn.png", "mspec", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsInternalReference(tt.src, tt.kind), "%s (%s)", tt.src, tt.kind)
	}
}

func TestParseAttachmentURN(t *testing.T) {
	id, ok := ParseAttachmentURN("urn:mspec:attachment:42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, src := range []string{"urn:mspec:attachment:", "urn:mspec:attachment:x", "urn:mspec:image:1", "http://a/b", "urn:mspec:attachment:0"} {
		_, ok := ParseAttachmentURN(src)
		assert.False(t, ok, src)
	}
}
