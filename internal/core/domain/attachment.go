package domain

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // content address, not a security boundary
	"encoding/hex"
	"strconv"
	"strings"
)

// HashSize is the length in bytes of an attachment content hash.
const HashSize = sha1.Size

// DefaultURNKind is the archive kind embedded in internal references.
const DefaultURNKind = "mspec"

// Attachment is an immutable content blob, addressed by the hash of its bytes.
type Attachment struct {
	// ID is assigned by the archive store on insert.
	ID int64

	// Name is the display name, usually the source file name.
	Name string

	// MimeType is the content type.
	MimeType string

	// Content is the raw bytes.
	Content []byte

	// Hash is the SHA-1 digest of Content and the dedup key.
	Hash []byte
}

// HashContent computes the content hash used as the dedup key.
func HashContent(content []byte) []byte {
	sum := sha1.Sum(content) //nolint:gosec // content address
	return sum[:]
}

// HashKey returns the hash as a lowercase hex string, suitable as a map key.
func (a *Attachment) HashKey() string {
	return hex.EncodeToString(a.Hash)
}

// Matches returns true if the attachment holds the given hash.
func (a *Attachment) Matches(hash []byte) bool {
	return len(hash) == HashSize && bytes.Equal(a.Hash, hash)
}

// SectionAttachment associates a section with an attachment it references.
type SectionAttachment struct {
	SectionID    int64
	AttachmentID int64
}

// CrossReference is an ordered link from a document (optionally a specific
// section of it) to another document.
type CrossReference struct {
	ID           int64
	FromDocument int64
	FromSection  *int64
	ToDocument   int64
	Position     int
}

// CustomData is an opaque key/blob record carried in the archive.
type CustomData struct {
	Key   string
	Value []byte
}

// ManifestKey is the custom data key holding the signed manifest.
const ManifestKey = "claims"

// SupportedImageMimeTypes is the allow-list of image content types a
// downstream renderer must support.
var SupportedImageMimeTypes = []string{
	"image/apng",
	"image/bmp",
	"image/gif",
	"image/jpeg",
	"image/png",
	"image/svg+xml",
	"image/webp",
}

// IsSupportedImageMimeType returns true if mimeType is in the allow-list.
func IsSupportedImageMimeType(mimeType string) bool {
	for _, t := range SupportedImageMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// AttachmentURN builds the internal reference for an attachment:
// urn:<kind>:attachment:<id>.
func AttachmentURN(kind string, id int64) string {
	if kind == "" {
		kind = DefaultURNKind
	}
	return "urn:" + kind + ":attachment:" + strconv.FormatInt(id, 10)
}

// IsInternalReference returns true for sources already rewritten to the
// internal scheme of kind. Other URNs are not internal references.
func IsInternalReference(src, kind string) bool {
	if kind == "" {
		kind = DefaultURNKind
	}
	k, _, ok := parseAttachmentURN(src)
	return ok && k == kind
}

// ParseAttachmentURN returns the attachment id from an internal reference
// of any kind.
func ParseAttachmentURN(src string) (int64, bool) {
	_, id, ok := parseAttachmentURN(src)
	return id, ok
}

func parseAttachmentURN(src string) (string, int64, bool) {
	parts := strings.Split(strings.TrimSpace(src), ":")
	if len(parts) != 4 || !strings.EqualFold(parts[0], "urn") || parts[1] == "" || parts[2] != "attachment" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return parts[1], id, true
}
