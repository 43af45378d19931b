package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Every one of them aborts a packaging run.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedSectionNumber indicates a section number has no parseable trailing integer.
	ErrMalformedSectionNumber = errors.New("malformed section number")

	// ErrInvalidImageReference indicates a relative or malformed image URL.
	ErrInvalidImageReference = errors.New("invalid image reference")

	// ErrFetchFailed indicates a remote resource could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUnknownMimeType indicates the content type of an image could not be determined.
	ErrUnknownMimeType = errors.New("unknown mime type")

	// ErrUnsupportedMimeType indicates an image content type outside the allow-list.
	ErrUnsupportedMimeType = errors.New("unsupported mime type")

	// ErrStoreIntegrityViolation indicates a write would break a uniqueness invariant.
	ErrStoreIntegrityViolation = errors.New("store integrity violation")

	// Source Errors.

	// ErrAuthInvalid indicates the document source rejected the credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrAuthRequired indicates no credentials were configured for the document source.
	ErrAuthRequired = errors.New("authentication required")

	// Archive Errors.

	// ErrArchiveLocked indicates another run holds the output archive.
	ErrArchiveLocked = errors.New("archive locked by another run")

	// ErrStoreClosed indicates the archive store has already been closed.
	ErrStoreClosed = errors.New("store closed")
)

// SectionNumberError reports the numbering string that could not be parsed.
type SectionNumberError struct {
	Number string
}

func (e *SectionNumberError) Error() string {
	return fmt.Sprintf("malformed section number %q", e.Number)
}

// Unwrap returns ErrMalformedSectionNumber.
func (e *SectionNumberError) Unwrap() error {
	return ErrMalformedSectionNumber
}

// ImageReferenceError reports an image source that is not an absolute URL.
type ImageReferenceError struct {
	Source string
}

func (e *ImageReferenceError) Error() string {
	return fmt.Sprintf("invalid image source %q: use absolute urls", e.Source)
}

// Unwrap returns ErrInvalidImageReference.
func (e *ImageReferenceError) Unwrap() error {
	return ErrInvalidImageReference
}

// FetchError reports a remote read that did not succeed.
// StatusCode is zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.URL)
}

// Unwrap returns ErrFetchFailed and the underlying transport error, if any.
func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetchFailed, e.Err}
	}
	return []error{ErrFetchFailed}
}

// MimeTypeError reports an image whose content type is unknown or not allowed.
// MimeType is empty when no type could be determined.
type MimeTypeError struct {
	Source   string
	MimeType string
}

func (e *MimeTypeError) Error() string {
	if e.MimeType == "" {
		return fmt.Sprintf("unable to determine mime type for image source %q", e.Source)
	}
	return fmt.Sprintf("unsupported mime type %q for image source %q", e.MimeType, e.Source)
}

// Unwrap returns ErrUnknownMimeType or ErrUnsupportedMimeType.
func (e *MimeTypeError) Unwrap() error {
	if e.MimeType == "" {
		return ErrUnknownMimeType
	}
	return ErrUnsupportedMimeType
}
