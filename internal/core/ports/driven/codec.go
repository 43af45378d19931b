package driven

import "io"

// Codec compresses a store image into a single stream and back.
type Codec interface {
	// Name returns the codec identifier (e.g. "gzip").
	Name() string

	// Extension returns the conventional file suffix, including the dot.
	Extension() string

	// Compress copies src into dst as one compressed stream.
	Compress(dst io.Writer, src io.Reader) error

	// Decompress copies the decompressed contents of src into dst.
	Decompress(dst io.Writer, src io.Reader) error
}

// CodecResolver picks the codec for an existing archive by its path.
type CodecResolver func(path string) Codec
