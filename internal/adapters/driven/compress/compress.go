// Package compress provides the archive codecs: gzip (the default), zstd
// and lz4. All of them stream, so an archive is never held in memory.
package compress

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Codec names.
const (
	Gzip = "gzip"
	Zstd = "zstd"
	LZ4  = "lz4"
)

// Default is the codec used when none is configured.
const Default = Gzip

var codecs = map[string]driven.Codec{
	Gzip: gzipCodec{},
	Zstd: zstdCodec{},
	LZ4:  lz4Codec{},
}

// ByName returns the codec with the given name. An empty name selects
// the default.
func ByName(name string) (driven.Codec, error) {
	if name == "" {
		name = Default
	}
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown compression %q (want one of %s)",
			domain.ErrInvalidInput, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// ForPath picks a codec by file extension, falling back to the default.
func ForPath(path string) driven.Codec {
	for _, c := range All() {
		if strings.HasSuffix(path, c.Extension()) {
			return c
		}
	}
	return codecs[Default]
}

// All returns every codec, default first.
func All() []driven.Codec {
	out := []driven.Codec{codecs[Default]}
	for _, name := range Names() {
		if name != Default {
			out = append(out, codecs[name])
		}
	}
	return out
}

// Names returns the codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ==================== gzip ====================

type gzipCodec struct{}

func (gzipCodec) Name() string      { return Gzip }
func (gzipCodec) Extension() string { return ".gz" }

func (gzipCodec) Compress(dst io.Writer, src io.Reader) error {
	w, err := gzip.NewWriterLevel(dst, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gzip compress: %w", err)
	}
	return nil
}

func (gzipCodec) Decompress(dst io.Writer, src io.Reader) error {
	r, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("gzip decompress: %w", err)
	}
	return nil
}

// ==================== zstd ====================

type zstdCodec struct{}

func (zstdCodec) Name() string      { return Zstd }
func (zstdCodec) Extension() string { return ".zst" }

func (zstdCodec) Compress(dst io.Writer, src io.Reader) error {
	w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("zstd compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("zstd compress: %w", err)
	}
	return nil
}

func (zstdCodec) Decompress(dst io.Writer, src io.Reader) error {
	r, err := zstd.NewReader(src)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return nil
}

// ==================== lz4 ====================

type lz4Codec struct{}

func (lz4Codec) Name() string      { return LZ4 }
func (lz4Codec) Extension() string { return ".lz4" }

func (lz4Codec) Compress(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}
	return nil
}

func (lz4Codec) Decompress(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, lz4.NewReader(src)); err != nil {
		return fmt.Errorf("lz4 decompress: %w", err)
	}
	return nil
}
