package services

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/logger"
)

// DefaultImageConcurrency is the number of images fetched in parallel
// within one section.
const DefaultImageConcurrency = 4

// extensionMimeTypes covers the allow-list for responses without a
// Content-Type header; mime.TypeByExtension handles the rest.
var extensionMimeTypes = map[string]string{
	".apng": "image/apng",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ExternaliseStats counts what one externalisation pass did.
type ExternaliseStats struct {
	// Sections is the number of sections inspected.
	Sections int

	// SectionsChanged is the number of bodies rewritten and persisted.
	SectionsChanged int

	// Images is the number of image elements seen.
	Images int

	// Skipped is the number of images already using the internal scheme.
	Skipped int

	// Fetched is the number of distinct image URLs downloaded.
	Fetched int

	// Rewritten is the number of image elements pointed at an attachment.
	Rewritten int
}

// ImageExternaliser embeds externally referenced images into the archive.
// Each image is fetched, stored through the AttachmentService and its src
// rewritten to urn:<kind>:attachment:<id>. Sources already using the
// internal scheme are left alone, which makes repeated passes no-ops.
type ImageExternaliser struct {
	fetcher     driven.ImageFetcher
	markup      driven.MarkupRewriter
	attachments *AttachmentService
	sections    driven.SectionStore
	links       driven.AttachmentStore
	urnKind     string
	concurrency int
}

// NewImageExternaliser creates an externaliser writing to store.
// A concurrency below 1 fetches sequentially.
func NewImageExternaliser(
	fetcher driven.ImageFetcher,
	markup driven.MarkupRewriter,
	attachments *AttachmentService,
	store driven.ArchiveStore,
	urnKind string,
	concurrency int,
) *ImageExternaliser {
	if urnKind == "" {
		urnKind = domain.DefaultURNKind
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImageExternaliser{
		fetcher:     fetcher,
		markup:      markup,
		attachments: attachments,
		sections:    store.SectionStore(),
		links:       store.AttachmentStore(),
		urnKind:     urnKind,
		concurrency: concurrency,
	}
}

// Externalise processes sections in order. The first failure aborts the
// pass; bodies already persisted stay persisted.
func (e *ImageExternaliser) Externalise(ctx context.Context, sections []domain.Section) (ExternaliseStats, error) {
	var stats ExternaliseStats
	for i := range sections {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := e.externaliseSection(ctx, &sections[i], &stats); err != nil {
			return stats, fmt.Errorf("section %d (%s): %w", sections[i].ID, sections[i].Heading, err)
		}
		stats.Sections++
	}
	return stats, nil
}

// resolvedImage is a fetched image that passed MIME checks.
type resolvedImage struct {
	content  []byte
	name     string
	mimeType string
}

func (e *ImageExternaliser) externaliseSection(ctx context.Context, s *domain.Section, stats *ExternaliseStats) error {
	if strings.TrimSpace(s.Body) == "" {
		return nil
	}

	sources, err := e.markup.ImageSources(s.Body)
	if err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	stats.Images += len(sources)

	// Validate every reference before the first network call.
	targets := make(map[string]*url.URL)
	var pending []string
	for _, src := range sources {
		if domain.IsInternalReference(src, e.urnKind) {
			stats.Skipped++
			continue
		}
		key := strings.TrimSpace(src)
		if _, ok := targets[key]; ok {
			continue
		}
		u, err := ParseImageURL(src)
		if err != nil {
			return err
		}
		targets[key] = u
		pending = append(pending, key)
	}
	if len(pending) == 0 {
		return nil
	}

	images, err := e.fetchAll(ctx, pending, targets)
	if err != nil {
		return err
	}
	stats.Fetched += len(images)

	// Store writes happen in document order so attachment IDs are
	// reproducible regardless of fetch scheduling.
	ids := make(map[string]int64, len(pending))
	for i, key := range pending {
		img := images[i]
		attachment, err := e.attachments.PutIfAbsent(ctx, img.content, img.name, img.mimeType)
		if err != nil {
			return err
		}
		ids[key] = attachment.ID
		if err := e.links.Link(ctx, domain.SectionAttachment{SectionID: s.ID, AttachmentID: attachment.ID}); err != nil {
			return fmt.Errorf("link attachment: %w", err)
		}
	}

	rewritten := 0
	body, err := e.markup.RewriteImages(s.Body, func(src string) (string, error) {
		if domain.IsInternalReference(src, e.urnKind) {
			return src, nil
		}
		id, ok := ids[strings.TrimSpace(src)]
		if !ok {
			return "", &domain.ImageReferenceError{Source: src}
		}
		rewritten++
		return domain.AttachmentURN(e.urnKind, id), nil
	})
	if err != nil {
		return fmt.Errorf("rewrite body: %w", err)
	}

	s.Body = body
	if err := e.sections.UpdateBody(ctx, s.ID, body); err != nil {
		return fmt.Errorf("save section: %w", err)
	}
	stats.Rewritten += rewritten
	stats.SectionsChanged++
	return nil
}

// fetchAll downloads every pending URL and resolves its MIME type. Results
// are returned in the order of pending.
func (e *ImageExternaliser) fetchAll(ctx context.Context, pending []string, targets map[string]*url.URL) ([]resolvedImage, error) {
	results := make([]resolvedImage, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, key := range pending {
		i, key := i, key
		g.Go(func() error {
			img, err := e.fetchOne(gctx, key, targets[key])
			if err != nil {
				return err
			}
			results[i] = *img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *ImageExternaliser) fetchOne(ctx context.Context, src string, u *url.URL) (*resolvedImage, error) {
	logger.Debug("Fetching image %s", src)

	fetched, err := e.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = ""
	}

	mimeType := ResolveMimeType(fetched.MediaType, name)
	if mimeType == "" {
		return nil, &domain.MimeTypeError{Source: src}
	}
	if !domain.IsSupportedImageMimeType(mimeType) {
		return nil, &domain.MimeTypeError{Source: src, MimeType: mimeType}
	}

	return &resolvedImage{
		content:  fetched.Content,
		name:     name,
		mimeType: mimeType,
	}, nil
}

// ParseImageURL accepts only absolute http(s) URLs with a host.
func ParseImageURL(src string) (*url.URL, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, &domain.ImageReferenceError{Source: src}
	}
	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &domain.ImageReferenceError{Source: src}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, &domain.ImageReferenceError{Source: src}
	}
}

// ResolveMimeType prefers the response media type and falls back to the
// file extension. It returns "" when neither is known.
func ResolveMimeType(mediaType, fileName string) string {
	if mediaType != "" {
		return strings.ToLower(mediaType)
	}
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		return ""
	}
	if t, ok := extensionMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return ""
}
