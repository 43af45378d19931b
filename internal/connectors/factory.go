package connectors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/mspec/internal/connectors/spectool"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Source types understood by the default factory.
const (
	TypeSpecTool  = "spectool"
	TypeDirectory = "directory"
)

// SourceConfig describes where documents come from. Which fields matter
// depends on Type.
type SourceConfig struct {
	Type string

	// URL is the spec tool base URL.
	URL string

	// Token selects bearer authentication. When empty, Credentials
	// ("user:password") is used to log in.
	Token       string
	Credentials string

	// RequestsPerSecond throttles API calls. Zero selects the default.
	RequestsPerSecond float64

	// Dir is the directory read by the directory source.
	Dir string
}

// Builder creates a document source from configuration.
type Builder func(ctx context.Context, cfg SourceConfig) (driven.DocumentSource, error)

// Factory maps source types to builders.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewFactory creates a factory with the built-in source types registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.Register(TypeSpecTool, buildSpecTool)
	f.Register(TypeDirectory, buildDirectory)
	return f
}

// Register adds or replaces the builder for a source type.
func (f *Factory) Register(sourceType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[sourceType] = builder
}

// SupportedTypes returns the registered source types in sorted order.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds the source for cfg. An empty type selects the spec tool.
func (f *Factory) Create(ctx context.Context, cfg SourceConfig) (driven.DocumentSource, error) {
	if cfg.Type == "" {
		cfg.Type = TypeSpecTool
	}

	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown source type %q (want one of %s)",
			domain.ErrInvalidInput, cfg.Type, strings.Join(f.SupportedTypes(), ", "))
	}
	return builder(ctx, cfg)
}

func buildSpecTool(ctx context.Context, cfg SourceConfig) (driven.DocumentSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: spec tool url is required", domain.ErrInvalidInput)
	}
	opts := spectool.Options{RequestsPerSecond: cfg.RequestsPerSecond}
	if cfg.Token != "" {
		return spectool.NewClientWithToken(ctx, cfg.URL, cfg.Token, opts)
	}

	user, pass, err := spectool.ParseCredentials(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return spectool.Login(ctx, cfg.URL, user, pass, opts)
}

func buildDirectory(_ context.Context, cfg SourceConfig) (driven.DocumentSource, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: source directory is required", domain.ErrInvalidInput)
	}
	return spectool.NewDirectorySource(cfg.Dir)
}
