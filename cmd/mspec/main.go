package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/mspec/internal/adapters/driven/artifact"
	"github.com/custodia-labs/mspec/internal/adapters/driven/compress"
	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mspec/internal/adapters/driven/fetch"
	"github.com/custodia-labs/mspec/internal/adapters/driven/signer"
	"github.com/custodia-labs/mspec/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/mspec/internal/adapters/driving/cli"
	"github.com/custodia-labs/mspec/internal/connectors"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
	"github.com/custodia-labs/mspec/internal/core/services"
	"github.com/custodia-labs/mspec/internal/normalisers/html"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := connectors.NewFactory()

	cli.SetWiring(&cli.Wiring{
		Config: func(dir string) (driven.ConfigStore, error) {
			return file.NewConfigStore(dir)
		},
		Catalog: func(ctx context.Context, s *file.Settings) (driving.Catalog, error) {
			source, err := sources.Create(ctx, sourceConfig(s))
			if err != nil {
				return nil, err
			}
			return services.NewCatalog(source), nil
		},
		Packager: func(ctx context.Context, s *file.Settings) (driving.Packager, error) {
			source, err := sources.Create(ctx, sourceConfig(s))
			if err != nil {
				return nil, err
			}
			codec, err := compress.ByName(s.Compression)
			if err != nil {
				return nil, err
			}
			var sig driven.ManifestSigner
			if s.SignsManifest() {
				if sig, err = newSigner(s); err != nil {
					return nil, err
				}
			}
			fetcher := fetch.NewHTTPFetcher(fetch.Options{
				Timeout:  s.ImageTimeout,
				MaxBytes: s.ImageMaxBytes,
			})
			return services.NewPipeline(
				source,
				sqlite.Factory{},
				fetcher,
				html.New(),
				codec,
				artifact.NewPublisher(),
				sig,
				services.PipelineOptions{
					URNKind:     s.URNKind,
					Concurrency: s.ImageConcurrency,
				},
			), nil
		},
		Inspector: func(s *file.Settings) (driving.Inspector, error) {
			var sig driven.ManifestSigner
			if len(s.ManifestSecret) > 0 {
				var err error
				if sig, err = newSigner(s); err != nil {
					return nil, err
				}
			}
			return services.NewInspector(sqlite.Factory{}, html.New(), compress.ForPath, sig, ""), nil
		},
		Env: os.Getenv,
	})

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newSigner(s *file.Settings) (driven.ManifestSigner, error) {
	sig, err := signer.NewJWTSigner(s.ManifestSecret)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func sourceConfig(s *file.Settings) connectors.SourceConfig {
	cfg := connectors.SourceConfig{
		Type:              connectors.TypeSpecTool,
		URL:               s.SpecToolURL,
		Token:             s.Token,
		Credentials:       s.Credentials,
		RequestsPerSecond: s.RequestsPerSecond,
	}
	if s.SourceDir != "" {
		cfg.Type = connectors.TypeDirectory
		cfg.Dir = s.SourceDir
	}
	return cfg
}
