package file

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/mspec/internal/adapters/driven/compress"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Configuration keys.
const (
	KeySpecToolURL       = "spectool.url"
	KeyWorkArea          = "spectool.work_area"
	KeyToken             = "spectool.token"
	KeyRequestsPerSecond = "spectool.requests_per_second"
	KeySourceDir         = "source.dir"
	KeyOutputPath        = "output.path"
	KeyCompression       = "output.compression"
	KeyImageConcurrency  = "images.concurrency"
	KeyImageTimeout      = "images.timeout_seconds"
	KeyImageMaxBytes     = "images.max_bytes"
	KeyManifestEnabled   = "manifest.enabled"
	KeyManifestSecret    = "manifest.secret"
	KeyURNKind           = "archive.urn_kind"
)

// Environment variables. They override the file.
const (
	EnvCredentials    = "SPECTOOL_CREDENTIALS"
	EnvToken          = "SPECTOOL_TOKEN"
	EnvSpecToolURL    = "SPECTOOL_URL"
	EnvManifestSecret = "MSPEC_MANIFEST_SECRET"
)

// Defaults.
const (
	DefaultOutputPath       = "mspec.db.gz"
	DefaultImageConcurrency = 4
	DefaultImageTimeout     = 30 * time.Second
	DefaultImageMaxBytes    = 32 << 20
)

// Settings is the effective configuration of a run.
type Settings struct {
	SpecToolURL       string
	WorkArea          string
	Token             string
	Credentials       string
	RequestsPerSecond float64
	SourceDir         string

	OutputPath  string
	Compression string

	ImageConcurrency int
	ImageTimeout     time.Duration
	ImageMaxBytes    int64

	ManifestEnabled bool
	ManifestSecret  []byte

	URNKind string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		OutputPath:       DefaultOutputPath,
		Compression:      compress.Default,
		ImageConcurrency: DefaultImageConcurrency,
		ImageTimeout:     DefaultImageTimeout,
		ImageMaxBytes:    DefaultImageMaxBytes,
		ManifestEnabled:  true,
		URNKind:          domain.DefaultURNKind,
	}
}

// LoadSettings layers the config store and then the environment over the
// defaults. env is typically os.Getenv.
func LoadSettings(store driven.ConfigStore, env func(string) string) (*Settings, error) {
	s := DefaultSettings()
	if env == nil {
		env = func(string) string { return "" }
	}

	if store != nil {
		setString(&s.SpecToolURL, store.GetString(KeySpecToolURL))
		setString(&s.WorkArea, store.GetString(KeyWorkArea))
		setString(&s.Token, store.GetString(KeyToken))
		setString(&s.SourceDir, store.GetString(KeySourceDir))
		setString(&s.OutputPath, store.GetString(KeyOutputPath))
		setString(&s.Compression, store.GetString(KeyCompression))
		setString(&s.URNKind, store.GetString(KeyURNKind))

		if n := store.GetInt(KeyRequestsPerSecond); n != 0 {
			s.RequestsPerSecond = float64(n)
		}
		if n := store.GetInt(KeyImageConcurrency); n != 0 {
			s.ImageConcurrency = n
		}
		if n := store.GetInt(KeyImageTimeout); n != 0 {
			s.ImageTimeout = time.Duration(n) * time.Second
		}
		if n := store.GetInt(KeyImageMaxBytes); n != 0 {
			s.ImageMaxBytes = int64(n)
		}
		if _, ok := store.Get(KeyManifestEnabled); ok {
			s.ManifestEnabled = store.GetBool(KeyManifestEnabled)
		}
		if secret := store.GetString(KeyManifestSecret); secret != "" {
			if err := s.SetManifestSecret(secret); err != nil {
				return nil, fmt.Errorf("%s: %w", KeyManifestSecret, err)
			}
		}
	}

	setString(&s.SpecToolURL, env(EnvSpecToolURL))
	setString(&s.Token, env(EnvToken))
	setString(&s.Credentials, env(EnvCredentials))
	if secret := env(EnvManifestSecret); secret != "" {
		if err := s.SetManifestSecret(secret); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvManifestSecret, err)
		}
	}

	return &s, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// SetManifestSecret decodes a hex-encoded secret.
func (s *Settings) SetManifestSecret(hexSecret string) error {
	secret, err := hex.DecodeString(strings.TrimSpace(hexSecret))
	if err != nil {
		return fmt.Errorf("%w: manifest secret must be hex", domain.ErrInvalidInput)
	}
	s.ManifestSecret = secret
	return nil
}

// SignsManifest reports whether a run writes a signed manifest.
func (s *Settings) SignsManifest() bool {
	return s.ManifestEnabled && len(s.ManifestSecret) > 0
}

// Validate ensures the settings are usable for any command.
func (s *Settings) Validate() error {
	if err := s.validateOutput(); err != nil {
		return err
	}
	if err := s.validateImages(); err != nil {
		return err
	}
	if s.URNKind == "" || strings.ContainsAny(s.URNKind, ": ") {
		return fmt.Errorf("%w: %s must be a non-empty word without colons", domain.ErrInvalidInput, KeyURNKind)
	}
	return nil
}

func (s *Settings) validateOutput() error {
	if strings.TrimSpace(s.OutputPath) == "" {
		return fmt.Errorf("%w: %s must be set", domain.ErrInvalidInput, KeyOutputPath)
	}
	if _, err := compress.ByName(s.Compression); err != nil {
		return fmt.Errorf("%s: %w", KeyCompression, err)
	}
	return nil
}

func (s *Settings) validateImages() error {
	if s.ImageConcurrency < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, KeyImageConcurrency)
	}
	if s.ImageTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyImageTimeout)
	}
	if s.ImageMaxBytes <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyImageMaxBytes)
	}
	return nil
}

// ValidateSource ensures a document source is configured: either an
// offline directory, or a spec tool URL with a token or credentials.
func (s *Settings) ValidateSource() error {
	if s.SourceDir != "" {
		return nil
	}
	if s.SpecToolURL == "" {
		return fmt.Errorf("%w: %s must be set (or %s, or --from <dir>)",
			domain.ErrInvalidInput, KeySpecToolURL, EnvSpecToolURL)
	}
	if s.Token == "" && s.Credentials == "" {
		return errors.Join(domain.ErrAuthRequired,
			fmt.Errorf("set %s=user:password or %s", EnvCredentials, EnvToken))
	}
	return nil
}

// CheckValue rejects unknown keys and values that LoadSettings or
// Validate would refuse.
func CheckValue(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeySpecToolURL, KeyWorkArea, KeyToken, KeySourceDir:
		return nil
	case KeyOutputPath:
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, key)
		}
		return nil
	case KeyCompression:
		_, err := compress.ByName(value)
		return err
	case KeyRequestsPerSecond, KeyImageConcurrency, KeyImageTimeout, KeyImageMaxBytes:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		return nil
	case KeyManifestEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		return nil
	case KeyManifestSecret:
		var s Settings
		return s.SetManifestSecret(value)
	case KeyURNKind:
		s := DefaultSettings()
		s.URNKind = value
		return s.Validate()
	default:
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
	}
}
