// Package cli implements the mspec command line with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
	"github.com/custodia-labs/mspec/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Wiring builds the services a command needs from the effective settings.
// It is provided by main so the CLI never constructs adapters itself.
type Wiring struct {
	// Config opens the configuration store in dir ("" for the default).
	Config func(dir string) (driven.ConfigStore, error)

	// Catalog builds the document source listing for settings.
	Catalog func(ctx context.Context, settings *file.Settings) (driving.Catalog, error)

	// Packager builds the packaging pipeline for settings.
	Packager func(ctx context.Context, settings *file.Settings) (driving.Packager, error)

	// Inspector builds the archive inspector for settings.
	Inspector func(settings *file.Settings) (driving.Inspector, error)

	// Env reads environment variables. Defaults to os.Getenv.
	Env func(string) string
}

var wiring *Wiring

// SetWiring installs the service constructors used by commands.
func SetWiring(w *Wiring) {
	wiring = w
}

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "mspec",
	Short: "Package building specifications into portable archives",
	Long: `mspec pulls a work area from the spec tool, embeds every referenced
image and writes one compressed SQLite archive.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.mspec)")
}

// Execute runs the root command. Cancelling ctx aborts a running build
// and leaves the output path untouched.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// configStore opens the configuration store selected by --config-dir.
func configStore() (driven.ConfigStore, error) {
	if wiring == nil || wiring.Config == nil {
		return nil, errNotConfigured
	}
	return wiring.Config(configDir)
}

// loadSettings layers the config file and environment into Settings.
func loadSettings() (*file.Settings, error) {
	store, err := configStore()
	if err != nil {
		return nil, err
	}
	env := wiring.Env
	if env == nil {
		env = os.Getenv
	}
	return file.LoadSettings(store, env)
}

// withHint appends what the user can do about source errors.
func withHint(err error) error {
	switch {
	case errors.Is(err, domain.ErrAuthInvalid):
		return fmt.Errorf("%w (check %s or %s)", err, file.EnvCredentials, file.EnvToken)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w (see mspec workareas)", err)
	default:
		return err
	}
}
