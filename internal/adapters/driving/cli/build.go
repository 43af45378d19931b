package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
	"github.com/custodia-labs/mspec/internal/logger"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build an archive from a work area",
	Long: `Maps every document of the work area into a fresh SQLite store, embeds
referenced images as attachments and writes the compressed archive to the
output path. On failure the output path is left as it was.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// Flags for the build command.
var (
	buildOutput      string
	buildWorkArea    string
	buildFrom        string
	buildCompression string
	buildConcurrency int
	buildNoManifest  bool
)

func init() {
	flags := buildCmd.Flags()
	flags.StringVarP(&buildOutput, "output", "o", "", "Archive path (default from output.path)")
	flags.StringVarP(&buildWorkArea, "work-area", "w", "", "Work area name (default from spectool.work_area)")
	flags.StringVar(&buildFrom, "from", "", "Read exported JSON from a directory instead of the spec tool")
	flags.StringVar(&buildCompression, "compression", "", "Compression: gzip, zstd or lz4")
	flags.IntVar(&buildConcurrency, "concurrency", 0, "Parallel image downloads per section")
	flags.BoolVar(&buildNoManifest, "no-manifest", false, "Do not write a signed manifest")
	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags overrides settings with flags the user set.
func applyBuildFlags(cmd *cobra.Command, s *file.Settings) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		s.OutputPath = buildOutput
	}
	if flags.Changed("work-area") {
		s.WorkArea = buildWorkArea
	}
	if flags.Changed("from") {
		s.SourceDir = buildFrom
	}
	if flags.Changed("compression") {
		s.Compression = buildCompression
	}
	if flags.Changed("concurrency") {
		s.ImageConcurrency = buildConcurrency
	}
	if buildNoManifest {
		s.ManifestEnabled = false
	}
}

func runBuild(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	applyBuildFlags(cmd, settings)

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := settings.ValidateSource(); err != nil {
		return err
	}
	if settings.WorkArea == "" {
		return fmt.Errorf("no work area: pass --work-area or set %s", file.KeyWorkArea)
	}
	if wiring.Packager == nil {
		return errNotConfigured
	}

	ctx := cmd.Context()
	packager, err := wiring.Packager(ctx, settings)
	if err != nil {
		return withHint(err)
	}

	result, err := packager.Build(ctx, driving.BuildRequest{
		WorkArea:   settings.WorkArea,
		OutputPath: settings.OutputPath,
	})
	if err != nil {
		return withHint(fmt.Errorf("build failed: %w", err))
	}

	manifest := "no"
	if result.ManifestWritten {
		manifest = "signed"
	}
	cmd.Printf("Wrote %s\n\n", result.OutputPath)
	cmd.Println(renderTable(
		[]string{"Item", "Value"},
		[][]string{
			{"Documents", strconv.Itoa(result.Documents)},
			{"Sections", strconv.Itoa(result.Sections)},
			{"Attachments", strconv.Itoa(result.Attachments)},
			{"Images rewritten", strconv.Itoa(result.ImagesRewritten)},
			{"Manifest", manifest},
			{"Compression", result.Codec},
			{"Size (bytes)", strconv.FormatInt(result.Bytes, 10)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))
	if logger.IsVerbose() && len(result.DocumentIDs) > 0 {
		cmd.Printf("Source documents: %s\n", strings.Join(result.DocumentIDs, ", "))
	}
	return nil
}
