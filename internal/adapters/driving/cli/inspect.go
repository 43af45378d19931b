package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "Verify and summarise an archive",
	Long: `Decompresses the archive into a temporary file and checks that every
image uses an internal reference to an existing attachment. With a manifest
secret the signed manifest is verified too.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectSecret string

func init() {
	inspectCmd.Flags().StringVar(&inspectSecret, "secret", "", "Hex manifest secret (default from manifest.secret)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("secret") {
		if err := settings.SetManifestSecret(inspectSecret); err != nil {
			return err
		}
	}
	if wiring.Inspector == nil {
		return errNotConfigured
	}

	inspector, err := wiring.Inspector(settings)
	if err != nil {
		return err
	}
	report, err := inspector.Inspect(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	cmd.Printf("Archive: %s (%s)\n\n", report.Path, report.Codec)

	rows := make([][]string, 0, len(report.Documents))
	for _, d := range report.Documents {
		rows = append(rows, []string{strconv.FormatInt(d.ID, 10), d.Kind, d.Name, strconv.Itoa(d.Sections)})
	}
	cmd.Println(renderTable(
		[]string{"ID", "Kind", "Name", "Sections"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))

	cmd.Printf("\nSections: %d  Attachments: %d  Links: %d  Images: %d  Cross-references: %d\n",
		report.Sections, report.Attachments, report.Links, report.ImageReferences, report.CrossReferences)
	if len(report.CustomKeys) > 0 {
		cmd.Printf("Custom data: %s\n", strings.Join(report.CustomKeys, ", "))
	}
	if report.Manifest != nil {
		keys := make([]string, 0, len(report.Manifest))
		for k := range report.Manifest {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Printf("Manifest verified: %s\n", strings.Join(keys, ", "))
	}

	if report.OK() {
		cmd.Println("OK")
		return nil
	}
	cmd.Println("\nProblems:")
	for _, p := range report.Problems {
		cmd.Printf("  - %s\n", p)
	}
	return fmt.Errorf("archive has %d problem(s)", len(report.Problems))
}
