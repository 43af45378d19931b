package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mspec/internal/core/ports/driving"
)

var workAreasCmd = &cobra.Command{
	Use:   "workareas",
	Short: "List work areas",
	Args:  cobra.NoArgs,
	RunE:  runWorkAreas,
}

var documentsCmd = &cobra.Command{
	Use:   "documents <work-area>",
	Short: "List the documents of a work area",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocuments,
}

var listFrom string

func init() {
	for _, c := range []*cobra.Command{workAreasCmd, documentsCmd} {
		c.Flags().StringVar(&listFrom, "from", "", "Read exported JSON from a directory instead of the spec tool")
		rootCmd.AddCommand(c)
	}
}

func catalog(cmd *cobra.Command) (driving.Catalog, context.Context, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("from") {
		settings.SourceDir = listFrom
	}
	if err := settings.ValidateSource(); err != nil {
		return nil, nil, err
	}
	if wiring.Catalog == nil {
		return nil, nil, errNotConfigured
	}
	ctx := cmd.Context()
	c, err := wiring.Catalog(ctx, settings)
	if err != nil {
		return nil, nil, withHint(err)
	}
	return c, ctx, nil
}

func runWorkAreas(cmd *cobra.Command, _ []string) error {
	c, ctx, err := catalog(cmd)
	if err != nil {
		return err
	}
	areas, err := c.WorkAreas(ctx)
	if err != nil {
		return withHint(err)
	}
	if len(areas) == 0 {
		cmd.Println("No work areas found")
		return nil
	}

	rows := make([][]string, 0, len(areas))
	for _, a := range areas {
		rows = append(rows, []string{a.Name, a.ID, a.Access})
	}
	cmd.Println(renderTable([]string{"Name", "ID", "Access"}, rows, nil))
	return nil
}

func runDocuments(cmd *cobra.Command, args []string) error {
	c, ctx, err := catalog(cmd)
	if err != nil {
		return err
	}
	refs, err := c.Documents(ctx, args[0])
	if err != nil {
		return withHint(err)
	}
	if len(refs) == 0 {
		cmd.Printf("No documents in %s\n", args[0])
		return nil
	}

	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, []string{r.Name, r.Type, r.ID})
	}
	cmd.Println(renderTable([]string{"Name", "Type", "ID"}, rows, nil))
	cmd.Printf("Total: %d documents\n", len(refs))
	return nil
}
