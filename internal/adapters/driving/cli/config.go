package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mspec/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one value, or every value",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := configStore()
		if err != nil {
			return err
		}
		cmd.Println(store.Path())
		return nil
	},
}

// secretKeys are masked when printed.
var secretKeys = map[string]bool{
	file.KeyToken:          true,
	file.KeyManifestSecret: true,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := configStore()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		val, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		cmd.Println(display(args[0], val))
		return nil
	}

	keys := store.Keys()
	if len(keys) == 0 {
		cmd.Printf("No configuration in %s\n", store.Path())
		return nil
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		val, _ := store.Get(k)
		rows = append(rows, []string{k, display(k, val)})
	}
	cmd.Println(renderTable([]string{"Key", "Value"}, rows, nil))
	return nil
}

func display(key string, val any) string {
	if secretKeys[key] {
		return "********"
	}
	return fmt.Sprint(val)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := file.CheckValue(key, value); err != nil {
		return err
	}

	store, err := configStore()
	if err != nil {
		return err
	}
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	cmd.Printf("%s updated\n", key)
	return nil
}
