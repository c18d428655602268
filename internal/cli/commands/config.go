package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ConfigCommands creates configuration subcommands
func ConfigCommands(deps *Deps) []*cobra.Command {
	commands := []*cobra.Command{}

	// worktreectl config show
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after defaults are applied, as TOML (or JSON/YAML with --output).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			out := cmd.OutOrStdout()

			if output != OutputTable && output != "toml" {
				return writeStructured(out, output, deps.Config)
			}

			data, err := toml.Marshal(deps.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(out, "# %s\n", deps.ConfigPath)
			_, err = out.Write(data)
			return err
		},
	}
	showCmd.Flags().StringP("output", "o", "toml", "Output format: toml, json or yaml")
	commands = append(commands, showCmd)

	// worktreectl config path
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), deps.ConfigPath)
		},
	}
	commands = append(commands, pathCmd)

	return commands
}
