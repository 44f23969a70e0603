package cli

import (
	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the default server URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clientCfg.ServerURL = args[0]
		if err := clientCfg.Save(); err != nil {
			output.Error("Failed to save config: %v", err)
			return err
		}
		output.Success("Server URL set to %s", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current CLI configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		output.Info("Server URL: %s", clientCfg.ServerURL)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
