package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/client"
	"github.com/davidfries/hooky/internal/cli/output"
)

var endpointCmd = &cobra.Command{
	Use:     "endpoint",
	Aliases: []string{"ep"},
	Short:   "Manage webhook endpoints",
}

var endpointTTL time.Duration

var endpointCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new webhook endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, err := apiClient().CreateEndpoint(int64(endpointTTL.Seconds()))
		if err != nil {
			output.Error("Failed to create endpoint: %v", err)
			return err
		}

		if outputFormat == "json" {
			return output.JSON(ep)
		}
		output.Success("Endpoint created")
		output.Info("  ID:      %s", ep.ID)
		output.Info("  URL:     %s", ep.URL)
		output.Info("  Expires: %s", ep.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

var endpointListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List live endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoints, err := apiClient().ListEndpoints()
		if err != nil {
			output.Error("Failed to list endpoints: %v", err)
			return err
		}

		if outputFormat == "json" {
			return output.JSON(endpoints)
		}
		if len(endpoints) == 0 {
			output.Info("No live endpoints")
			return nil
		}

		table := output.NewTable([]string{"ID", "URL", "REQUESTS", "EXPIRES IN"})
		for _, ep := range endpoints {
			table.AddRow([]string{
				ep.ID,
				ep.URL,
				strconv.Itoa(ep.RequestCount),
				formatExpiry(ep.ExpiresIn),
			})
		}
		table.Render()
		return nil
	},
}

var endpointGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, err := apiClient().GetEndpoint(args[0])
		if err != nil {
			output.Error("Failed to get endpoint: %v", err)
			return err
		}

		if outputFormat == "json" {
			return output.JSON(ep)
		}
		printEndpoint(ep)
		return nil
	},
}

var endpointDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an endpoint and its captured requests",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := apiClient().DeleteEndpoint(args[0])
		if err != nil {
			output.Error("Failed to delete endpoint: %v", err)
			return err
		}
		if removed {
			output.Success("Endpoint %s deleted", args[0])
		} else {
			output.Warn("Endpoint %s did not exist", args[0])
		}
		return nil
	},
}

func printEndpoint(ep *client.Endpoint) {
	output.Info("ID:       %s", ep.ID)
	output.Info("URL:      %s", ep.URL)
	output.Info("Created:  %s", ep.CreatedAt.Local().Format(time.RFC1123))
	output.Info("Expires:  %s (%s)", ep.ExpiresAt.Local().Format(time.RFC1123), formatExpiry(ep.ExpiresIn))
	output.Info("Requests: %d", ep.RequestCount)
}

func formatExpiry(seconds int64) string {
	if seconds <= 0 {
		return "expired"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func init() {
	endpointCreateCmd.Flags().DurationVar(&endpointTTL, "ttl", 0, "time-to-live (e.g. 30m, 2h); 0 uses the server default")

	endpointCmd.AddCommand(endpointCreateCmd)
	endpointCmd.AddCommand(endpointListCmd)
	endpointCmd.AddCommand(endpointGetCmd)
	endpointCmd.AddCommand(endpointDeleteCmd)
	rootCmd.AddCommand(endpointCmd)
}
