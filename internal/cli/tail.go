package cli

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/output"
	"github.com/davidfries/hooky/internal/models"
)

var tailCmd = &cobra.Command{
	Use:   "tail <id>",
	Short: "Follow an endpoint's captured requests live",
	Long: `Attaches to the endpoint's live stream and prints each captured request
as it arrives. Press Ctrl-C to detach.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		output.Info("Streaming requests for %s (Ctrl-C to stop)...", args[0])

		err := apiClient().Stream(ctx, args[0], func(event models.CapturedRequest) error {
			if outputFormat == "json" {
				return output.JSON(event)
			}
			printEvent(event)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			output.Error("Stream ended: %v", err)
			return err
		}
		return nil
	},
}

func printEvent(event models.CapturedRequest) {
	output.Success("%s %s", event.Method, event.Path)
	output.Info("  id:   %s", event.ID)
	output.Info("  time: %s", event.Timestamp.Local().Format("15:04:05.000"))
	if event.Body != nil {
		if data, err := json.MarshalIndent(event.Body, "  ", "  "); err == nil {
			output.Info("  body: %s", data)
		}
	}
}

func init() {
	rootCmd.AddCommand(tailCmd)
}
