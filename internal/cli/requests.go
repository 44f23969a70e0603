package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/output"
)

var requestsCmd = &cobra.Command{
	Use:   "requests <id>",
	Short: "List captured requests for an endpoint, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requests, err := apiClient().ListRequests(args[0])
		if err != nil {
			output.Error("Failed to list requests: %v", err)
			return err
		}

		if outputFormat == "json" {
			return output.JSON(requests)
		}
		if len(requests) == 0 {
			output.Info("No captured requests")
			return nil
		}

		table := output.NewTable([]string{"TIME", "METHOD", "PATH", "BODY"})
		for _, req := range requests {
			table.AddRow([]string{
				req.Timestamp.Local().Format(time.TimeOnly),
				req.Method,
				req.Path,
				summarizeBody(req.Body),
			})
		}
		table.Render()
		return nil
	},
}

// summarizeBody renders the body on one table cell, truncated.
func summarizeBody(body any) string {
	if body == nil {
		return "-"
	}
	var text string
	switch v := body.(type) {
	case string:
		text = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "-"
		}
		text = string(data)
	}
	if len(text) > 60 {
		return text[:57] + "..."
	}
	return text
}

func init() {
	rootCmd.AddCommand(requestsCmd)
}
