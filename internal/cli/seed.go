package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/output"
)

// seed fires realistic fake webhook payloads at an endpoint. Handy for demos
// and for exercising the live stream.

var (
	seedCount    int
	seedInterval time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed <id>",
	Short: "Send fake webhook traffic to an endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, err := apiClient().GetEndpoint(args[0])
		if err != nil {
			output.Error("Failed to resolve endpoint: %v", err)
			return err
		}

		httpClient := &http.Client{Timeout: 10 * time.Second}
		sent := 0
		for i := 0; i < seedCount; i++ {
			if i > 0 && seedInterval > 0 {
				time.Sleep(seedInterval)
			}

			payload, err := json.Marshal(fakeWebhook())
			if err != nil {
				return err
			}

			resp, err := httpClient.Post(ep.URL, "application/json", bytes.NewReader(payload))
			if err != nil {
				output.Error("Send failed: %v", err)
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				output.Error("Endpoint rejected request (%d) after %d sent", resp.StatusCode, sent)
				return fmt.Errorf("server returned %d", resp.StatusCode)
			}
			sent++
		}

		output.Success("Sent %d fake webhooks to %s", sent, ep.ID)
		return nil
	},
}

// fakeWebhook builds a payload shaped like a typical payment/order webhook.
func fakeWebhook() map[string]any {
	return map[string]any{
		"event":      gofakeit.RandomString([]string{"order.created", "order.paid", "order.refunded", "customer.updated"}),
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"order": map[string]any{
			"id":       gofakeit.UUID(),
			"amount":   gofakeit.Price(1, 500),
			"currency": gofakeit.CurrencyShort(),
			"product":  gofakeit.ProductName(),
		},
		"customer": map[string]any{
			"name":  gofakeit.Name(),
			"email": gofakeit.Email(),
			"city":  gofakeit.City(),
		},
	}
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 5, "number of webhooks to send")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 0, "delay between sends")
	rootCmd.AddCommand(seedCmd)
}
