// Package cli implements the hooky command tree: the server itself (serve,
// start/stop/status) and the client commands that manage endpoints and follow
// their captured traffic.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/cli/client"
	"github.com/davidfries/hooky/internal/cli/cliconfig"
	"github.com/davidfries/hooky/internal/cli/output"
)

var (
	serverURL    string
	outputFormat string
	clientCfg    *cliconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "hooky",
	Short: "Disposable webhook receivers",
	Long: `hooky provisions short-lived webhook endpoints, records every request
delivered to them, and streams new requests live to attached clients.

Run 'hooky serve' to start a server, then point any webhook sender at the
endpoint URLs it hands out.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initClientConfig)

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default from ~/.hooky/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json")
}

func initClientConfig() {
	var err error
	clientCfg, err = cliconfig.Load()
	if err != nil {
		output.Warn("Could not load config: %v", err)
		clientCfg = cliconfig.Default()
	}
}

// apiClient builds a client for the configured server, with the --server flag
// taking precedence over the profile config.
func apiClient() *client.Client {
	url := serverURL
	if url == "" {
		url = clientCfg.ServerURL
	}
	if url == "" {
		url = cliconfig.DefaultServerURL
	}
	return client.New(url)
}
