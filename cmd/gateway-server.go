package cmd

import (
	"github.com/spf13/cobra"

	"github.com/apiguardian/apiguardian/internal/api"
	"github.com/apiguardian/apiguardian/internal/config"
	"github.com/apiguardian/apiguardian/internal/telemetry"
)

var gatewayServerCmd = &cobra.Command{
	Use:   "gateway-server",
	Short: "Start the gateway and management API server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New()
		s.Start()
	},
}

// Register the "gateway-server" command
func init() {
	rootCmd.AddCommand(gatewayServerCmd)
}
