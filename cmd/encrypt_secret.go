package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apiguardian/apiguardian/internal/config"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

// Offline helper for seeding secrets without going through the API, e.g. when
// bootstrapping a deployment from a secrets manager.
var encryptSecretCmd = &cobra.Command{
	Use:   "encrypt-secret [plaintext]",
	Short: "Encrypt a provider API key with the configured ENCRYPTION_KEY",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		cipher := secretcipher.New(conf.ENCRYPTION_KEY)
		if !cipher.Configured() {
			fmt.Println("ENCRYPTION_KEY is not set")
			os.Exit(1)
		}

		envelope, err := cipher.Encrypt(args[0])
		if err != nil {
			fmt.Println("Unable to encrypt secret", err)
			os.Exit(1)
		}

		fmt.Println(envelope)
	},
}

func init() {
	rootCmd.AddCommand(encryptSecretCmd)
}
