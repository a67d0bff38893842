package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Zephyr product page server",
	Long: `storefront serves the Zephyr product detail page and its client-side cart.

The catalog is read from a YAML file; the cart lives in a signed cookie on the client.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
