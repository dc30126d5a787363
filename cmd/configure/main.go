package main

import (
	"fmt"
	"os"

	"github.com/benvon/identity-api/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "identity-api-configure",
		Short: "Operations tool for the identity API",
		Long:  "CLI tool for minting and inspecting session tokens with the configured signing key",
	}

	rootCmd.AddCommand(commands.NewTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
