package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "update-engine",
		Short:         "update-engine - downloads and verifies update payloads",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newFetchCmd(&configPath, &verbose))
	cmd.AddCommand(newTransfersCmd(&configPath, &verbose))

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
