package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portal",
		Short: "CampusIQ portal gateway",
		Long: `portal serves the CampusIQ web portal. It keeps each browser's session,
decides which pages a principal may open, and assembles page data from the
CampusIQ API.`,
		SilenceUsage: true,
		Version:      version,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newRoutesCmd())
	return root
}
