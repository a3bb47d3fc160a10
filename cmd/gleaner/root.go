package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gleaner.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gleaner",
		Short: "Collect contact details from a single website",
		Long: `gleaner crawls every page of one web origin reachable from a seed URL,
extracts email addresses and phone numbers and writes them to an
Email,Phone table (extracted_data.csv by default).

Settings may also come from a config file (--config) or from
GLEANER_* environment variables, e.g. GLEANER_OUTPUT=contacts.csv.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML, TOML or JSON)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
