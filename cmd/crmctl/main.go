// Package main is the entry point for the dealer CRM operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Dealer CRM CLI",
		Long:          `Offline quoting and lead scoring tools for the dealer CRM.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("output", "o", outputText, "Output format (text, json, yaml)")

	root.AddCommand(newQuoteCmd())
	root.AddCommand(newMatrixCmd())
	root.AddCommand(newFactorsCmd())
	root.AddCommand(newScoreCmd())
	root.AddCommand(newRescoreCmd())
	return root
}
