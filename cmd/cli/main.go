package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host    string
	token   string
	doubles bool
)

var rootCmd = &cobra.Command{
	Use:   "ledger-cli",
	Short: "A CLI to interact with the match-ledger server",
	Long: `A command-line interface for submitting, confirming and reviewing
matches through the match-ledger HTTP API.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "The host address of the server")
	rootCmd.PersistentFlags().BoolVar(&doubles, "doubles", false, "Address the match through the doubles collection")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("LEDGER_TOKEN"), "Bearer token sent with API requests (defaults to $LEDGER_TOKEN)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
