// Command studioctl administers a studio deployment: schema migration,
// credit top-ups, provider keys and operator tokens.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "studioctl",
	Short:         "Administer the studio API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var databaseURL string

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db-url", "", "Database URL (defaults to DATABASE_URL)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
