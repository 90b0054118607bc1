package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/sqlinline"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  "Apply the embedded schema. Every statement is idempotent, so running it twice is safe.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	runner, closeDB, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	if _, err := runner.Exec(ctx, sqlinline.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
