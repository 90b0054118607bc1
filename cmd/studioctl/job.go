package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/adapter/repo"
	"studio/internal/infra"
	"studio/internal/jobs"
)

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Print a job record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

func init() {
	rootCmd.AddCommand(jobCmd)
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	runner, closeDB, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	job, err := jobs.NewLedger(repo.NewJobRepository(runner), infra.NopLogger()).Get(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(job)
}
