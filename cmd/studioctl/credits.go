package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/adapter/repo"
	"studio/internal/credits"
	"studio/internal/infra"
)

var topUpCmd = &cobra.Command{
	Use:   "topup <owner-id> <amount>",
	Short: "Add credits to an owner's balance",
	Args:  cobra.ExactArgs(2),
	RunE:  runTopUp,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <owner-id>",
	Short: "Print an owner's balance and recent transactions",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

var (
	topUpNote    string
	balanceLimit int
)

func init() {
	topUpCmd.Flags().StringVar(&topUpNote, "note", "manual top-up", "Transaction description")
	balanceCmd.Flags().IntVar(&balanceLimit, "limit", 10, "Number of transactions to list")

	rootCmd.AddCommand(topUpCmd, balanceCmd)
}

func runTopUp(cmd *cobra.Command, args []string) error {
	owner := strings.TrimSpace(args[0])
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	runner, closeDB, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	ledger := credits.NewLedger(repo.NewCreditRepository(runner), infra.NopLogger())
	balance, err := ledger.TopUp(ctx, owner, amount, topUpNote)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s balance: %d\n", owner, balance)
	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	owner := strings.TrimSpace(args[0])
	if owner == "" {
		return errors.New("owner id is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	runner, closeDB, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	ledger := credits.NewLedger(repo.NewCreditRepository(runner), infra.NopLogger())
	balance, err := ledger.GetBalance(ctx, owner)
	if err != nil {
		return err
	}
	txs, err := ledger.Transactions(ctx, owner, balanceLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s balance: %d\n", owner, balance)
	for _, tx := range txs {
		fmt.Fprintf(out, "  %s  %+6d  %s\n", tx.CreatedAt.Format(time.RFC3339), tx.Amount, tx.Description)
	}
	return nil
}
