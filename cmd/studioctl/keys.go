package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/infra/credentials"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored provider API keys",
	Long: "Stored keys for " + strings.Join(credentials.KnownProviders, ", ") +
		" take precedence over the matching <PROVIDER>_API_KEY environment variable.",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store a provider API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysSet,
}

var keysRmCmd = &cobra.Command{
	Use:   "rm <provider>",
	Short: "Remove a stored key so the environment applies again",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRm,
}

var keysLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored keys, masked",
	Args:  cobra.NoArgs,
	RunE:  runKeysLs,
}

var keyValue string

func init() {
	keysSetCmd.Flags().StringVar(&keyValue, "key", "", "API key (defaults to <PROVIDER>_API_KEY)")

	keysCmd.AddCommand(keysSetCmd, keysRmCmd, keysLsCmd)
	rootCmd.AddCommand(keysCmd)
}

// withStore runs fn against the key store with a short deadline.
func withStore(cmd *cobra.Command, fn func(context.Context, *credentials.Store) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	runner, closeDB, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, credentials.NewStore(runner))
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(strings.TrimSpace(args[0]))
	key := strings.TrimSpace(keyValue)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(strings.ToUpper(provider) + "_API_KEY"))
	}
	if key == "" {
		return errors.New("api key is required (pass --key or set the provider's _API_KEY variable)")
	}
	return withStore(cmd, func(ctx context.Context, store *credentials.Store) error {
		if err := store.Set(ctx, provider, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s key stored (%s)\n", provider, credentials.Mask(key))
		return nil
	})
}

func runKeysRm(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *credentials.Store) error {
		removed, err := store.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(cmd.OutOrStdout(), "no stored key for %s\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s key removed\n", args[0])
		return nil
	})
}

func runKeysLs(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, store *credentials.Store) error {
		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tKEY")
		for _, provider := range credentials.KnownProviders {
			shown := "-"
			if k, ok := keys[provider]; ok {
				shown = credentials.Mask(k)
			}
			fmt.Fprintf(tw, "%s\t%s\n", provider, shown)
		}
		return tw.Flush()
	})
}
