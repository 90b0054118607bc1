package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studio/internal/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token <owner-id>",
	Short: "Mint a bearer token for an owner",
	Long:  "Mint an HS256 bearer token signed with JWT_SECRET. Use --admin for a token that may top up credits.",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var (
	tokenTTL   time.Duration
	tokenAdmin bool
)

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "Grant the admin role")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	role := ""
	if tokenAdmin {
		role = middleware.RoleAdmin
	}
	token, err := middleware.SignToken(secret, args[0], role, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
