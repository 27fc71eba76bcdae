package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/server"
)

var tokenAccountID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a JWT for API access",
	Long:  `Generates a bearer token signed with JWT_SECRET for calling the REST API. Intended for operators and scheduled jobs; there is no interactive login.`,
	RunE:  runTokenCmd,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenAccountID, "account-id", "", "Account UUID to embed in the token (default: random)")
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCmd(_ *cobra.Command, _ []string) error {
	accountID := uuid.New()
	if tokenAccountID != "" {
		parsed, err := uuid.Parse(tokenAccountID)
		if err != nil {
			return fmt.Errorf("invalid account id: %w", err)
		}
		accountID = parsed
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(accountID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, token)
	return nil
}
