package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creative-composer/internal/config"
	"github.com/jonathan/creative-composer/internal/server"
)

var tokenReviewer string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a reviewer token for the REST API",
	Long:  `Generates a signed bearer token for the given reviewer ID, using JWT_SECRET and JWT_EXPIRATION_HOURS from the environment.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenReviewer, "reviewer", "r", "", "Reviewer ID to issue the token for (required)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	if tokenReviewer == "" {
		return fmt.Errorf("--reviewer is required")
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenReviewer)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
