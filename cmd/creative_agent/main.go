// Package main provides the entry point for the Creative Composer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "creative_agent",
	Short: "Creative Composer pipeline",
	Long:  "Creative Composer generates ad creatives from product images through a two-stage pipeline: a composition spec is compiled and held for human review, then the approved spec is rendered into the final image.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
