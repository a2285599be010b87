package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coursebot",
	Short: "Coursebot - question answering over course catalog pages",
	Long: `Coursebot scrapes course catalog pages, indexes them for semantic retrieval
and answers questions about the courses with an LLM.

It can run as an HTTP service (serve) or answer a single question in the
terminal (ask). Settings are read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists; variables already set take precedence
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
