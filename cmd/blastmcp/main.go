package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/cmd/blastmcp/commands"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

var rootCmd = &cobra.Command{
	Use:   "blastmcp",
	Short: "BLAST sequence search as MCP tools",
	Long: `blastmcp - BLAST sequence search for AI assistants.

Serves the BLAST+ command line tools, a bio-mcp job queue or the NCBI BLAST
web service as Model Context Protocol tools over stdio.

Available commands:
  serve   - Serve BLAST tools over MCP stdio
  search  - Run a BLAST search from the terminal
  doctor  - Check BLAST+ binaries, host resources and configuration
  config  - Show, validate and create configuration files
  version - Show version information

Examples:
  blastmcp serve --mode remote        # NCBI BLAST, no local install needed
  blastmcp search -p blastn ACGT...   # Search NCBI from the shell
  blastmcp doctor                     # Check the local BLAST+ install`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs to stderr as JSON")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file only")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.SearchCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
