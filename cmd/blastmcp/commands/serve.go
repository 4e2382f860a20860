package commands

import (
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/logger"
	"github.com/bio-mcp/bio-mcp-blast/server"
)

// ServeCmd runs the MCP server on stdin/stdout. Nothing but protocol
// messages may be written to stdout; logs go to stderr.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve BLAST tools over MCP stdio",
	Long: `Serve BLAST tools to an MCP client over stdin/stdout.

Modes:
  local   blastn, blastp, blastx, tblastn, makeblastdb, blast_version
  queue   local tools plus blastn_async, blastp_async, get_job_status,
          get_job_result and cancel_job against a bio-mcp job queue
  remote  ncbi_blast, ncbi_submit, ncbi_status, ncbi_result against the
          NCBI BLAST web service`,
	RunE: runServe,
}

var serveMode string

func init() {
	ServeCmd.Flags().StringVar(&serveMode, "mode", "", "Tool set to serve: local, queue, remote or gene (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveMode != "" {
		if !slices.Contains(config.Modes, serveMode) {
			return errors.Newf("unknown mode %q (want one of %v)", serveMode, config.Modes)
		}
		cfg.Server.Mode = serveMode
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewFromConfig(cfg, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create MCP server")
	}
	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
		return err
	}
	logger.Infow("MCP server stopped", "mode", cfg.Server.Mode)
	return nil
}
