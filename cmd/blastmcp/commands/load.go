package commands

import (
	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// loadConfig honours the global --config flag, falling back to the normal
// file cascade and BIO_MCP_* environment variables
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}
