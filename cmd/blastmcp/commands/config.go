package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/display"
	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// ConfigCmd groups the configuration subcommands
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage blastmcp configuration",
	Long: `Display and manage blastmcp configuration.

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/bio-mcp/blast.toml)
3. User config (~/.bio-mcp/blast.toml)
4. Project config (./blast.toml, searched up from the working directory)
5. Environment variables (BIO_MCP_* prefix, e.g. BIO_MCP_SERVER_MODE)

Examples:
  blastmcp config show                 # Show current configuration
  blastmcp config show --format json   # Show configuration as JSON
  blastmcp config where                # List the files that were checked
  blastmcp config init                 # Write ~/.bio-mcp/blast.toml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runConfigWhere,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Long:  "Write a configuration file with default values to path, or to ~/.bio-mcp/blast.toml when no path is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file (a backup is kept)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := loaded.Redacted()
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		return display.OutputJSON(out, cfg)
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# blastmcp configuration\n%s", data)
	case "toml":
		data, err := config.Marshal(&cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# blastmcp configuration\n%s", data)
	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	for _, err := range config.ParseErrors(config.SearchPaths()) {
		pterm.Error.Println(err.Error())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  [DEFAULT]  Built-in defaults")
	for _, path := range config.SearchPaths() {
		state := "missing"
		if _, err := os.Stat(path); err == nil {
			state = "found"
		}
		fmt.Fprintf(out, "  [FILE]     %s (%s)\n", path, state)
	}
	fmt.Fprintf(out, "  [ENV]      %s_* environment variables\n", config.EnvPrefix)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.UserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.WithHint(errors.New("no home directory"), "pass a path: blastmcp config init ./blast.toml")
	}
	if err := config.WriteDefault(path, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
	return nil
}
