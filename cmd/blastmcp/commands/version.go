package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/display"
	"github.com/bio-mcp/bio-mcp-blast/internal/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show blastmcp version information",
	Long:  `Display version, build time, commit hash, and platform information for the blastmcp binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		info := version.Get()

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(out, info)
		}
		fmt.Fprintln(out, info.String())
		fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
