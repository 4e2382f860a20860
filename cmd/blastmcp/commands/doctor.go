package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/local"
	"github.com/bio-mcp/bio-mcp-blast/logger"
	"github.com/bio-mcp/bio-mcp-blast/server"
)

// DoctorCmd checks that this host can serve the configured mode
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check BLAST+ binaries, host resources and configuration",
	Long: `Check that blastmcp can run on this host.

Reports the version of every BLAST+ binary (and whether it is new enough),
CPU and memory available for local searches, and any problem with the
configuration files.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	problems := 0

	pterm.DefaultSection.Println("Configuration")
	for _, err := range config.ParseErrors(config.SearchPaths()) {
		pterm.Error.Println(err.Error())
		problems++
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		pterm.Error.Println(err.Error())
		problems++
	} else {
		pterm.Success.Printf("Configuration is valid (mode: %s)\n", cfg.Server.Mode)
	}

	pterm.DefaultSection.Println("BLAST+")
	runner := server.LocalRunner(cfg, logger.Logger)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	missing := checkBinaries(ctx, runner)
	if missing > 0 && cfg.Server.Mode != config.ModeRemote {
		problems += missing
	}
	if dir := runner.Config().DatabaseDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			pterm.Info.Printf("Database directory %s does not exist yet; makeblastdb will create it\n", dir)
		}
	}

	pterm.DefaultSection.Println("Host")
	if err := printHost(runner.Config().Threads); err != nil {
		pterm.Warning.Println(err.Error())
	}

	if problems > 0 {
		return errors.Newf("%d problem(s) found", problems)
	}
	pterm.Success.Println("Ready")
	return nil
}

// checkBinaries prints a version table and returns the number of tools that
// are missing or too old
func checkBinaries(ctx context.Context, runner *local.Runner) int {
	bad := 0
	data := pterm.TableData{{"Tool", "Version", "Status", "Path"}}
	for _, tool := range local.Tools {
		v, err := runner.Version(ctx, tool)
		if err != nil {
			bad++
			data = append(data, []string{tool, "-", pterm.Red("missing"), runner.BinaryPath(tool)})
			logger.Debugw("BLAST+ probe failed", logger.FieldBinary, tool, logger.FieldError, err)
			continue
		}
		status := pterm.Green("ok")
		if !v.Supported {
			bad++
			status = pterm.Yellow("need " + local.MinVersion)
		}
		data = append(data, []string{tool, v.Version.String(), status, v.Binary})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if bad > 0 {
		pterm.Info.Println("Install BLAST+ with `conda install -c bioconda blast` or set local.blast_bin_dir")
	}
	return bad
}

func printHost(threads int) error {
	logical, err := cpu.Counts(true)
	if err != nil {
		return errors.Wrap(err, "failed to count CPUs")
	}
	model := "unknown"
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		model = infos[0].ModelName
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return errors.Wrap(err, "failed to get memory stats")
	}

	rows := [][]string{
		{"CPU", model},
		{"Logical CPUs", strconv.Itoa(logical)},
		{"BLAST+ threads", strconv.Itoa(threads)},
		{"Memory total", formatBytes(vm.Total)},
		{"Memory available", formatBytes(vm.Available)},
	}
	return pterm.DefaultTable.WithData(rows).Render()
}

func formatBytes(b uint64) string {
	const gib = 1 << 30
	return fmt.Sprintf("%.1f GiB", float64(b)/gib)
}
