package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/display"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/local"
	"github.com/bio-mcp/bio-mcp-blast/logger"
	"github.com/bio-mcp/bio-mcp-blast/server"
)

// SearchCmd runs one search from the terminal
var SearchCmd = &cobra.Command{
	Use:   "search [flags] <sequence | @file.fasta>",
	Short: "Run a BLAST search from the terminal",
	Long: `Run a BLAST search and print the hits.

By default the search runs on the NCBI BLAST web service and waits for the
results, retrying failed attempts. With --local it runs the BLAST+ binaries
on this host instead.

Examples:
  blastmcp search -p blastn ACGTTGCATGTCGCATGATGCATGAGAGCT
  blastmcp search -p blastp --db swissprot @p53.fasta
  blastmcp search -p blastn --local --db ./blastdb/mydb @reads.fasta`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchProgram string
	searchDB      string
	searchLocal   bool
	searchMaxHits int
	searchEValue  float64
	searchFormat  string
	searchText    bool
)

func init() {
	SearchCmd.Flags().StringVarP(&searchProgram, "program", "p", "blastn", "BLAST program: "+blast.ProgramNames())
	SearchCmd.Flags().StringVar(&searchDB, "db", "", "Database (default: nt or nr, by program)")
	SearchCmd.Flags().BoolVar(&searchLocal, "local", false, "Use the local BLAST+ binaries")
	SearchCmd.Flags().IntVarP(&searchMaxHits, "max-hits", "n", 10, "Maximum number of hits")
	SearchCmd.Flags().Float64Var(&searchEValue, "evalue", 0, "E-value threshold (default: 10)")
	SearchCmd.Flags().StringVar(&searchFormat, "format", "tabular", "Local output format: "+strings.Join(blast.OutputFormats, ", "))
	SearchCmd.Flags().BoolVar(&searchText, "text", false, "Print the plain text report instead of a table")
	SearchCmd.Flags().BoolP("json", "j", false, "Print the report as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	program, err := blast.ParseProgram(searchProgram)
	if err != nil {
		return err
	}
	query, err := readQuery(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db := searchDB
	if db == "" {
		db = program.DefaultDatabase()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *blast.Report
	if searchLocal {
		format, err := blast.ParseOutputFormat(searchFormat)
		if err != nil {
			return err
		}
		runner := server.LocalRunner(cfg, logger.Logger)
		spinner, _ := pterm.DefaultSpinner.WithWriter(os.Stderr).Start(fmt.Sprintf("Running %s against %s...", program, db))
		res, err := runner.Search(ctx, local.SearchRequest{
			Program:  program,
			Query:    query,
			Database: db,
			EValue:   searchEValue,
			MaxHits:  searchMaxHits,
			Format:   format,
		})
		if err != nil {
			spinner.Fail("Search failed")
			return err
		}
		spinner.Success(fmt.Sprintf("%s finished in %s", program, res.Duration.Round(time.Millisecond)))
		if res.Report == nil {
			fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			return nil
		}
		report = res.Report
	} else {
		report, err = searchNCBI(ctx, cfg, program, db, query)
		if err != nil {
			return err
		}
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), report)
	}
	if searchText {
		fmt.Fprintln(cmd.OutOrStdout(), blast.FormatReport(report))
		return nil
	}
	return renderHits(report)
}

func searchNCBI(ctx context.Context, cfg *config.Config, program blast.Program, db, query string) (*blast.Report, error) {
	client := server.NCBIJobs(cfg, logger.Logger)
	req := jobs.JobRequest{
		Program:     program,
		Database:    db,
		Query:       query,
		ResultLimit: searchMaxHits,
		EValue:      searchEValue,
	}
	if err := client.Validate(req); err != nil {
		return nil, err
	}

	spinner, _ := pterm.DefaultSpinner.WithWriter(os.Stderr).Start(fmt.Sprintf("Searching NCBI %s with %s (this can take several minutes)...", db, program))
	report, err := client.RunWithRetry(ctx, req, cfg.Jobs.MaxAttempts)
	if err != nil {
		spinner.Fail("Search failed")
		for _, hint := range errors.GetAllHints(err) {
			pterm.Info.Println(hint)
		}
		return nil, err
	}
	spinner.Success("NCBI search finished")
	return report, nil
}

// readQuery accepts a sequence or @path
func readQuery(arg string) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read query file %s", path)
		}
		return string(data), nil
	}
	return arg, nil
}

func renderHits(r *blast.Report) error {
	pterm.DefaultSection.Printf("%s vs %s", strings.ToUpper(string(r.Program)), r.Database)
	if len(r.Hits) == 0 {
		pterm.Warning.Println("No significant hits found")
		return nil
	}
	data := pterm.TableData{{"#", "Subject", "Identity", "Length", "E-value", "Bit score", "Description"}}
	for i, h := range r.Hits {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			h.Accession,
			strconv.FormatFloat(h.Identity, 'f', 1, 64) + "%",
			strconv.Itoa(h.AlignLength),
			blast.FormatEValue(h.EValue),
			strconv.FormatFloat(h.BitScore, 'f', 1, 64),
			truncate(h.Title, 60),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return errors.Wrap(err, "failed to render hits")
	}
	if r.Truncated() {
		pterm.Info.Printf("Showing %d of %d hits\n", len(r.Hits), r.TotalHits)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
