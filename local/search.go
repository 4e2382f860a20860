package local

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// DefaultEValue and DefaultMaxHits match the BLAST+ tool defaults exposed
// through the MCP schema
const (
	DefaultEValue  = 10.0
	DefaultMaxHits = 50
)

// SearchRequest is one BLAST+ search
type SearchRequest struct {
	Program  blast.Program
	Query    string // path to a FASTA file or the sequence itself
	Database string // path or name; names are looked up in DatabaseDir first
	EValue   float64
	MaxHits  int
	Format   blast.OutputFormat
	// ExtraArgs are appended verbatim after shell-style splitting
	ExtraArgs string
}

// SearchResult is the outcome of a search. Report is set for tabular output.
type SearchResult struct {
	Format   blast.OutputFormat
	Raw      string
	Report   *blast.Report
	Duration time.Duration
}

// flags the runner sets itself and callers may not override
var reservedFlags = map[string]bool{
	"-query": true, "-db": true, "-out": true, "-outfmt": true,
	"-evalue": true, "-max_target_seqs": true, "-remote": true,
}

// Search runs a BLAST+ program against a local database
func (r *Runner) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if !req.Program.Valid() {
		return nil, errors.NewInvalidRequestError("unknown BLAST program %q", req.Program)
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.NewInvalidRequestError("query is empty")
	}
	if strings.TrimSpace(req.Database) == "" {
		return nil, errors.NewInvalidRequestError("database is required")
	}
	if req.Format == "" {
		req.Format = blast.FormatTabular
	}
	if req.EValue <= 0 {
		req.EValue = DefaultEValue
	}
	if req.MaxHits <= 0 {
		req.MaxHits = DefaultMaxHits
	}
	extra, err := parseExtraArgs(req.ExtraArgs)
	if err != nil {
		return nil, err
	}

	dir, cleanup, err := r.workDir("blast-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	queryFile, err := r.queryFile(dir, req.Query)
	if err != nil {
		return nil, err
	}
	outFile := filepath.Join(dir, "results.out")

	args := []string{
		"-query", queryFile,
		"-db", r.resolveDatabase(req.Database),
		"-out", outFile,
		"-evalue", strconv.FormatFloat(req.EValue, 'g', -1, 64),
		"-max_target_seqs", strconv.Itoa(req.MaxHits),
		"-outfmt", req.Format.Outfmt(),
		"-num_threads", strconv.Itoa(r.cfg.Threads),
	}
	args = append(args, extra...)

	res, err := r.run(ctx, string(req.Program), args...)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return nil, errors.Wrapf(err, "%s produced no output file", req.Program)
	}

	out := &SearchResult{Format: req.Format, Raw: string(data), Duration: res.duration}
	if req.Format == blast.FormatTabular {
		hits, total, err := blast.ParseTabular(out.Raw, req.MaxHits)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s output", req.Program)
		}
		out.Report = &blast.Report{
			Program:   req.Program,
			Database:  req.Database,
			Hits:      hits,
			TotalHits: total,
		}
		out.Raw = blast.TabularHeader + "\n" + out.Raw
	}

	r.log.Infow("Local search finished",
		logger.FieldProgram, req.Program,
		logger.FieldDatabase, req.Database,
		logger.FieldDurationMS, res.duration.Milliseconds(),
	)
	return out, nil
}

// queryFile returns a path BLAST+ can read the query from. Existing files
// are used in place; anything else is treated as sequence text.
func (r *Runner) queryFile(dir, query string) (string, error) {
	q := strings.TrimSpace(query)
	if !strings.ContainsAny(q, "\n>") {
		if info, err := os.Stat(q); err == nil && !info.IsDir() {
			if err := r.checkFile(q); err != nil {
				return "", err
			}
			return q, nil
		}
	}

	if int64(len(q)) > r.cfg.MaxFileSize {
		return "", errors.NewInvalidRequestError("query is %d bytes, larger than the %d byte limit", len(q), r.cfg.MaxFileSize)
	}
	path := filepath.Join(dir, "query.fasta")
	if err := os.WriteFile(path, []byte(blast.NormalizeQuery(q)+"\n"), 0600); err != nil {
		return "", errors.Wrap(err, "failed to write query file")
	}
	return path, nil
}

// resolveDatabase prefers a database of that name inside DatabaseDir
func (r *Runner) resolveDatabase(db string) string {
	if r.cfg.DatabaseDir == "" || filepath.IsAbs(db) || strings.ContainsRune(db, filepath.Separator) {
		return db
	}
	candidate := filepath.Join(r.cfg.DatabaseDir, db)
	if matches, _ := filepath.Glob(candidate + ".*"); len(matches) > 0 {
		return candidate
	}
	return db
}

func parseExtraArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "extra_args"), errors.ErrInvalidRequest)
	}
	for _, a := range args {
		if reservedFlags[a] {
			return nil, errors.NewInvalidRequestError("extra_args may not set %s", a)
		}
	}
	return args, nil
}
