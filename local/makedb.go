package local

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

var dbNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// MakeDBRequest builds a database from a FASTA file
type MakeDBRequest struct {
	Input  string // FASTA file path
	Name   string // database name inside DatabaseDir
	DBType blast.DBType
	Title  string // defaults to Name
}

// MakeDBResult describes the database makeblastdb created
type MakeDBResult struct {
	Path   string   // value to pass as -db
	Files  []string // files written, base names only
	Output string   // makeblastdb stdout
}

// MakeDB runs makeblastdb, writing the database into DatabaseDir
func (r *Runner) MakeDB(ctx context.Context, req MakeDBRequest) (*MakeDBResult, error) {
	if r.cfg.DatabaseDir == "" {
		return nil, errors.WithHint(errors.New("no database directory configured"), "set local.database_dir")
	}
	if !dbNamePattern.MatchString(req.Name) {
		return nil, errors.NewInvalidRequestError("database name %q must be letters, digits, '.', '_' or '-'", req.Name)
	}
	if _, err := blast.ParseDBType(string(req.DBType)); err != nil {
		return nil, err
	}
	if err := r.checkFile(req.Input); err != nil {
		return nil, err
	}
	if req.Title == "" {
		req.Title = req.Name
	}

	if err := os.MkdirAll(r.cfg.DatabaseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", r.cfg.DatabaseDir)
	}
	out := filepath.Join(r.cfg.DatabaseDir, req.Name)

	res, err := r.run(ctx, "makeblastdb",
		"-in", req.Input,
		"-out", out,
		"-dbtype", string(req.DBType),
		"-title", req.Title,
	)
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(out + ".*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list database files")
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Base(m))
	}
	sort.Strings(files)

	r.log.Infow("Database created", logger.FieldDatabase, out, "files", len(files))
	return &MakeDBResult{Path: out, Files: files, Output: res.stdout}, nil
}
