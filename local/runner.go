// Package local runs the BLAST+ command line tools as subprocesses.
//
// Every search gets a private temporary directory for its query and output
// files. The directory is removed afterwards on a best-effort basis.
package local

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// Defaults applied by NewRunner to zero Config fields
const (
	DefaultTimeout     = 300 * time.Second
	DefaultMaxFileSize = 100_000_000
)

// installHint is attached to every "binary not found" error
const installHint = "install BLAST+ (https://blast.ncbi.nlm.nih.gov/doc/blast-help/downloadblastdata.html, " +
	"or `conda install -c bioconda blast`) or set local.blast_bin_dir"

// Config configures a Runner
type Config struct {
	BlastBinDir string // empty resolves binaries from PATH
	TempDir     string // parent of per-search work dirs; empty = os.TempDir()
	DatabaseDir string // makeblastdb output and relative -db lookups
	Timeout     time.Duration
	MaxFileSize int64 // bytes, applies to query files and inline sequences
	Threads     int   // -num_threads; zero = logical CPU count
	Logger      *zap.SugaredLogger
}

// Runner executes BLAST+ binaries
type Runner struct {
	cfg Config
	log *zap.SugaredLogger
}

// NewRunner creates a runner, filling defaults for zero config values
func NewRunner(cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Threads <= 0 {
		cfg.Threads = DefaultThreads()
	}
	return &Runner{cfg: cfg, log: logger.OrNop(cfg.Logger)}
}

// DefaultThreads is the number of logical CPUs, or 1 when it cannot be read
func DefaultThreads() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Config returns the effective configuration
func (r *Runner) Config() Config {
	return r.cfg
}

// BinaryPath resolves a BLAST+ tool name to the path that will be executed
func (r *Runner) BinaryPath(name string) string {
	if r.cfg.BlastBinDir == "" {
		return name
	}
	return filepath.Join(r.cfg.BlastBinDir, name)
}

// commandResult holds what a finished BLAST+ process produced
type commandResult struct {
	stdout   string
	stderr   string
	duration time.Duration
}

// run executes a BLAST+ binary under the configured timeout and maps the
// usual failures to errors with hints
func (r *Runner) run(ctx context.Context, name string, args ...string) (*commandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	bin := r.BinaryPath(name)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debugw("Running BLAST+", logger.FieldBinary, bin, "args", args)
	start := time.Now()
	err := cmd.Run()
	res := &commandResult{stdout: stdout.String(), stderr: stderr.String(), duration: time.Since(start)}
	if err == nil {
		r.log.Debugw("BLAST+ finished", logger.FieldBinary, name, logger.FieldDurationMS, res.duration.Milliseconds())
		return res, nil
	}

	switch {
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		return nil, errors.WithHint(errors.Newf("%s not found", bin), installHint)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, errors.Mark(errors.Newf("%s timed out after %s", name, r.cfg.Timeout), errors.ErrTimeout)
	case ctx.Err() != nil:
		return nil, errors.Wrapf(ctx.Err(), "%s cancelled", name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(res.stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.stdout)
		}
		return nil, errors.Newf("%s failed (exit code %d): %s", name, exitErr.ExitCode(), msg)
	}
	return nil, errors.Wrapf(err, "failed to run %s", name)
}

// workDir creates a private per-call directory and a func that removes it
func (r *Runner) workDir(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(r.cfg.TempDir, prefix)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create work directory")
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			r.log.Debugw("Failed to remove work directory", "dir", dir, logger.FieldError, err)
		}
	}, nil
}

// checkFile verifies path is a regular file within the size limit
func (r *Runner) checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", path)
	}
	if !info.Mode().IsRegular() {
		return errors.NewInvalidRequestError("%s is not a regular file", path)
	}
	if info.Size() > r.cfg.MaxFileSize {
		return errors.NewInvalidRequestError("%s is %d bytes, larger than the %d byte limit", path, info.Size(), r.cfg.MaxFileSize)
	}
	return nil
}
