// Package config loads blastmcp settings from TOML files and BIO_MCP_*
// environment variables.
package config

import "time"

// Config is the full blastmcp configuration tree
type Config struct {
	Server ServerConfig `mapstructure:"server" toml:"server" yaml:"server"`
	Local  LocalConfig  `mapstructure:"local" toml:"local" yaml:"local"`
	NCBI   NCBIConfig   `mapstructure:"ncbi" toml:"ncbi" yaml:"ncbi"`
	Queue  QueueConfig  `mapstructure:"queue" toml:"queue" yaml:"queue"`
	Jobs   JobsConfig   `mapstructure:"jobs" toml:"jobs" yaml:"jobs"`
	EUtils EUtilsConfig `mapstructure:"eutils" toml:"eutils" yaml:"eutils"`
}

// Server modes
const (
	ModeLocal  = "local"  // BLAST+ tools only
	ModeQueue  = "queue"  // BLAST+ tools plus queue-backed async jobs
	ModeRemote = "remote" // NCBI BLAST URL API
	ModeGene   = "gene"   // NCBI Gene and GEO lookups through E-utilities
)

// Modes lists the accepted server.mode values
var Modes = []string{ModeLocal, ModeQueue, ModeRemote, ModeGene}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name is the advertised MCP server name
	Name string `mapstructure:"name" toml:"name" yaml:"name"`

	// Mode is one of Modes
	Mode string `mapstructure:"mode" toml:"mode" yaml:"mode"`
}

// LocalConfig configures the BLAST+ subprocess runner
type LocalConfig struct {
	// BlastBinDir holds the BLAST+ binaries. Empty resolves them from PATH.
	BlastBinDir string `mapstructure:"blast_bin_dir" toml:"blast_bin_dir" yaml:"blast_bin_dir"`

	// TempDir is where queries are staged. Empty means os.TempDir().
	TempDir string `mapstructure:"temp_dir" toml:"temp_dir" yaml:"temp_dir"`

	// DatabaseDir receives makeblastdb output and resolves relative -db names
	DatabaseDir string `mapstructure:"database_dir" toml:"database_dir" yaml:"database_dir"`

	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`

	// MaxFileSize bounds query files, in bytes
	MaxFileSize int64 `mapstructure:"max_file_size" toml:"max_file_size" yaml:"max_file_size"`

	// Threads is passed as -num_threads. Zero means the logical CPU count.
	Threads int `mapstructure:"threads" toml:"threads" yaml:"threads"`
}

// NCBIConfig configures the NCBI BLAST URL API transport
type NCBIConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url" yaml:"base_url"`

	// Tool and Email are the TOOL and EMAIL parameters NCBI asks clients to send
	Tool  string `mapstructure:"tool" toml:"tool" yaml:"tool"`
	Email string `mapstructure:"email" toml:"email" yaml:"email"`

	MinIntervalSeconds int `mapstructure:"min_interval_seconds" toml:"min_interval_seconds" yaml:"min_interval_seconds"`

	// TimeoutSeconds bounds each HTTP request
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// QueueConfig configures the bio-mcp job queue transport
type QueueConfig struct {
	URL            string `mapstructure:"url" toml:"url" yaml:"url"`
	Priority       int    `mapstructure:"priority" toml:"priority" yaml:"priority"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`

	// AllowPrivate permits queue URLs on localhost or private networks
	AllowPrivate bool `mapstructure:"allow_private" toml:"allow_private" yaml:"allow_private"`
}

// JobsConfig configures submit/poll/fetch orchestration
type JobsConfig struct {
	SubmitTimeoutSeconds int `mapstructure:"submit_timeout_seconds" toml:"submit_timeout_seconds" yaml:"submit_timeout_seconds"`
	PollIntervalSeconds  int `mapstructure:"poll_interval_seconds" toml:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	MaxPolls             int `mapstructure:"max_polls" toml:"max_polls" yaml:"max_polls"`
	MaxWaitSeconds       int `mapstructure:"max_wait_seconds" toml:"max_wait_seconds" yaml:"max_wait_seconds"`
	BackoffSeconds       int `mapstructure:"backoff_seconds" toml:"backoff_seconds" yaml:"backoff_seconds"`
	MaxAttempts          int `mapstructure:"max_attempts" toml:"max_attempts" yaml:"max_attempts"`
	MinQueryLength       int `mapstructure:"min_query_length" toml:"min_query_length" yaml:"min_query_length"`
	ResultLimit          int `mapstructure:"result_limit" toml:"result_limit" yaml:"result_limit"`
}

// EUtilsConfig configures the NCBI E-utilities client
type EUtilsConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url" yaml:"base_url"`

	// APIKey raises the NCBI limit from 3 to 10 requests per second. Falls
	// back to NCBI_API_KEY.
	APIKey string `mapstructure:"api_key" toml:"api_key" yaml:"api_key"`

	Tool           string `mapstructure:"tool" toml:"tool" yaml:"tool"`
	Email          string `mapstructure:"email" toml:"email" yaml:"email"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout is the BLAST+ process timeout
func (c LocalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MinInterval is the minimum spacing between NCBI requests
func (c NCBIConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalSeconds) * time.Second
}

// Timeout is the per-request HTTP timeout for NCBI
func (c NCBIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout is the per-request HTTP timeout for the queue
func (c QueueConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout is the per-request HTTP timeout for E-utilities
func (c EUtilsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Redacted returns a copy safe to print, with secrets masked
func (c Config) Redacted() Config {
	if c.EUtils.APIKey != "" {
		c.EUtils.APIKey = "********"
	}
	return c
}

func (c JobsConfig) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

func (c JobsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c JobsConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

func (c JobsConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
