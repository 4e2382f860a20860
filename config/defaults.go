package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Defaults mirror the service limits NCBI documents for the URL API: one
// request every 10 seconds, status checks no more than once a minute.
const (
	DefaultNCBIBaseURL     = "https://blast.ncbi.nlm.nih.gov/Blast.cgi"
	DefaultQueueURL        = "http://localhost:8000"
	DefaultMaxFileSize     = 100_000_000
	DefaultLocalTimeout    = 300
	DefaultResultLimit     = 50
	DefaultMaxAttempts     = 3
	DefaultNCBIMinInterval = 10
	DefaultEUtilsBaseURL   = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "bio-mcp-blast")
	v.SetDefault("server.mode", ModeLocal)

	v.SetDefault("local.blast_bin_dir", "")
	v.SetDefault("local.temp_dir", "")
	v.SetDefault("local.database_dir", "blastdb")
	v.SetDefault("local.timeout_seconds", DefaultLocalTimeout)
	v.SetDefault("local.max_file_size", DefaultMaxFileSize)
	v.SetDefault("local.threads", 0)

	v.SetDefault("ncbi.base_url", DefaultNCBIBaseURL)
	v.SetDefault("ncbi.tool", "bio-mcp-blast")
	v.SetDefault("ncbi.email", "")
	v.SetDefault("ncbi.min_interval_seconds", DefaultNCBIMinInterval)
	v.SetDefault("ncbi.timeout_seconds", 60)

	v.SetDefault("queue.url", DefaultQueueURL)
	v.SetDefault("queue.priority", 5)
	v.SetDefault("queue.timeout_seconds", 30)
	v.SetDefault("queue.allow_private", true) // the queue usually runs next to the server

	v.SetDefault("jobs.submit_timeout_seconds", 30)
	v.SetDefault("jobs.poll_interval_seconds", 60)
	v.SetDefault("jobs.max_polls", 60)
	v.SetDefault("jobs.max_wait_seconds", 3600)
	v.SetDefault("jobs.backoff_seconds", 10)
	v.SetDefault("jobs.max_attempts", DefaultMaxAttempts)
	v.SetDefault("jobs.min_query_length", 10)
	v.SetDefault("jobs.result_limit", DefaultResultLimit)

	v.SetDefault("eutils.base_url", DefaultEUtilsBaseURL)
	v.SetDefault("eutils.api_key", "")
	v.SetDefault("eutils.tool", "bio-mcp-blast")
	v.SetDefault("eutils.email", "")
	v.SetDefault("eutils.timeout_seconds", 30)
}

// BindEnvVars binds the flat environment names older deployments used
// alongside the automatic BIO_MCP_<SECTION>_<KEY> mapping.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("local.max_file_size", "BIO_MCP_MAX_FILE_SIZE")
	v.BindEnv("local.temp_dir", "BIO_MCP_TEMP_DIR")
	v.BindEnv("local.timeout_seconds", "BIO_MCP_TIMEOUT")
	v.BindEnv("local.blast_bin_dir", "BIO_MCP_BLAST_BIN_DIR")
	v.BindEnv("queue.url", "BIO_MCP_QUEUE_URL")
	v.BindEnv("ncbi.email", "BIO_MCP_NCBI_EMAIL")
	// first set variable wins
	v.BindEnv("eutils.api_key", "BIO_MCP_EUTILS_API_KEY", "BIO_MCP_NCBI_API_KEY", "NCBI_API_KEY")
}

// Default returns a Config holding only default values
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// String returns a short summary for logs
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, BlastBinDir: %q, NCBI: %s, Queue: %s, EUtils: %s, APIKey: %t}",
		c.Server.Mode, c.Local.BlastBinDir, c.NCBI.BaseURL, c.Queue.URL, c.EUtils.BaseURL, c.EUtils.APIKey != "")
}
