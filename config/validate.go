package config

import (
	"net/url"
	"slices"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if !slices.Contains(Modes, c.Server.Mode) {
		return errors.Newf("server.mode must be one of %v, got %q", Modes, c.Server.Mode)
	}

	if c.Local.TimeoutSeconds <= 0 {
		return errors.Newf("local.timeout_seconds must be > 0, got %d", c.Local.TimeoutSeconds)
	}
	if c.Local.MaxFileSize <= 0 {
		return errors.Newf("local.max_file_size must be > 0, got %d", c.Local.MaxFileSize)
	}
	// Threads: 0 = logical CPU count
	if c.Local.Threads < 0 {
		return errors.Newf("local.threads must be >= 0, got %d", c.Local.Threads)
	}

	if err := validateURL("ncbi.base_url", c.NCBI.BaseURL); err != nil {
		return err
	}
	if c.NCBI.MinIntervalSeconds < 0 {
		return errors.Newf("ncbi.min_interval_seconds must be >= 0, got %d", c.NCBI.MinIntervalSeconds)
	}
	if c.NCBI.TimeoutSeconds <= 0 {
		return errors.Newf("ncbi.timeout_seconds must be > 0, got %d", c.NCBI.TimeoutSeconds)
	}

	if c.Server.Mode == ModeQueue {
		if err := validateURL("queue.url", c.Queue.URL); err != nil {
			return err
		}
		if c.Queue.TimeoutSeconds <= 0 {
			return errors.Newf("queue.timeout_seconds must be > 0, got %d", c.Queue.TimeoutSeconds)
		}
	}

	if err := validateURL("eutils.base_url", c.EUtils.BaseURL); err != nil {
		return err
	}
	if c.EUtils.TimeoutSeconds <= 0 {
		return errors.Newf("eutils.timeout_seconds must be > 0, got %d", c.EUtils.TimeoutSeconds)
	}

	j := c.Jobs
	if j.SubmitTimeoutSeconds <= 0 {
		return errors.Newf("jobs.submit_timeout_seconds must be > 0, got %d", j.SubmitTimeoutSeconds)
	}
	if j.PollIntervalSeconds <= 0 {
		return errors.Newf("jobs.poll_interval_seconds must be > 0, got %d", j.PollIntervalSeconds)
	}
	if j.MaxPolls <= 0 {
		return errors.Newf("jobs.max_polls must be > 0, got %d", j.MaxPolls)
	}
	if j.MaxWaitSeconds <= 0 {
		return errors.Newf("jobs.max_wait_seconds must be > 0, got %d", j.MaxWaitSeconds)
	}
	if j.BackoffSeconds < 0 {
		return errors.Newf("jobs.backoff_seconds must be >= 0, got %d", j.BackoffSeconds)
	}
	if j.MaxAttempts < 1 {
		return errors.Newf("jobs.max_attempts must be >= 1, got %d", j.MaxAttempts)
	}
	if j.MinQueryLength < 1 {
		return errors.Newf("jobs.min_query_length must be >= 1, got %d", j.MinQueryLength)
	}
	if j.ResultLimit < 1 {
		return errors.Newf("jobs.result_limit must be >= 1, got %d", j.ResultLimit)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "%s is not a URL", key)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("%s must be an http(s) URL, got %q", key, raw)
	}
	if u.Host == "" {
		return errors.Newf("%s has no host: %q", key, raw)
	}
	return nil
}
