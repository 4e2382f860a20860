package server

import (
	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/eutils"
	"github.com/bio-mcp/bio-mcp-blast/internal/version"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/jobs/ncbi"
	"github.com/bio-mcp/bio-mcp-blast/jobs/queue"
	"github.com/bio-mcp/bio-mcp-blast/local"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// JobsConfig converts the [jobs] section into polling and retry bounds
func JobsConfig(cfg *config.Config, log *zap.SugaredLogger) jobs.Config {
	return jobs.Config{
		SubmitTimeout:  cfg.Jobs.SubmitTimeout(),
		PollInterval:   cfg.Jobs.PollInterval(),
		MaxPolls:       cfg.Jobs.MaxPolls,
		MaxWait:        cfg.Jobs.MaxWait(),
		BackoffUnit:    cfg.Jobs.Backoff(),
		MinQueryLength: cfg.Jobs.MinQueryLength,
		ResultLimit:    cfg.Jobs.ResultLimit,
		Logger:         logger.OrNop(log).Named("jobs"),
	}
}

// LocalRunner builds a BLAST+ runner from the [local] section
func LocalRunner(cfg *config.Config, log *zap.SugaredLogger) *local.Runner {
	return local.NewRunner(local.Config{
		BlastBinDir: cfg.Local.BlastBinDir,
		TempDir:     cfg.Local.TempDir,
		DatabaseDir: cfg.Local.DatabaseDir,
		Timeout:     cfg.Local.Timeout(),
		MaxFileSize: cfg.Local.MaxFileSize,
		Threads:     cfg.Local.Threads,
		Logger:      logger.OrNop(log).Named("local"),
	})
}

// QueueClient builds the job queue transport from the [queue] section
func QueueClient(cfg *config.Config, log *zap.SugaredLogger) *queue.Client {
	return queue.New(queue.Config{
		URL:          cfg.Queue.URL,
		Priority:     cfg.Queue.Priority,
		Timeout:      cfg.Queue.Timeout(),
		AllowPrivate: cfg.Queue.AllowPrivate,
		Tags:         []string{"mcp", "blast"},
		UserAgent:    version.Get().UserAgent(),
		Logger:       logger.OrNop(log).Named("queue"),
	})
}

// NCBIJobs builds a job client bound to the NCBI transport
func NCBIJobs(cfg *config.Config, log *zap.SugaredLogger) *jobs.Client {
	transport := ncbi.New(ncbi.Config{
		BaseURL:     cfg.NCBI.BaseURL,
		Tool:        cfg.NCBI.Tool,
		Email:       cfg.NCBI.Email,
		MinInterval: cfg.NCBI.MinInterval(),
		Timeout:     cfg.NCBI.Timeout(),
		UserAgent:   version.Get().UserAgent(),
		Logger:      logger.OrNop(log).Named("ncbi"),
	})
	return jobs.New(transport, JobsConfig(cfg, log))
}

// EUtilsClient builds the E-utilities client from the [eutils] section,
// paced for the configured API key
func EUtilsClient(cfg *config.Config, log *zap.SugaredLogger) *eutils.Client {
	log = logger.OrNop(log).Named("eutils")
	c := eutils.New(eutils.Config{
		BaseURL:   cfg.EUtils.BaseURL,
		APIKey:    cfg.EUtils.APIKey,
		Tool:      cfg.EUtils.Tool,
		Email:     cfg.EUtils.Email,
		Timeout:   cfg.EUtils.Timeout(),
		UserAgent: version.Get().UserAgent(),
		Logger:    log,
	})
	log.Debugw("E-utilities client ready", "api_key", c.HasAPIKey())
	return c
}
