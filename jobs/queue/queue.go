// Package queue is a jobs.Transport for the bio-mcp job queue API, the
// service that runs long BLAST searches on a compute cluster and keeps the
// results for a week.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/internal/httpclient"
	"github.com/bio-mcp/bio-mcp-blast/internal/util"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// Remote job states
const (
	StateQueued    = "queued"
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// DefaultPriority is used when Config.Priority is zero
const DefaultPriority = 5

// Config configures the queue transport
type Config struct {
	URL          string
	Priority     int
	Timeout      time.Duration
	AllowPrivate bool     // permit localhost and private network queue URLs
	Tags         []string // attached to every submitted job
	UserAgent    string
	Logger       *zap.SugaredLogger
}

// Client is the queue transport
type Client struct {
	cfg  Config
	base string
	http *httpclient.Client
	log  *zap.SugaredLogger
}

// JobInfo is the status document returned by GET /jobs/{id}/status
type JobInfo struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Summary is the headline of a completed job
type Summary struct {
	QueryTitle      string   `json:"query_title,omitempty"`
	QueryLen        int      `json:"query_len,omitempty"`
	Database        string   `json:"database,omitempty"`
	NumHits         int      `json:"num_hits"`
	BestHitEValue   *float64 `json:"best_hit_evalue,omitempty"`
	BestHitIdentity *float64 `json:"best_hit_identity,omitempty"`
}

// JobResult is the document returned by GET /jobs/{id}/result
type JobResult struct {
	JobID     string      `json:"job_id"`
	Status    string      `json:"status"`
	JobType   string      `json:"job_type,omitempty"`
	Summary   *Summary    `json:"summary,omitempty"`
	ResultURL string      `json:"result_url,omitempty"`
	Hits      []blast.Hit `json:"hits,omitempty"`
}

type submitRequest struct {
	JobID      string         `json:"job_id"`
	JobType    string         `json:"job_type"`
	Parameters map[string]any `json:"parameters"`
	Priority   int            `json:"priority"`
	Tags       []string       `json:"tags,omitempty"`
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// New creates a queue transport
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := httpclient.NewWithOptions(cfg.Timeout, httpclient.Options{
		BlockPrivateIP: util.Ptr(!cfg.AllowPrivate),
		UserAgent:      cfg.UserAgent,
	})
	return NewWithHTTPClient(cfg, hc)
}

// NewWithHTTPClient creates a queue transport over hc
func NewWithHTTPClient(cfg Config, hc *httpclient.Client) *Client {
	if cfg.Priority == 0 {
		cfg.Priority = DefaultPriority
	}
	hc.SetUserAgent(cfg.UserAgent)
	return &Client{
		cfg:  cfg,
		base: strings.TrimRight(cfg.URL, "/"),
		http: hc,
		log:  logger.OrNop(cfg.Logger),
	}
}

// Name implements jobs.Transport
func (c *Client) Name() string { return "queue" }

// DecodeStatus implements jobs.Transport
func (c *Client) DecodeStatus(raw string) (jobs.Status, bool) { return DecodeStatus(raw) }

// DecodeStatus maps a queue job state to a job status
func DecodeStatus(raw string) (jobs.Status, bool) {
	switch raw {
	case StateQueued, StatePending, StateRunning:
		return jobs.StatusPending, true
	case StateCompleted:
		return jobs.StatusReady, true
	case StateFailed, StateCancelled:
		return jobs.StatusFailed, true
	}
	return "", false
}

// Submit implements jobs.Transport. The job ID is generated client-side.
func (c *Client) Submit(ctx context.Context, req jobs.JobRequest) (jobs.Submission, error) {
	sr := submitRequest{
		JobID:   uuid.NewString(),
		JobType: string(req.Program),
		Parameters: map[string]any{
			"query":    req.Query,
			"database": req.Database,
			"max_hits": req.ResultLimit,
		},
		Priority: c.cfg.Priority,
		Tags:     c.cfg.Tags,
	}
	if req.EValue > 0 {
		sr.Parameters["evalue"] = req.EValue
	}

	var resp submitResponse
	if err := c.call(ctx, http.MethodPost, "/jobs/submit", sr, &resp); err != nil {
		return jobs.Submission{}, err
	}
	id := resp.JobID
	if id == "" {
		id = sr.JobID
	}
	c.log.Debugw("Queued job", logger.FieldJobID, id, logger.FieldStatus, resp.Status)
	return jobs.Submission{ID: id}, nil
}

// Info returns the full status document for a job
func (c *Client) Info(ctx context.Context, id string) (*JobInfo, error) {
	var info JobInfo
	if err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id)+"/status", nil, &info); err != nil {
		return nil, err
	}
	if info.JobID == "" {
		info.JobID = id
	}
	return &info, nil
}

// Status implements jobs.Transport
func (c *Client) Status(ctx context.Context, id string) (string, error) {
	info, err := c.Info(ctx, id)
	if err != nil {
		return "", err
	}
	return info.Status, nil
}

// JobResult returns the raw result document for a job
func (c *Client) JobResult(ctx context.Context, id string) (*JobResult, error) {
	var res JobResult
	if err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id)+"/result", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Result implements jobs.Transport
func (c *Client) Result(ctx context.Context, id string) (*blast.Report, error) {
	res, err := c.JobResult(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != StateCompleted {
		return nil, errors.Newf("job %s is not completed yet (status: %s)", id, res.Status)
	}
	return res.Report(), nil
}

// Cancel implements jobs.Canceller
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// Report converts the result document into a report
func (r *JobResult) Report() *blast.Report {
	report := &blast.Report{
		Program: blast.Program(r.JobType),
		Hits:    r.Hits,
	}
	report.TotalHits = len(r.Hits)
	if s := r.Summary; s != nil {
		report.QueryTitle = s.QueryTitle
		report.QueryLength = s.QueryLen
		report.Database = s.Database
		if s.NumHits > report.TotalHits {
			report.TotalHits = s.NumHits
		}
	}
	return report
}

// call sends a JSON request and decodes a JSON response into out (when non-nil)
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read queue response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.WithHint(errors.NewNotFoundError("job not found (%s)", path),
			"results are kept for 7 days; check the job ID")
	case resp.StatusCode >= 500:
		return errors.Mark(errors.Newf("queue returned %s: %s", resp.Status, snippet(data)), errors.ErrServiceUnavailable)
	case resp.StatusCode >= 300:
		return errors.Newf("queue returned %s: %s", resp.Status, snippet(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s response", path), jobs.ErrMalformed)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
