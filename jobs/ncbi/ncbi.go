// Package ncbi is a jobs.Transport for the NCBI BLAST URL API (Blast.cgi).
//
// Submission is CMD=Put, status is CMD=Get&FORMAT_OBJECT=SearchInfo and the
// result is fetched as JSON2_S. NCBI asks clients to send at most one request
// every 10 seconds and to identify themselves with TOOL and EMAIL; both are
// handled here.
package ncbi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/internal/httpclient"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// DefaultBaseURL is the public Blast.cgi endpoint
const DefaultBaseURL = "https://blast.ncbi.nlm.nih.gov/Blast.cgi"

// maxBody bounds how much of any response is read
const maxBody = 64 << 20

// Config configures the NCBI transport
type Config struct {
	BaseURL     string
	Tool        string
	Email       string
	MinInterval time.Duration // spacing between requests; zero disables pacing
	Timeout     time.Duration // per request
	UserAgent   string
	Logger      *zap.SugaredLogger
}

// Client is the NCBI transport
type Client struct {
	cfg  Config
	http *httpclient.Client
	log  *zap.SugaredLogger
}

// New creates a transport with an SSRF-safe, paced HTTP client
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	hc := httpclient.NewWithOptions(cfg.Timeout, httpclient.Options{
		AllowedSchemes: []string{"https"},
		UserAgent:      cfg.UserAgent,
		MinInterval:    cfg.MinInterval,
	})
	return NewWithHTTPClient(cfg, hc)
}

// NewWithHTTPClient creates a transport over hc. Pacing and User-Agent are
// taken from cfg.
func NewWithHTTPClient(cfg Config, hc *httpclient.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc.SetMinInterval(cfg.MinInterval)
	hc.SetUserAgent(cfg.UserAgent)
	return &Client{
		cfg:  cfg,
		http: hc,
		log:  logger.OrNop(cfg.Logger),
	}
}

// Name implements jobs.Transport
func (c *Client) Name() string { return "ncbi" }

// DecodeStatus implements jobs.Transport
func (c *Client) DecodeStatus(raw string) (jobs.Status, bool) { return DecodeStatus(raw) }

// Submit sends CMD=Put and returns the RID with NCBI's time-of-execution estimate
func (c *Client) Submit(ctx context.Context, req jobs.JobRequest) (jobs.Submission, error) {
	form := url.Values{}
	form.Set("CMD", "Put")
	form.Set("PROGRAM", string(req.Program))
	form.Set("DATABASE", req.Database)
	form.Set("QUERY", req.Query)
	if req.ResultLimit > 0 {
		form.Set("HITLIST_SIZE", strconv.Itoa(req.ResultLimit))
	}
	if req.EValue > 0 {
		form.Set("EXPECT", strconv.FormatFloat(req.EValue, 'g', -1, 64))
	}
	c.identify(form)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return jobs.Submission{}, errors.Wrap(err, "failed to build submit request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(httpReq)
	if err != nil {
		return jobs.Submission{}, err
	}

	info, err := ParseQBlastInfo(body)
	if err != nil || info["RID"] == "" {
		if msg := pageError(body); msg != "" {
			return jobs.Submission{}, errors.Newf("NCBI rejected the search: %s", msg)
		}
		return jobs.Submission{}, errors.New("NCBI response carried no RID")
	}

	sub := jobs.Submission{ID: info["RID"]}
	if rtoe, err := strconv.Atoi(info["RTOE"]); err == nil && rtoe > 0 {
		sub.EstimatedWait = time.Duration(rtoe) * time.Second
	}
	c.log.Debugw("NCBI accepted search", "rid", sub.ID, "rtoe", sub.EstimatedWait)
	return sub, nil
}

// Status implements jobs.Transport, returning the raw NCBI status word
func (c *Client) Status(ctx context.Context, rid string) (string, error) {
	info, err := c.SearchInfo(ctx, rid)
	if err != nil {
		return "", err
	}
	status, ok := info["Status"]
	if !ok {
		return "", errors.Newf("SearchInfo for %s has no Status", rid)
	}
	return status, nil
}

// SearchInfo returns the full SearchInfo block for rid, e.g. Status and
// ThereAreHits
func (c *Client) SearchInfo(ctx context.Context, rid string) (map[string]string, error) {
	q := url.Values{}
	q.Set("CMD", "Get")
	q.Set("FORMAT_OBJECT", "SearchInfo")
	q.Set("RID", rid)
	c.identify(q)

	body, err := c.get(ctx, q)
	if err != nil {
		return nil, err
	}
	info, err := ParseQBlastInfo(body)
	if err != nil {
		return nil, errors.Wrapf(err, "SearchInfo for %s", rid)
	}
	return info, nil
}

// Result implements jobs.Transport
func (c *Client) Result(ctx context.Context, rid string) (*blast.Report, error) {
	q := url.Values{}
	q.Set("CMD", "Get")
	q.Set("FORMAT_TYPE", "JSON2_S")
	q.Set("RID", rid)
	c.identify(q)

	body, err := c.get(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeReport([]byte(body))
}

func (c *Client) identify(v url.Values) {
	if c.cfg.Tool != "" {
		v.Set("TOOL", c.cfg.Tool)
	}
	if c.cfg.Email != "" {
		v.Set("EMAIL", c.cfg.Email)
	}
}

func (c *Client) get(ctx context.Context, q url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", req.Method, c.cfg.BaseURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", errors.Wrap(err, "failed to read NCBI response")
	}
	c.log.Debugw("NCBI request",
		"method", req.Method,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		err := errors.Newf("NCBI returned %s", resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			err = errors.Mark(err, errors.ErrServiceUnavailable)
		}
		return "", err
	}
	return string(data), nil
}
