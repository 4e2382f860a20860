// Package jobs drives a remote BLAST job through submit, poll and fetch.
//
// A Client is bound to one Transport (NCBI, the bio-mcp queue, or a test
// fake). Each call owns its Handle; nothing is shared between calls, so a
// Client is safe for concurrent use.
//
//	client := jobs.New(ncbi.New(ncbiCfg), jobs.Config{Logger: log})
//	report, err := client.RunWithRetry(ctx, jobs.JobRequest{
//	    Program: blast.ProgramBlastn,
//	    Query:   seq,
//	}, 3)
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// Config bounds every network step. Zero values take the defaults below.
type Config struct {
	SubmitTimeout  time.Duration // per submission request (default 30s)
	PollInterval   time.Duration // wait before each status request (default 60s)
	MaxPolls       int           // status requests per attempt (default 60)
	MaxWait        time.Duration // wall-clock ceiling on polling per attempt (default 1h)
	BackoffUnit    time.Duration // attempt n waits n*BackoffUnit before retrying (default 10s)
	MinQueryLength int           // residues (default blast.DefaultMinQueryLength)
	ResultLimit    int           // hits kept when a request leaves it zero (default 50)
	Logger         *zap.SugaredLogger
}

func (c Config) withDefaults() Config {
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 60
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Hour
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = 10 * time.Second
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = blast.DefaultMinQueryLength
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = 50
	}
	return c
}

// Client runs jobs against a Transport
type Client struct {
	transport Transport
	cfg       Config
	log       *zap.SugaredLogger

	// swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a client for transport
func New(transport Transport, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		transport: transport,
		cfg:       cfg,
		log:       logger.OrNop(cfg.Logger).With(logger.FieldTransport, transport.Name()),
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Transport returns the transport the client submits to
func (c *Client) Transport() Transport {
	return c.transport
}

// Validate checks a request without contacting the service
func (c *Client) Validate(req JobRequest) error {
	if !req.Program.Valid() {
		return errors.Mark(errors.Newf("unknown BLAST program %q (want one of %s)", req.Program, blast.ProgramNames()), ErrValidation)
	}
	if req.ResultLimit < 0 {
		return errors.Mark(errors.Newf("result limit must not be negative, got %d", req.ResultLimit), ErrValidation)
	}
	if req.EValue < 0 {
		return errors.Mark(errors.Newf("evalue must not be negative, got %g", req.EValue), ErrValidation)
	}
	if err := blast.ValidateQuery(req.Query, c.cfg.MinQueryLength); err != nil {
		return errors.Mark(err, ErrValidation)
	}
	return nil
}

// Submit validates req and hands it to the transport. Invalid requests fail
// with ErrValidation before any network call.
func (c *Client) Submit(ctx context.Context, req JobRequest) (*Handle, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}
	if req.Database == "" {
		req.Database = req.Program.DefaultDatabase()
	}
	if req.ResultLimit == 0 {
		req.ResultLimit = c.cfg.ResultLimit
	}

	log := logger.FromContext(ctx, c.log)
	submitCtx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	start := c.now()
	sub, err := c.transport.Submit(submitCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "submission cancelled")
		}
		return nil, errors.Mark(errors.Wrapf(err, "submit %s to %s", req.Program, c.transport.Name()), ErrSubmission)
	}
	if sub.ID == "" {
		return nil, errors.Mark(errors.Newf("%s returned no job identifier", c.transport.Name()), ErrSubmission)
	}

	log.Infow("Job submitted",
		logger.FieldJobID, sub.ID,
		logger.FieldProgram, req.Program,
		logger.FieldDatabase, req.Database,
		logger.FieldQueryLen, blast.SequenceLength(req.Query),
		logger.FieldDurationMS, c.now().Sub(start).Milliseconds(),
	)
	return &Handle{
		RequestID:     sub.ID,
		SubmittedAt:   start,
		EstimatedWait: sub.EstimatedWait,
		request:       req,
		limit:         req.ResultLimit,
		status:        StatusPending,
	}, nil
}

// Poll issues one status request. A terminal handle returns its status
// without a request; a poll already in flight on the same handle is refused
// with ErrNotReady.
func (c *Client) Poll(ctx context.Context, h *Handle) (Status, error) {
	if h == nil {
		return "", errors.Mark(errors.New("nil job handle"), ErrNotReady)
	}
	if st := h.Status(); st.Terminal() {
		return st, nil
	}
	if !h.polling.CompareAndSwap(false, true) {
		return h.Status(), errors.Mark(errors.Newf("job %s already has a status request in flight", h.RequestID), ErrNotReady)
	}
	defer h.polling.Store(false)

	raw, err := c.transport.Status(ctx, h.RequestID)
	if err != nil {
		if ctx.Err() != nil {
			return h.Status(), errors.Wrap(ctx.Err(), "poll cancelled")
		}
		return h.Status(), errors.Mark(errors.Wrapf(err, "status of job %s", h.RequestID), ErrPoll)
	}
	st, ok := c.transport.DecodeStatus(raw)
	if !ok {
		return h.Status(), errors.Mark(errors.Newf("job %s: unrecognized status %q", h.RequestID, raw), ErrPoll)
	}
	return h.setStatus(st), nil
}

// Wait polls every PollInterval until the job is Ready or Failed. Poll errors
// are treated as transient; running out of MaxPolls or MaxWait gives
// ErrTimeout, a Failed job gives ErrJobFailed.
func (c *Client) Wait(ctx context.Context, h *Handle) (Status, error) {
	if h == nil {
		return "", errors.Mark(errors.New("nil job handle"), ErrNotReady)
	}
	log := logger.FromContext(logger.WithJobID(ctx, h.RequestID), c.log)
	start := c.now()
	deadline := start.Add(c.cfg.MaxWait)

	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastErr error
polling:
	for poll := 1; poll <= c.cfg.MaxPolls; poll++ {
		if err := c.sleep(waitCtx, c.cfg.PollInterval); err != nil {
			if ctx.Err() != nil {
				return h.Status(), errors.Wrap(ctx.Err(), "wait cancelled")
			}
			break
		}
		if !c.now().Before(deadline) {
			break
		}

		st, err := c.Poll(waitCtx, h)
		switch {
		case err == nil:
		case errors.Is(err, ErrPoll):
			lastErr = err
			log.Warnw("Status request failed", logger.FieldPoll, poll, logger.FieldError, err)
			continue
		default:
			if ctx.Err() != nil {
				return h.Status(), errors.Wrap(ctx.Err(), "wait cancelled")
			}
			if waitCtx.Err() != nil {
				lastErr = err
				break polling
			}
			return st, err
		}

		log.Debugw("Polled job", logger.FieldPoll, poll, logger.FieldStatus, st)
		switch st {
		case StatusReady:
			return st, nil
		case StatusFailed:
			return st, errors.Mark(errors.Newf("job %s reported failure", h.RequestID), ErrJobFailed)
		}
	}

	err := errors.Newf("job %s not ready after %s", h.RequestID, roundElapsed(c.now().Sub(start)))
	if lastErr != nil {
		err = errors.WithSecondaryError(err, lastErr)
	}
	return h.Status(), errors.Mark(err, ErrTimeout)
}

// roundElapsed keeps sub-second waits readable in timeout messages
func roundElapsed(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Second)
}

// Fetch retrieves the result of a Ready job, keeping at most the request's
// result limit of hits.
func (c *Client) Fetch(ctx context.Context, h *Handle) (*blast.Report, error) {
	if h == nil {
		return nil, errors.Mark(errors.New("nil job handle"), ErrNotReady)
	}
	if st := h.Status(); st != StatusReady {
		return nil, errors.Mark(errors.WithHint(
			errors.Newf("job %s is %s, not ready", h.RequestID, st),
			"poll the job until it reports ready"), ErrNotReady)
	}

	report, err := c.transport.Result(ctx, h.RequestID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "fetch cancelled")
		}
		return nil, errors.Mark(errors.Wrapf(err, "result of job %s", h.RequestID), ErrFetch)
	}
	if report == nil {
		return nil, errors.Mark(errors.Mark(errors.Newf("job %s returned an empty result", h.RequestID), ErrMalformed), ErrFetch)
	}
	report.Cap(h.limit)
	if report.Program == "" {
		report.Program = h.request.Program
	}
	if report.Database == "" {
		report.Database = h.request.Database
	}
	return report, nil
}

// Cancel asks the service to abort the job when the transport supports it
func (c *Client) Cancel(ctx context.Context, h *Handle) error {
	if h == nil {
		return errors.Mark(errors.New("nil job handle"), ErrNotReady)
	}
	cc, ok := c.transport.(Canceller)
	if !ok {
		return errors.Newf("%s does not support cancelling jobs", c.transport.Name())
	}
	return cc.Cancel(ctx, h.RequestID)
}

// Run performs one submit, wait and fetch sequence
func (c *Client) Run(ctx context.Context, req JobRequest) (*blast.Report, error) {
	h, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := c.Wait(ctx, h); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, h)
}

// RunWithRetry repeats Run up to maxAttempts times, waiting
// attempt*BackoffUnit after each transient failure. Validation and malformed
// results fail at once; exhausting attempts returns *FinalError.
func (c *Client) RunWithRetry(ctx context.Context, req JobRequest, maxAttempts int) (*blast.Report, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if err := c.Validate(req); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, c.log)

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		report, err := c.Run(ctx, req)
		if err == nil {
			if attempt > 1 {
				log.Infow("Job succeeded after retry", logger.FieldAttempt, attempt)
			}
			return report, nil
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "search cancelled")
		}
		if !retryable(err) {
			return nil, err
		}
		last = err
		if attempt == maxAttempts {
			break
		}

		backoff := time.Duration(attempt) * c.cfg.BackoffUnit
		log.Warnw("Attempt failed, retrying",
			logger.FieldAttempt, attempt,
			logger.FieldMaxAttempts, maxAttempts,
			logger.FieldBackoff, backoff,
			logger.FieldError, err,
		)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, errors.Wrap(err, "search cancelled")
		}
	}
	return nil, &FinalError{Attempts: maxAttempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
