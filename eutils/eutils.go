// Package eutils is a client for the NCBI Entrez E-utilities (esearch,
// esummary and efetch), used by the gene and GEO dataset tools.
//
// NCBI allows three requests per second from one address, ten when the
// request carries an API key. Every request goes through a paced
// httpclient.Client sized from the key.
package eutils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/internal/httpclient"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// DefaultBaseURL is the public E-utilities endpoint
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Requests per second NCBI accepts
const (
	RateWithoutKey = 3
	RateWithKey    = 10
)

// maxBody bounds how much of any response is read
const maxBody = 64 << 20

// Config configures the E-utilities client
type Config struct {
	BaseURL string
	APIKey  string
	Tool    string
	Email   string
	// MinInterval overrides the spacing derived from APIKey. Negative
	// disables pacing.
	MinInterval time.Duration
	Timeout     time.Duration // per request
	UserAgent   string
	Logger      *zap.SugaredLogger
}

// Interval is the spacing between requests this config asks for
func (c Config) Interval() time.Duration {
	switch {
	case c.MinInterval < 0:
		return 0
	case c.MinInterval > 0:
		return c.MinInterval
	case c.APIKey != "":
		return time.Second / RateWithKey
	}
	return time.Second / RateWithoutKey
}

// Client talks to esearch, esummary and efetch
type Client struct {
	cfg  Config
	http *httpclient.Client
	log  *zap.SugaredLogger
}

// New creates a client with an SSRF-safe HTTP client paced for cfg.APIKey
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := httpclient.NewWithOptions(cfg.Timeout, httpclient.Options{
		AllowedSchemes: []string{"https"},
		UserAgent:      cfg.UserAgent,
	})
	return NewWithHTTPClient(cfg, hc)
}

// NewWithHTTPClient creates a client over hc. Pacing and User-Agent are
// taken from cfg.
func NewWithHTTPClient(cfg Config, hc *httpclient.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc.SetMinInterval(cfg.Interval())
	hc.SetUserAgent(cfg.UserAgent)
	return &Client{
		cfg:  cfg,
		http: hc,
		log:  logger.OrNop(cfg.Logger),
	}
}

// HasAPIKey reports whether requests carry an API key
func (c *Client) HasAPIKey() bool {
	return c.cfg.APIKey != ""
}

// SearchResult is the answer to an esearch call
type SearchResult struct {
	Count int      // total matches
	IDs   []string // the first retmax UIDs
}

type esearchResponse struct {
	Error  string `json:"error"`
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

// Search runs esearch against db and returns up to retmax UIDs
func (c *Client) Search(ctx context.Context, db, term string, retmax int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("db", db)
	q.Set("term", term)
	q.Set("retmode", "json")
	if retmax > 0 {
		q.Set("retmax", strconv.Itoa(retmax))
	}

	var resp esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", q, &resp); err != nil {
		return nil, errors.Wrapf(err, "esearch %s", db)
	}
	if resp.Error != "" {
		return nil, errors.Newf("esearch %s: %s", db, resp.Error)
	}
	if resp.Result.Error != "" {
		return nil, errors.NewInvalidRequestError("esearch %s rejected %q: %s", db, term, resp.Result.Error)
	}
	count, _ := strconv.Atoi(resp.Result.Count)
	return &SearchResult{Count: count, IDs: resp.Result.IDList}, nil
}

type esummaryResponse struct {
	Error  string                     `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// summaries runs esummary and decodes each document in UID order. Documents
// NCBI could not produce carry an "error" field and are skipped.
func summaries[T any](ctx context.Context, c *Client, db string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("db", db)
	q.Set("id", strings.Join(ids, ","))
	q.Set("retmode", "json")

	var resp esummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", q, &resp); err != nil {
		return nil, errors.Wrapf(err, "esummary %s", db)
	}
	if resp.Error != "" {
		return nil, errors.Newf("esummary %s: %s", db, resp.Error)
	}

	var uids []string
	if raw, ok := resp.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, errors.Wrapf(err, "esummary %s: malformed uid list", db)
		}
	}

	docs := make([]T, 0, len(uids))
	for _, uid := range uids {
		raw, ok := resp.Result[uid]
		if !ok {
			continue
		}
		var failed struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failed) == nil && failed.Error != "" {
			c.log.Debugw("esummary skipped document", "db", db, "uid", uid, logger.FieldError, failed.Error)
			continue
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrapf(err, "esummary %s: malformed document %s", db, uid)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FetchRequest selects a record, or a region of it, for efetch
type FetchRequest struct {
	DB      string // default nuccore
	ID      string // accession or UID
	Start   int    // 1-based, inclusive; zero fetches the whole record
	Stop    int
	Minus   bool   // reverse complement
	RetType string // fasta, gb, fasta_cds_na, fasta_cds_aa
}

// Fetch runs efetch in text mode and returns the record
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	if req.ID == "" {
		return "", errors.NewInvalidRequestError("efetch needs an ID")
	}
	if req.DB == "" {
		req.DB = "nuccore"
	}
	if req.RetType == "" {
		req.RetType = "fasta"
	}
	q := url.Values{}
	q.Set("db", req.DB)
	q.Set("id", req.ID)
	q.Set("rettype", req.RetType)
	q.Set("retmode", "text")
	if req.Start > 0 {
		q.Set("seq_start", strconv.Itoa(req.Start))
		q.Set("seq_stop", strconv.Itoa(req.Stop))
	}
	if req.Minus {
		q.Set("strand", "2")
	}

	body, err := c.get(ctx, "efetch.fcgi", q)
	if err != nil {
		return "", errors.Wrapf(err, "efetch %s %s", req.DB, req.ID)
	}
	text := strings.TrimSpace(string(body))
	switch {
	case text == "":
		return "", errors.NewNotFoundError("efetch %s returned nothing for %s", req.DB, req.ID)
	case strings.HasPrefix(text, "Error"), strings.Contains(text, "<ERROR>"):
		return "", errors.Newf("efetch %s %s: %s", req.DB, req.ID, firstLine(text))
	}
	return text, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	body, err := c.get(ctx, endpoint, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "malformed %s response: %s", endpoint, firstLine(string(body)))
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Tool != "" {
		q.Set("tool", c.cfg.Tool)
	}
	if c.cfg.Email != "" {
		q.Set("email", c.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "GET %s", endpoint), errors.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s response", endpoint)
	}
	c.log.Debugw("E-utilities request",
		"endpoint", endpoint,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := errors.Mark(errors.Newf("NCBI E-utilities rate limit exceeded (%s)", endpoint), errors.ErrServiceUnavailable)
		if c.cfg.APIKey == "" {
			err = errors.WithHint(err, "set eutils.api_key or NCBI_API_KEY to raise the limit to 10 requests per second")
		}
		return nil, err
	case resp.StatusCode >= 500:
		return nil, errors.Mark(errors.Newf("NCBI E-utilities returned %s", resp.Status), errors.ErrServiceUnavailable)
	}
	return nil, errors.Newf("NCBI E-utilities returned %s: %s", resp.Status, firstLine(string(data)))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200]) + "..."
	}
	return s
}

// flexInt decodes numbers NCBI sends either bare or quoted
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "not an integer: %s", b)
	}
	*n = flexInt(v)
	return nil
}
