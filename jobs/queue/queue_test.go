package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/internal/httpclient"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
)

type fakeQueue struct {
	mu        sync.Mutex
	submitted []submitRequest
	states    []string
	polls     int
	result    JobResult
	cancelled []string
}

func (f *fakeQueue) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/submit", func(w http.ResponseWriter, r *http.Request) {
		var sr submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sr))
		f.mu.Lock()
		f.submitted = append(f.submitted, sr)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(submitResponse{JobID: sr.JobID, Status: StateQueued})
	})
	mux.HandleFunc("GET /jobs/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			http.NotFound(w, r)
			return
		}
		f.mu.Lock()
		i := min(f.polls, len(f.states)-1)
		f.polls++
		state := f.states[i]
		f.mu.Unlock()
		created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
		json.NewEncoder(w).Encode(JobInfo{JobID: r.PathValue("id"), Status: state, CreatedAt: &created})
	})
	mux.HandleFunc("GET /jobs/{id}/result", func(w http.ResponseWriter, r *http.Request) {
		res := f.result
		res.JobID = r.PathValue("id")
		json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("POST /jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.cancelled = append(f.cancelled, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(Config{URL: srv.URL + "/", Tags: []string{"mcp"}}, httpclient.WrapClient(srv.Client()))
}

func completedResult() JobResult {
	ev, id := 2e-12, 100.0
	return JobResult{
		Status:  StateCompleted,
		JobType: "blastn",
		Summary: &Summary{
			QueryTitle: "TP53 fragment", QueryLen: 40, Database: "nt", NumHits: 12,
			BestHitEValue: &ev, BestHitIdentity: &id,
		},
		ResultURL: "https://results.example.org/jobs/abc.json",
		Hits: []blast.Hit{
			{Accession: "NM_000546.6", Identity: 100, AlignLength: 40, EValue: 2e-12, BitScore: 75.8},
			{Accession: "NG_017013.2", Identity: 97.5, AlignLength: 40, EValue: 4.5e-10, BitScore: 68},
		},
	}
}

func TestSubmit(t *testing.T) {
	f := &fakeQueue{}
	c := newTestClient(t, f.handler(t))

	sub, err := c.Submit(context.Background(), jobs.JobRequest{
		Program: blast.ProgramBlastp, Database: "swissprot", Query: "MEEPQSDPSV", ResultLimit: 20, EValue: 1e-5,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(sub.ID)
	assert.NoError(t, err)

	require.Len(t, f.submitted, 1)
	sr := f.submitted[0]
	assert.Equal(t, sub.ID, sr.JobID)
	assert.Equal(t, "blastp", sr.JobType)
	assert.Equal(t, DefaultPriority, sr.Priority)
	assert.Equal(t, []string{"mcp"}, sr.Tags)
	assert.Equal(t, "swissprot", sr.Parameters["database"])
	assert.Equal(t, "MEEPQSDPSV", sr.Parameters["query"])
	assert.EqualValues(t, 20, sr.Parameters["max_hits"])
	assert.InDelta(t, 1e-5, sr.Parameters["evalue"], 1e-12)
}

func TestInfoAndStatus(t *testing.T) {
	f := &fakeQueue{states: []string{StateRunning, StateCompleted}}
	c := newTestClient(t, f.handler(t))

	info, err := c.Info(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.JobID)
	assert.Equal(t, StateRunning, info.Status)
	require.NotNil(t, info.CreatedAt)

	raw, err := c.Status(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, raw)
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, (&fakeQueue{states: []string{StateQueued}}).handler(t))
	_, err := c.Info(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker pool exhausted", http.StatusBadGateway)
	}))
	_, err := c.Status(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.IsServiceUnavailableError(err))
	assert.Contains(t, err.Error(), "worker pool exhausted")
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	_, err := c.Result(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, jobs.ErrMalformed))
}

func TestResult(t *testing.T) {
	f := &fakeQueue{result: completedResult()}
	c := newTestClient(t, f.handler(t))

	r, err := c.Result(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, blast.ProgramBlastn, r.Program)
	assert.Equal(t, "nt", r.Database)
	assert.Len(t, r.Hits, 2)
	assert.Equal(t, 12, r.TotalHits)
}

func TestResultNotCompleted(t *testing.T) {
	f := &fakeQueue{result: JobResult{Status: StateRunning}}
	c := newTestClient(t, f.handler(t))

	_, err := c.Result(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
}

func TestCancel(t *testing.T) {
	f := &fakeQueue{}
	c := newTestClient(t, f.handler(t))
	require.NoError(t, c.Cancel(context.Background(), "abc"))
	assert.Equal(t, []string{"abc"}, f.cancelled)
}

func TestDecodeStatus(t *testing.T) {
	tests := map[string]jobs.Status{
		StateQueued:    jobs.StatusPending,
		StatePending:   jobs.StatusPending,
		StateRunning:   jobs.StatusPending,
		StateCompleted: jobs.StatusReady,
		StateFailed:    jobs.StatusFailed,
		StateCancelled: jobs.StatusFailed,
	}
	for raw, want := range tests {
		got, ok := DecodeStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := DecodeStatus("paused")
	assert.False(t, ok)
}

func TestRunThroughJobsClient(t *testing.T) {
	f := &fakeQueue{states: []string{StateQueued, StateRunning, StateCompleted}, result: completedResult()}
	client := jobs.New(newTestClient(t, f.handler(t)), jobs.Config{PollInterval: time.Millisecond})

	report, err := client.RunWithRetry(context.Background(), jobs.JobRequest{
		Program: blast.ProgramBlastn, Database: "nt", Query: "ACGTACGTACGTACGTACGT", ResultLimit: 1,
	}, 2)
	require.NoError(t, err)
	assert.Len(t, report.Hits, 1)
	assert.Equal(t, 3, f.polls)
}

func TestFormatInfo(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	progress := 40.0
	out := FormatInfo(&JobInfo{JobID: "abc", Status: StateRunning, CreatedAt: &created, Progress: &progress})
	assert.Contains(t, out, "Job ID: abc\nStatus: running\nCreated: 2026-10-01T09:00:00Z\nProgress: 40%")
	assert.Contains(t, out, "compute cluster")

	out = FormatInfo(&JobInfo{JobID: "abc", Status: StateFailed})
	assert.Contains(t, out, "Failed: Unknown error")
}

func TestFormatResult(t *testing.T) {
	res := completedResult()
	res.JobID = "abc"
	out := FormatResult(&res)
	assert.True(t, strings.HasPrefix(out, "Job abc Results\n"))
	assert.Contains(t, out, "  Total Hits: 12\n")
	assert.Contains(t, out, "  Best Hit E-value: 2.00e-12\n")
	assert.Contains(t, out, "  Best Hit Identity: 100.0%\n")
	assert.Contains(t, out, "Subject: NM_000546.6")
	assert.Contains(t, out, "https://results.example.org/jobs/abc.json")
}
