package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
)

const testQuery = "ACGTACGTACGTACGTACGTACGTACGTACGTACGT"

// fakeTransport scripts a remote service. Statuses are handed out in order;
// the last one repeats.
type fakeTransport struct {
	mu          sync.Mutex
	submitErr   error
	submitFails int // fail this many submits before succeeding
	submitID    string
	statuses    []string
	statusErrs  []error
	report      *blast.Report
	resultErr   error
	submits     int
	statusCalls int
	results     int
	// when set, Status blocks until released
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Submit(ctx context.Context, req JobRequest) (Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil && (f.submitFails == 0 || f.submits <= f.submitFails) {
		return Submission{}, f.submitErr
	}
	id := f.submitID
	if id == "" {
		id = fmt.Sprintf("RID-%d", f.submits)
	}
	return Submission{ID: id, EstimatedWait: 15 * time.Second}, nil
}

func (f *fakeTransport) Status(ctx context.Context, id string) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return "", f.statusErrs[i]
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeTransport) DecodeStatus(raw string) (Status, bool) {
	switch raw {
	case "WAITING", "QUEUED":
		return StatusPending, true
	case "READY":
		return StatusReady, true
	case "FAILED":
		return StatusFailed, true
	}
	return "", false
}

func (f *fakeTransport) Result(ctx context.Context, id string) (*blast.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results++
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	cp := *f.report
	cp.Hits = append([]blast.Hit(nil), f.report.Hits...)
	return &cp, nil
}

func makeReport(n int) *blast.Report {
	r := &blast.Report{Program: blast.ProgramBlastn, Database: "nt"}
	for i := 0; i < n; i++ {
		r.Hits = append(r.Hits, blast.Hit{
			Accession: fmt.Sprintf("NM_%06d.1", i+1),
			Identity:  99.0 - float64(i),
			EValue:    1e-30 * float64(i+1),
			BitScore:  200 - float64(i),
		})
	}
	r.TotalHits = n
	return r
}

// newTestClient returns a client whose sleeps return at once and are recorded
func newTestClient(tr Transport, cfg Config) (*Client, *[]time.Duration) {
	c := New(tr, cfg)
	var slept []time.Duration
	var mu sync.Mutex
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return ctx.Err()
	}
	return c, &slept
}

func blastnRequest(limit int) JobRequest {
	return JobRequest{Program: blast.ProgramBlastn, Database: "nt", Query: testQuery, ResultLimit: limit}
}

func TestSubmitRejectsShortQueryWithoutNetwork(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"one residue", "A"},
		{"nine residues", "ACGTACGTA"},
		{"short fasta", ">seq1\nACGT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{statuses: []string{"READY"}}
			c, _ := newTestClient(tr, Config{MinQueryLength: 10})

			h, err := c.Submit(context.Background(), JobRequest{Program: blast.ProgramBlastn, Query: tt.query})
			require.Error(t, err)
			assert.Nil(t, h)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, 0, tr.submits)
		})
	}
}

func TestSubmitRejectsBadProgram(t *testing.T) {
	tr := &fakeTransport{}
	c, _ := newTestClient(tr, Config{})
	_, err := c.Submit(context.Background(), JobRequest{Program: "megablast", Query: testQuery})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, tr.submits)
}

func TestSubmitFillsDefaults(t *testing.T) {
	tr := &fakeTransport{submitID: "8XYZ"}
	c, _ := newTestClient(tr, Config{ResultLimit: 7})

	h, err := c.Submit(context.Background(), JobRequest{Program: blast.ProgramBlastp, Query: "MEEPQSDPSVEPPLSQETF"})
	require.NoError(t, err)
	assert.Equal(t, "8XYZ", h.RequestID)
	assert.Equal(t, StatusPending, h.Status())
	assert.Equal(t, 15*time.Second, h.EstimatedWait)
	assert.Equal(t, "nr", h.Request().Database)
	assert.Equal(t, 7, h.Limit())
}

func TestSubmitWithoutIdentifier(t *testing.T) {
	tr := &emptyIDTransport{fakeTransport{}}
	c, _ := newTestClient(tr, Config{})
	_, err := c.Submit(context.Background(), blastnRequest(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
}

type emptyIDTransport struct{ fakeTransport }

func (e *emptyIDTransport) Submit(ctx context.Context, req JobRequest) (Submission, error) {
	return Submission{}, nil
}

func TestSubmitTimeout(t *testing.T) {
	c, _ := newTestClient(&blockingSubmit{}, Config{SubmitTimeout: 20 * time.Millisecond})
	_, err := c.Submit(context.Background(), blastnRequest(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
}

type blockingSubmit struct{ fakeTransport }

func (b *blockingSubmit) Submit(ctx context.Context, req JobRequest) (Submission, error) {
	<-ctx.Done()
	return Submission{}, ctx.Err()
}

func TestRunWithRetryExhaustsAttempts(t *testing.T) {
	tr := &fakeTransport{submitErr: errors.New("503 Service Unavailable")}
	c, slept := newTestClient(tr, Config{BackoffUnit: time.Second})

	report, err := c.RunWithRetry(context.Background(), blastnRequest(5), 3)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, 3, tr.submits)

	require.Len(t, *slept, 2)
	for i := 1; i < len(*slept); i++ {
		assert.Greater(t, (*slept)[i], (*slept)[i-1])
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)

	var final *FinalError
	require.True(t, errors.As(err, &final))
	assert.Equal(t, 3, final.Attempts)
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.Contains(t, err.Error(), "503 Service Unavailable")
}

func TestRunWithRetryRecovers(t *testing.T) {
	tr := &fakeTransport{
		submitErr:   errors.New("connection reset"),
		submitFails: 1,
		statuses:    []string{"READY"},
		report:      makeReport(3),
	}
	c, slept := newTestClient(tr, Config{BackoffUnit: time.Second, PollInterval: time.Second})

	report, err := c.RunWithRetry(context.Background(), blastnRequest(5), 3)
	require.NoError(t, err)
	assert.Len(t, report.Hits, 3)
	assert.Equal(t, 2, tr.submits)
	// one backoff, one poll interval
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *slept)
}

func TestRunWithRetryDoesNotRetryValidation(t *testing.T) {
	tr := &fakeTransport{}
	c, slept := newTestClient(tr, Config{})

	_, err := c.RunWithRetry(context.Background(), JobRequest{Program: blast.ProgramBlastn, Query: "ACG"}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var final *FinalError
	assert.False(t, errors.As(err, &final))
	assert.Equal(t, 0, tr.submits)
	assert.Empty(t, *slept)
}

func TestRunWithRetryDoesNotRetryMalformed(t *testing.T) {
	tr := &fakeTransport{
		statuses:  []string{"READY"},
		resultErr: errors.Mark(errors.New("unexpected end of JSON input"), ErrMalformed),
	}
	c, _ := newTestClient(tr, Config{})

	_, err := c.RunWithRetry(context.Background(), blastnRequest(5), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	assert.Equal(t, 1, tr.submits)
}

func TestRunWithRetryRetriesFailedJobs(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"FAILED"}}
	c, _ := newTestClient(tr, Config{})

	_, err := c.RunWithRetry(context.Background(), blastnRequest(5), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobFailed))
	assert.Equal(t, 2, tr.submits)
}

func TestPollStatusMapping(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"READY", StatusReady, false},
		{"WAITING", StatusPending, false},
		{"QUEUED", StatusPending, false},
		{"FAILED", StatusFailed, false},
		{"UNKNOWN", "", true},
		{"", "", true},
		{"ready", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tr := &fakeTransport{statuses: []string{tt.raw}}
			c, _ := newTestClient(tr, Config{})
			h := NewHandle("RID", 5)

			st, err := c.Poll(context.Background(), h)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrPoll))
				assert.Equal(t, StatusPending, h.Status())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, st)
			assert.Equal(t, tt.want, h.Status())
		})
	}
}

func TestPollTransportError(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"READY"}, statusErrs: []error{errors.New("502 Bad Gateway")}}
	c, _ := newTestClient(tr, Config{})

	_, err := c.Poll(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPoll))
}

func TestTerminalHandleNeverTransitions(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"READY", "WAITING", "FAILED"}}
	c, _ := newTestClient(tr, Config{})
	h := NewHandle("RID", 5)

	for i := 0; i < 3; i++ {
		st, err := c.Poll(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, st)
	}
	assert.Equal(t, 1, tr.statusCalls)

	// setStatus itself refuses to leave a terminal state
	assert.Equal(t, StatusReady, h.setStatus(StatusFailed))
}

func TestConcurrentPollRejected(t *testing.T) {
	tr := &fakeTransport{
		statuses: []string{"WAITING"},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c, _ := newTestClient(tr, Config{})
	h := NewHandle("RID", 5)

	done := make(chan error, 1)
	go func() {
		_, err := c.Poll(context.Background(), h)
		done <- err
	}()
	<-tr.entered

	_, err := c.Poll(context.Background(), h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))

	close(tr.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, tr.statusCalls)
}

func TestFetchCapsAtResultLimit(t *testing.T) {
	tests := []struct {
		name   string
		parsed int
		limit  int
		want   int
	}{
		{"more hits than limit", 8, 5, 5},
		{"fewer hits than limit", 3, 5, 3},
		{"exactly limit", 5, 5, 5},
		{"no hits", 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{statuses: []string{"READY"}, report: makeReport(tt.parsed)}
			c, _ := newTestClient(tr, Config{})
			h := NewHandle("RID", tt.limit)
			_, err := c.Poll(context.Background(), h)
			require.NoError(t, err)

			report, err := c.Fetch(context.Background(), h)
			require.NoError(t, err)
			assert.Len(t, report.Hits, tt.want)
			assert.Equal(t, tt.parsed, report.TotalHits)
		})
	}
}

func TestFetchBeforeReady(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING"}, report: makeReport(2)}
	c, _ := newTestClient(tr, Config{})

	h, err := c.Submit(context.Background(), blastnRequest(5))
	require.NoError(t, err)

	report, err := c.Fetch(context.Background(), h)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, 0, tr.results)

	_, err = c.Fetch(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestFetchErrors(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"READY"}, resultErr: errors.New("connection refused")}
	c, _ := newTestClient(tr, Config{})
	h := NewHandle("RID", 5)
	_, err := c.Poll(context.Background(), h)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
	assert.True(t, retryable(err))
}

func TestEndToEnd(t *testing.T) {
	tr := &fakeTransport{
		statuses: []string{"WAITING", "WAITING", "READY"},
		report:   makeReport(12),
	}
	c, slept := newTestClient(tr, Config{PollInterval: 30 * time.Second})

	h, err := c.Submit(context.Background(), JobRequest{
		Program:     blast.ProgramBlastn,
		Query:       "ACGTACGTACGTACGTACGTAGCTAGCTAGCATCGATCGATCGA",
		ResultLimit: 5,
	})
	require.NoError(t, err)

	st, err := c.Wait(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)
	assert.Equal(t, 3, tr.statusCalls)
	assert.Len(t, *slept, 3)

	report, err := c.Fetch(context.Background(), h)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(report.Hits), 5)
	for _, hit := range report.Hits {
		assert.NotEmpty(t, hit.Accession)
		assert.Greater(t, hit.BitScore, 0.0)
		assert.GreaterOrEqual(t, hit.EValue, 0.0)
	}
}

func TestWaitMaxPolls(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING"}}
	c, _ := newTestClient(tr, Config{MaxPolls: 4})

	st, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, StatusPending, st)
	assert.Equal(t, 4, tr.statusCalls)
}

func TestWaitPollErrorsAreTransient(t *testing.T) {
	tr := &fakeTransport{
		statuses:   []string{"", "", "READY"},
		statusErrs: []error{errors.New("timeout"), errors.New("502")},
	}
	c, _ := newTestClient(tr, Config{})

	st, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)
}

func TestWaitPollErrorsExhaust(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"???"}}
	c, _ := newTestClient(tr, Config{MaxPolls: 3})

	_, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestWaitWallClockCeiling(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING"}}
	c, _ := newTestClient(tr, Config{MaxPolls: 1000, MaxWait: 30 * time.Minute})

	clock := time.Now()
	c.now = func() time.Time {
		clock = clock.Add(10 * time.Minute)
		return clock
	}

	_, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, tr.statusCalls, 5)
}

func TestWaitSubSecondCeiling(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING"}}
	c, _ := newTestClient(tr, Config{MaxPolls: 1000, MaxWait: 250 * time.Millisecond})

	clock := time.Now()
	c.now = func() time.Time {
		clock = clock.Add(100 * time.Millisecond)
		return clock
	}

	_, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "not ready after 400ms")
	assert.Equal(t, 2, tr.statusCalls)
}

func TestRoundElapsed(t *testing.T) {
	assert.Equal(t, 120*time.Millisecond, roundElapsed(120400*time.Microsecond))
	assert.Equal(t, 3*time.Second, roundElapsed(2600*time.Millisecond))
}

func TestWaitFailed(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING", "FAILED"}}
	c, _ := newTestClient(tr, Config{})

	st, err := c.Wait(context.Background(), NewHandle("RID", 5))
	require.Error(t, err)
	assert.Equal(t, StatusFailed, st)
	assert.True(t, errors.Is(err, ErrJobFailed))
}

func TestWaitCancelled(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"WAITING"}}
	c := New(tr, Config{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.Wait(ctx, NewHandle("RID", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 0, tr.statusCalls)
}

func TestRunWithRetryCancelledDuringBackoff(t *testing.T) {
	tr := &fakeTransport{submitErr: errors.New("503")}
	c := New(tr, Config{BackoffUnit: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.RunWithRetry(ctx, blastnRequest(5), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, tr.submits)
}

func TestCancelUnsupported(t *testing.T) {
	c, _ := newTestClient(&fakeTransport{}, Config{})
	err := c.Cancel(context.Background(), NewHandle("RID", 5))
	assert.Error(t, err)
}

func TestNilHandleRejected(t *testing.T) {
	tr := &fakeTransport{statuses: []string{"READY"}}
	c, _ := newTestClient(tr, Config{})
	ctx := context.Background()

	st, err := c.Wait(ctx, nil)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Empty(t, st)

	assert.True(t, errors.Is(c.Cancel(ctx, nil), ErrNotReady))

	_, err = c.Poll(ctx, nil)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Equal(t, 0, tr.statusCalls)
}
