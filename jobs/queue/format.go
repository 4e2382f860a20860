package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bio-mcp/bio-mcp-blast/blast"
)

// FormatInfo renders a status document for the get_job_status tool
func FormatInfo(info *JobInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job ID: %s\n", info.JobID)
	fmt.Fprintf(&b, "Status: %s\n", info.Status)
	if info.CreatedAt != nil {
		fmt.Fprintf(&b, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	}
	if info.StartedAt != nil {
		fmt.Fprintf(&b, "Started: %s\n", info.StartedAt.Format(time.RFC3339))
	}
	if info.Progress != nil {
		fmt.Fprintf(&b, "Progress: %s%%\n", strconv.FormatFloat(*info.Progress, 'f', -1, 64))
	}

	switch info.Status {
	case StateRunning:
		b.WriteString("\nThe search is running on the compute cluster. Large database searches can take 5-30 minutes.")
	case StateCompleted:
		if info.CompletedAt != nil {
			fmt.Fprintf(&b, "Completed: %s\n", info.CompletedAt.Format(time.RFC3339))
		}
		b.WriteString("\nUse 'get_job_result' to retrieve the results.")
	case StateFailed:
		msg := info.Error
		if msg == "" {
			msg = "Unknown error"
		}
		fmt.Fprintf(&b, "Failed: %s\n", msg)
		b.WriteString("\nCheck the query sequence and database name.")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResult renders a completed result for the get_job_result tool
func FormatResult(res *JobResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s Results\n", res.JobID)
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	if s := res.Summary; s != nil {
		b.WriteString("Summary:\n")
		fmt.Fprintf(&b, "  Query: %s\n", orNA(s.QueryTitle))
		if s.QueryLen > 0 {
			fmt.Fprintf(&b, "  Query Length: %d bp/aa\n", s.QueryLen)
		}
		fmt.Fprintf(&b, "  Database: %s\n", orNA(s.Database))
		fmt.Fprintf(&b, "  Total Hits: %d\n", s.NumHits)
		if s.BestHitEValue != nil {
			fmt.Fprintf(&b, "  Best Hit E-value: %s\n", blast.FormatEValue(*s.BestHitEValue))
		}
		if s.BestHitIdentity != nil {
			fmt.Fprintf(&b, "  Best Hit Identity: %s%%\n", strconv.FormatFloat(*s.BestHitIdentity, 'f', 1, 64))
		}
		b.WriteString("\n")
	}

	if len(res.Hits) > 0 {
		b.WriteString(blast.FormatReport(res.Report()))
		b.WriteString("\n")
	}

	if res.ResultURL != "" {
		fmt.Fprintf(&b, "Full results available at:\n%s\n", res.ResultURL)
		b.WriteString("Results will be available for 7 days.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
