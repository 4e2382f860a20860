package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
)

func programNames() []string {
	names := make([]string, len(blast.Programs))
	for i, p := range blast.Programs {
		names[i] = string(p)
	}
	return names
}

func (s *Server) registerRemoteTools() {
	searchArgs := []mcp.ToolOption{
		mcp.WithString("program",
			mcp.Required(),
			mcp.Enum(programNames()...),
			mcp.Description("BLAST program"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query sequence, raw or FASTA"),
		),
		mcp.WithString("database",
			mcp.Description("NCBI database (default: nt for nucleotide targets, nr for protein)"),
		),
		mcp.WithNumber("max_hits",
			mcp.Description(fmt.Sprintf("Maximum number of hits to return (default: %d)", s.opts.ResultLimit)),
		),
		mcp.WithNumber("evalue",
			mcp.Description("E-value threshold (default: NCBI's, 10)"),
		),
	}

	s.addTool(mcp.NewTool("ncbi_blast", append([]mcp.ToolOption{
		mcp.WithDescription("Run a BLAST search on the NCBI servers and wait for the results. " +
			"Searches take from under a minute to tens of minutes; failed attempts are retried."),
	}, searchArgs...)...), s.handleNCBIBlast)

	s.addTool(mcp.NewTool("ncbi_submit", append([]mcp.ToolOption{
		mcp.WithDescription("Submit a BLAST search to NCBI and return its request ID (RID) without waiting"),
	}, searchArgs...)...), s.handleNCBISubmit)

	rid := mcp.WithString("rid",
		mcp.Required(),
		mcp.Description("Request ID returned by ncbi_submit"),
	)
	s.addTool(mcp.NewTool("ncbi_status",
		mcp.WithDescription("Check whether an NCBI BLAST search has finished"),
		rid,
	), s.handleNCBIStatus)
	s.addTool(mcp.NewTool("ncbi_result",
		mcp.WithDescription("Get the hits of a finished NCBI BLAST search"),
		rid,
		mcp.WithNumber("max_hits",
			mcp.Description(fmt.Sprintf("Maximum number of hits to return (default: %d)", s.opts.ResultLimit)),
		),
	), s.handleNCBIResult)
}

func (s *Server) jobRequest(req mcp.CallToolRequest) (jobs.JobRequest, error) {
	name, err := req.RequireString("program")
	if err != nil {
		return jobs.JobRequest{}, err
	}
	program, err := blast.ParseProgram(name)
	if err != nil {
		return jobs.JobRequest{}, err
	}
	query, err := req.RequireString("query")
	if err != nil {
		return jobs.JobRequest{}, err
	}
	return jobs.JobRequest{
		Program:     program,
		Database:    strings.TrimSpace(req.GetString("database", "")),
		Query:       query,
		ResultLimit: req.GetInt("max_hits", s.opts.ResultLimit),
		EValue:      req.GetFloat("evalue", 0),
	}, nil
}

func (s *Server) handleNCBIBlast(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	jr, err := s.jobRequest(req)
	if err != nil {
		return "", err
	}
	report, err := s.opts.NCBI.RunWithRetry(ctx, jr, s.opts.MaxAttempts)
	if err != nil {
		return "", err
	}
	return blast.FormatReport(report), nil
}

func (s *Server) handleNCBISubmit(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	jr, err := s.jobRequest(req)
	if err != nil {
		return "", err
	}
	h, err := s.opts.NCBI.Submit(ctx, jr)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search submitted to NCBI.\n\nRID: %s\n", h.RequestID)
	if h.EstimatedWait > 0 {
		fmt.Fprintf(&b, "Estimated time: %s\n", h.EstimatedWait)
	}
	b.WriteString("\nUse 'ncbi_status' with this RID to check progress. NCBI keeps results for 36 hours.")
	return b.String(), nil
}

func (s *Server) handleNCBIStatus(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	rid, err := req.RequireString("rid")
	if err != nil {
		return "", err
	}
	st, err := s.opts.NCBI.Poll(ctx, jobs.NewHandle(rid, 0))
	if err != nil {
		return "", err
	}

	switch st {
	case jobs.StatusReady:
		return fmt.Sprintf("RID %s: ready\n\nUse 'ncbi_result' to retrieve the hits.", rid), nil
	case jobs.StatusFailed:
		return fmt.Sprintf("RID %s: failed\n\nNCBI reported the search as failed or unknown. Results expire after 36 hours.", rid), nil
	}
	return fmt.Sprintf("RID %s: still running\n\nCheck again in a minute.", rid), nil
}

func (s *Server) handleNCBIResult(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	rid, err := req.RequireString("rid")
	if err != nil {
		return "", err
	}
	h := jobs.NewHandle(rid, req.GetInt("max_hits", s.opts.ResultLimit))
	st, err := s.opts.NCBI.Poll(ctx, h)
	if err != nil {
		return "", err
	}
	if st != jobs.StatusReady {
		return "", errors.WithHint(
			errors.Newf("search %s is %s, results are not available", rid, st),
			"check progress with ncbi_status")
	}
	report, err := s.opts.NCBI.Fetch(ctx, h)
	if err != nil {
		return "", err
	}
	return blast.FormatReport(report), nil
}
