package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/jobs/queue"
)

// asyncPrograms get a <program>_async tool in queue mode
var asyncPrograms = []blast.Program{blast.ProgramBlastn, blast.ProgramBlastp}

func (s *Server) registerQueueTools() {
	for _, p := range asyncPrograms {
		tool := mcp.NewTool(string(p)+"_async",
			mcp.WithDescription(fmt.Sprintf("Submit a %s search to the job queue and return a job ID. "+
				"Use for large databases or long queries.", p)),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Query sequence, raw or FASTA"),
			),
			mcp.WithString("database",
				mcp.Required(),
				mcp.Description("Database name, e.g. nt or nr"),
			),
			mcp.WithNumber("evalue",
				mcp.Description("E-value threshold (default: 10)"),
			),
			mcp.WithNumber("max_hits",
				mcp.Description("Maximum number of hits to return (default: 50)"),
			),
		)
		s.addTool(tool, s.asyncSubmitHandler(p))
	}

	jobID := mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("Job ID returned by an *_async tool"),
	)
	s.addTool(mcp.NewTool("get_job_status",
		mcp.WithDescription("Check the status of a queued BLAST job"),
		jobID,
	), s.handleJobStatus)
	s.addTool(mcp.NewTool("get_job_result",
		mcp.WithDescription("Get the results of a completed BLAST job"),
		jobID,
	), s.handleJobResult)
	s.addTool(mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a queued or running BLAST job"),
		jobID,
	), s.handleCancelJob)
}

func (s *Server) asyncSubmitHandler(p blast.Program) toolFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return "", err
		}
		database, err := req.RequireString("database")
		if err != nil {
			return "", err
		}

		h, err := s.opts.QueueJobs.Submit(ctx, jobs.JobRequest{
			Program:     p,
			Database:    database,
			Query:       query,
			ResultLimit: req.GetInt("max_hits", s.opts.ResultLimit),
			EValue:      req.GetFloat("evalue", 0),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Job submitted successfully!\n\n"+
			"Job ID: %s\n"+
			"Status: %s\n"+
			"Queue: %s\n\n"+
			"Use 'get_job_status' with this job ID to check progress.",
			h.RequestID, queue.StateQueued, p), nil
	}
}

func (s *Server) handleJobStatus(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return "", err
	}
	info, err := s.opts.Queue.Info(ctx, id)
	if err != nil {
		return "", err
	}
	return queue.FormatInfo(info), nil
}

func (s *Server) handleJobResult(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return "", err
	}
	res, err := s.opts.Queue.JobResult(ctx, id)
	if err != nil {
		return "", err
	}
	if res.Status != "" && res.Status != queue.StateCompleted {
		return "", errors.WithHint(
			errors.Newf("job %s is %s, results are not available yet", id, res.Status),
			"check progress with get_job_status")
	}
	return queue.FormatResult(res), nil
}

func (s *Server) handleCancelJob(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("job_id")
	if err != nil {
		return "", err
	}
	if err := s.opts.QueueJobs.Cancel(ctx, jobs.NewHandle(id, 0)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Job %s cancelled.", id), nil
}
