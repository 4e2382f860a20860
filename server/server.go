// Package server exposes BLAST as MCP tools over stdio.
//
// The tool set depends on the mode:
//
//	local   BLAST+ binaries on this host
//	queue   local tools plus async submission to a bio-mcp job queue
//	remote  the NCBI BLAST URL API, no local binaries needed
//	gene    NCBI Gene, nucleotide and GEO lookups through E-utilities
package server

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bio-mcp/bio-mcp-blast/config"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/eutils"
	"github.com/bio-mcp/bio-mcp-blast/internal/version"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
	"github.com/bio-mcp/bio-mcp-blast/jobs/queue"
	"github.com/bio-mcp/bio-mcp-blast/local"
	"github.com/bio-mcp/bio-mcp-blast/logger"
)

// Options wires the server to its backends. Only the backends the mode
// needs have to be set.
type Options struct {
	Name    string
	Version string
	Mode    string

	Local *local.Runner // local, queue

	Queue     *queue.Client // queue
	QueueJobs *jobs.Client  // queue, bound to Queue

	NCBI        *jobs.Client // remote, bound to an ncbi transport
	MaxAttempts int          // ncbi_blast retries
	ResultLimit int

	EUtils *eutils.Client // gene

	Logger *zap.SugaredLogger
}

// toolFunc returns the tool's text output or an error rendered for the user
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

// Server is the MCP tool surface
type Server struct {
	opts     Options
	mcp      *server.MCPServer
	log      *zap.SugaredLogger
	handlers map[string]server.ToolHandlerFunc
}

// New registers the tools for opts.Mode
func New(opts Options) (*Server, error) {
	if opts.Name == "" {
		opts.Name = "bio-mcp-blast"
	}
	if opts.Version == "" {
		opts.Version = version.Version
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeLocal
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.DefaultMaxAttempts
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = config.DefaultResultLimit
	}

	s := &Server{
		opts:     opts,
		log:      logger.OrNop(opts.Logger),
		handlers: map[string]server.ToolHandlerFunc{},
		mcp: server.NewMCPServer(opts.Name, opts.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}

	switch opts.Mode {
	case config.ModeLocal:
		if opts.Local == nil {
			return nil, errors.New("local mode needs a BLAST+ runner")
		}
		s.registerLocalTools()
	case config.ModeQueue:
		if opts.Local == nil || opts.Queue == nil || opts.QueueJobs == nil {
			return nil, errors.New("queue mode needs a BLAST+ runner and a queue client")
		}
		s.registerLocalTools()
		s.registerQueueTools()
	case config.ModeRemote:
		if opts.NCBI == nil {
			return nil, errors.New("remote mode needs an NCBI job client")
		}
		s.registerRemoteTools()
	case config.ModeGene:
		if opts.EUtils == nil {
			return nil, errors.New("gene mode needs an E-utilities client")
		}
		s.registerGeneTools()
	default:
		return nil, errors.NewInvalidRequestError("unknown mode %q (want one of %v)", opts.Mode, config.Modes)
	}

	s.log.Infow("MCP server ready", "mode", opts.Mode, "tools", s.Tools())
	return s, nil
}

// NewFromConfig builds the backends described by cfg and registers the
// tools for cfg.Server.Mode
func NewFromConfig(cfg *config.Config, log *zap.SugaredLogger) (*Server, error) {
	log = logger.OrNop(log)
	opts := Options{
		Name:        cfg.Server.Name,
		Mode:        cfg.Server.Mode,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		ResultLimit: cfg.Jobs.ResultLimit,
		Logger:      log.Named("server"),
	}
	switch cfg.Server.Mode {
	case config.ModeLocal:
		opts.Local = LocalRunner(cfg, log)
	case config.ModeQueue:
		opts.Local = LocalRunner(cfg, log)
		opts.Queue = QueueClient(cfg, log)
		opts.QueueJobs = jobs.New(opts.Queue, JobsConfig(cfg, log))
	case config.ModeRemote:
		opts.NCBI = NCBIJobs(cfg, log)
	case config.ModeGene:
		opts.EUtils = EUtilsClient(cfg, log)
	}
	return New(opts)
}

// MCP returns the underlying mcp-go server
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Tools lists the registered tool names in sorted order
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeStdio serves MCP over in/out until ctx is cancelled or in closes
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.log.Desugar()))
	s.log.Infow("Serving MCP over stdio", "mode", s.opts.Mode)
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "mcp stdio server")
	}
	return nil
}

// addTool registers tool with a handler that logs the call and turns
// errors into tool results, so callers never see protocol errors
func (s *Server) addTool(tool mcp.Tool, fn toolFunc) {
	name := tool.Name
	h := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logger.WithTool(logger.WithRequestID(ctx, uuid.NewString()), name)
		log := logger.FromContext(ctx, s.log)
		start := time.Now()

		text, err := fn(ctx, req)
		if err != nil {
			log.Warnw("Tool call failed", logger.FieldError, err, logger.FieldDurationMS, time.Since(start).Milliseconds())
			return mcp.NewToolResultError(errors.FormatForUser(err)), nil
		}
		log.Infow("Tool call finished", logger.FieldDurationMS, time.Since(start).Milliseconds())
		return mcp.NewToolResultText(text), nil
	}
	s.handlers[name] = h
	s.mcp.AddTool(tool, h)
}

// call invokes a registered tool directly
func (s *Server) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, errors.NewNotFoundError("no tool %q in %s mode", name, s.opts.Mode)
	}
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}
