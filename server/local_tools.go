package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/local"
)

var programDescriptions = map[blast.Program]string{
	blast.ProgramBlastn:  "Nucleotide-nucleotide BLAST search",
	blast.ProgramBlastp:  "Protein-protein BLAST search",
	blast.ProgramBlastx:  "Translated nucleotide query against a protein database",
	blast.ProgramTblastn: "Protein query against a translated nucleotide database",
}

func (s *Server) registerLocalTools() {
	for _, p := range blast.Programs {
		tool := mcp.NewTool(string(p),
			mcp.WithDescription(programDescriptions[p]),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Path to query FASTA file or sequence string"),
			),
			mcp.WithString("database",
				mcp.Required(),
				mcp.Description("Path to BLAST database or name of a database in the database directory"),
			),
			mcp.WithNumber("evalue",
				mcp.Description("E-value threshold (default: 10)"),
				mcp.DefaultNumber(local.DefaultEValue),
			),
			mcp.WithNumber("max_hits",
				mcp.Description("Maximum number of hits to return (default: 50)"),
				mcp.DefaultNumber(local.DefaultMaxHits),
			),
			mcp.WithString("output_format",
				mcp.Enum(blast.OutputFormats...),
				mcp.Description("Output format (default: tabular)"),
				mcp.DefaultString(string(blast.FormatTabular)),
			),
			mcp.WithString("extra_args",
				mcp.Description("Additional BLAST+ command line options, e.g. \"-task blastn-short\""),
			),
		)
		s.addTool(tool, s.searchHandler(p))
	}

	s.addTool(mcp.NewTool("makeblastdb",
		mcp.WithDescription("Create a BLAST database from FASTA file"),
		mcp.WithString("input_file",
			mcp.Required(),
			mcp.Description("Path to input FASTA file"),
		),
		mcp.WithString("database_name",
			mcp.Required(),
			mcp.Description("Name for the output database"),
		),
		mcp.WithString("dbtype",
			mcp.Required(),
			mcp.Enum(string(blast.DBTypeNucleotide), string(blast.DBTypeProtein)),
			mcp.Description("Database type: nucleotide or protein"),
		),
		mcp.WithString("title",
			mcp.Description("Title for the database (optional)"),
		),
	), s.handleMakeDB)

	s.addTool(mcp.NewTool("blast_version",
		mcp.WithDescription("Report the installed BLAST+ version of each tool"),
	), s.handleVersion)
}

func (s *Server) searchHandler(p blast.Program) toolFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return "", err
		}
		database, err := req.RequireString("database")
		if err != nil {
			return "", err
		}
		format, err := blast.ParseOutputFormat(req.GetString("output_format", string(blast.FormatTabular)))
		if err != nil {
			return "", err
		}

		res, err := s.opts.Local.Search(ctx, local.SearchRequest{
			Program:   p,
			Query:     query,
			Database:  database,
			EValue:    req.GetFloat("evalue", local.DefaultEValue),
			MaxHits:   req.GetInt("max_hits", local.DefaultMaxHits),
			Format:    format,
			ExtraArgs: req.GetString("extra_args", ""),
		})
		if err != nil {
			return "", err
		}
		if res.Report != nil {
			return blast.FormatReport(res.Report) + "\n\n" + res.Raw, nil
		}
		return fmt.Sprintf("BLAST %s results (%s):\n\n%s", strings.ToUpper(string(p)), res.Format, res.Raw), nil
	}
}

func (s *Server) handleMakeDB(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	input, err := req.RequireString("input_file")
	if err != nil {
		return "", err
	}
	name, err := req.RequireString("database_name")
	if err != nil {
		return "", err
	}
	dbtype, err := req.RequireString("dbtype")
	if err != nil {
		return "", err
	}

	res, err := s.opts.Local.MakeDB(ctx, local.MakeDBRequest{
		Input:  input,
		Name:   name,
		DBType: blast.DBType(dbtype),
		Title:  req.GetString("title", ""),
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Database created successfully: %s\n", res.Path)
	fmt.Fprintf(&b, "Files: %s\n", strings.Join(res.Files, ", "))
	if out := strings.TrimSpace(res.Output); out != "" {
		b.WriteString("\n" + out)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Server) handleVersion(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	var b strings.Builder
	for _, tool := range local.Tools {
		v, err := s.opts.Local.Version(ctx, tool)
		if err != nil {
			fmt.Fprintf(&b, "%s: unavailable (%v)\n", tool, err)
			continue
		}
		status := "ok"
		if !v.Supported {
			status = "unsupported, need " + local.MinVersion
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", tool, v.Version, status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
