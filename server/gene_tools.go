package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-blast/eutils"
)

func (s *Server) registerGeneTools() {
	geneName := mcp.WithString("gene_name",
		mcp.Required(),
		mcp.Description("Gene symbol or name, e.g. TP53 or BRCA1"),
	)
	organism := mcp.WithString("organism",
		mcp.Description("Organism name (default: human)"),
		mcp.DefaultString(eutils.DefaultOrganism),
	)

	s.addTool(mcp.NewTool("gene_to_genomic_sequence",
		mcp.WithDescription("Look up a gene by name and return its sequence from the reference genome"),
		geneName,
		organism,
		mcp.WithString("sequence_type",
			mcp.Enum(eutils.SequenceTypes...),
			mcp.Description("Sequence to retrieve: the genomic region, its annotated CDS, or their protein translations (default: genomic)"),
			mcp.DefaultString(string(eutils.SequenceGenomic)),
		),
		mcp.WithString("output_format",
			mcp.Enum(eutils.SequenceFormats...),
			mcp.Description("Output format (default: fasta)"),
			mcp.DefaultString(string(eutils.FormatFASTA)),
		),
	), s.handleGeneSequence)

	s.addTool(mcp.NewTool("search_gene_info",
		mcp.WithDescription("Search NCBI Gene and return the gene's ID, description, chromosome and genomic location"),
		geneName,
		organism,
	), s.handleGeneInfo)

	s.addTool(mcp.NewTool("get_genomic_sequence",
		mcp.WithDescription("Fetch a region of a nucleotide sequence by accession and 1-based coordinates"),
		mcp.WithString("chromosome",
			mcp.Required(),
			mcp.Description("Sequence accession, e.g. NC_000017.11"),
		),
		mcp.WithNumber("start",
			mcp.Required(),
			mcp.Min(1),
			mcp.Description("Start position, 1-based"),
		),
		mcp.WithNumber("end",
			mcp.Required(),
			mcp.Min(1),
			mcp.Description("End position, inclusive"),
		),
		mcp.WithString("output_format",
			mcp.Enum(string(eutils.FormatFASTA), string(eutils.FormatGenBank)),
			mcp.Description("Output format (default: fasta)"),
			mcp.DefaultString(string(eutils.FormatFASTA)),
		),
	), s.handleGenomicSequence)

	s.addTool(mcp.NewTool("search_geo_datasets",
		mcp.WithDescription("Search GEO DataSets for expression studies of a disease and classify them as single-cell, spatial or bulk"),
		mcp.WithString("disease",
			mcp.Required(),
			mcp.Description("Disease or condition, e.g. cancer, diabetes, Alzheimer"),
		),
		mcp.WithString("organism",
			mcp.Enum(eutils.DatasetOrganisms...),
			mcp.Description("Organism (default: Homo sapiens)"),
			mcp.DefaultString(eutils.DefaultDatasetOrganism),
		),
		mcp.WithString("study_type",
			mcp.Enum(eutils.StudyTypes...),
			mcp.Description("GEO DataSet type (default: "+eutils.DefaultStudyType+")"),
			mcp.DefaultString(eutils.DefaultStudyType),
		),
		mcp.WithNumber("max_results",
			mcp.Min(1),
			mcp.Max(eutils.MaxDatasets),
			mcp.Description(fmt.Sprintf("Maximum number of datasets to return (default: %d)", eutils.DefaultMaxDatasets)),
			mcp.DefaultNumber(eutils.DefaultMaxDatasets),
		),
	), s.handleGEODatasets)
}

func (s *Server) handleGeneSequence(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("gene_name")
	if err != nil {
		return "", err
	}
	gs, err := s.opts.EUtils.GeneSequence(ctx, eutils.GeneSequenceRequest{
		Symbol:   name,
		Organism: req.GetString("organism", eutils.DefaultOrganism),
		Type:     eutils.SequenceType(req.GetString("sequence_type", string(eutils.SequenceGenomic))),
		Format:   eutils.SequenceFormat(req.GetString("output_format", string(eutils.FormatFASTA))),
	})
	if err != nil {
		return "", err
	}
	return eutils.FormatGeneSequence(gs)
}

func (s *Server) handleGeneInfo(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("gene_name")
	if err != nil {
		return "", err
	}
	gene, err := s.opts.EUtils.LookupGene(ctx, name, req.GetString("organism", eutils.DefaultOrganism))
	if err != nil {
		return "", err
	}
	return eutils.FormatGene(gene)
}

func (s *Server) handleGenomicSequence(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	accession, err := req.RequireString("chromosome")
	if err != nil {
		return "", err
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return "", err
	}
	end, err := req.RequireInt("end")
	if err != nil {
		return "", err
	}
	return s.opts.EUtils.Region(ctx,
		eutils.Location{Accession: accession, Start: start, Stop: end},
		eutils.SequenceFormat(req.GetString("output_format", string(eutils.FormatFASTA))))
}

func (s *Server) handleGEODatasets(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	disease, err := req.RequireString("disease")
	if err != nil {
		return "", err
	}
	res, err := s.opts.EUtils.SearchDatasets(ctx, eutils.DatasetQuery{
		Disease:    disease,
		Organism:   req.GetString("organism", eutils.DefaultDatasetOrganism),
		StudyType:  req.GetString("study_type", eutils.DefaultStudyType),
		MaxResults: req.GetInt("max_results", eutils.DefaultMaxDatasets),
	})
	if err != nil {
		return "", err
	}
	return eutils.FormatDatasets(res), nil
}
