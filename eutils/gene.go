package eutils

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// DefaultOrganism is used when a gene lookup names no organism
const DefaultOrganism = "human"

// MaxRegionLength caps a single genomic region fetch, in bases
const MaxRegionLength = 5_000_000

// Gene is the NCBI Gene summary of one record
type Gene struct {
	ID          string    `json:"gene_id"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description,omitempty"`
	Organism    string    `json:"organism,omitempty"`
	Chromosome  string    `json:"chromosome,omitempty"`
	MapLocation string    `json:"map_location,omitempty"`
	Aliases     string    `json:"aliases,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// Location is a region of an annotated sequence, 1-based and inclusive
type Location struct {
	Accession string `json:"accession"`
	Start     int    `json:"start"`
	Stop      int    `json:"stop"`
	Minus     bool   `json:"minus_strand,omitempty"`
}

func (l Location) String() string {
	s := fmt.Sprintf("%s:%d-%d", l.Accession, l.Start, l.Stop)
	if l.Minus {
		s += " (minus strand)"
	}
	return s
}

// Length is the region size in bases
func (l Location) Length() int {
	return l.Stop - l.Start + 1
}

// Validate checks the region can be fetched
func (l Location) Validate() error {
	if strings.TrimSpace(l.Accession) == "" {
		return errors.NewInvalidRequestError("a sequence accession is required, e.g. NC_000017.11")
	}
	if l.Start < 1 || l.Stop < 1 {
		return errors.NewInvalidRequestError("positions are 1-based, got %d-%d", l.Start, l.Stop)
	}
	if l.Stop < l.Start {
		return errors.NewInvalidRequestError("end %d is before start %d", l.Stop, l.Start)
	}
	if l.Length() > MaxRegionLength {
		return errors.NewInvalidRequestError("region of %d bases exceeds the %d base limit", l.Length(), MaxRegionLength)
	}
	return nil
}

type geneDoc struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Chromosome   string `json:"chromosome"`
	MapLocation  string `json:"maplocation"`
	OtherAliases string `json:"otheraliases"`
	Summary      string `json:"summary"`
	Organism     struct {
		ScientificName string `json:"scientificname"`
		CommonName     string `json:"commonname"`
	} `json:"organism"`
	GenomicInfo []struct {
		ChrAccVer string  `json:"chraccver"`
		ChrStart  flexInt `json:"chrstart"`
		ChrStop   flexInt `json:"chrstop"`
	} `json:"genomicinfo"`
}

// gene converts the esummary document. GenomicInfo positions are 0-based
// and run stop-to-start for genes on the minus strand.
func (d geneDoc) gene() Gene {
	g := Gene{
		ID:          d.UID,
		Symbol:      d.Name,
		Description: d.Description,
		Organism:    d.Organism.ScientificName,
		Chromosome:  d.Chromosome,
		MapLocation: d.MapLocation,
		Aliases:     d.OtherAliases,
		Summary:     d.Summary,
	}
	if len(d.GenomicInfo) > 0 && d.GenomicInfo[0].ChrAccVer != "" {
		gi := d.GenomicInfo[0]
		start, stop := int(gi.ChrStart), int(gi.ChrStop)
		loc := &Location{Accession: gi.ChrAccVer, Start: start + 1, Stop: stop + 1}
		if start > stop {
			loc.Start, loc.Stop, loc.Minus = stop+1, start+1, true
		}
		g.Location = loc
	}
	return g
}

// GeneSummaries returns the Gene records for ids in the order NCBI lists them
func (c *Client) GeneSummaries(ctx context.Context, ids []string) ([]Gene, error) {
	docs, err := summaries[geneDoc](ctx, c, "gene", ids)
	if err != nil {
		return nil, err
	}
	genes := make([]Gene, len(docs))
	for i, d := range docs {
		genes[i] = d.gene()
	}
	return genes, nil
}

// GeneTerm builds the esearch term for a gene symbol in an organism
func GeneTerm(symbol, organism string) string {
	return fmt.Sprintf("%s[Gene Name] AND %s[Organism] AND alive[prop]", quoteTerm(symbol), quoteTerm(organism))
}

func quoteTerm(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, " \t") {
		return `"` + strings.ReplaceAll(s, `"`, "") + `"`
	}
	return s
}

// LookupGene finds the current NCBI Gene record for symbol in organism
func (c *Client) LookupGene(ctx context.Context, symbol, organism string) (*Gene, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errors.NewInvalidRequestError("a gene symbol is required, e.g. TP53")
	}
	if strings.TrimSpace(organism) == "" {
		organism = DefaultOrganism
	}

	res, err := c.Search(ctx, "gene", GeneTerm(symbol, organism), 1)
	if err != nil {
		return nil, err
	}
	if len(res.IDs) == 0 {
		return nil, errors.WithHint(
			errors.NewNotFoundError("gene %q not found in %s", symbol, organism),
			"use the official gene symbol and an organism name such as human or \"Mus musculus\"")
	}

	genes, err := c.GeneSummaries(ctx, res.IDs[:1])
	if err != nil {
		return nil, err
	}
	if len(genes) == 0 {
		return nil, errors.NewNotFoundError("no summary for gene %s (%s)", res.IDs[0], symbol)
	}
	return &genes[0], nil
}

// SequenceType selects what part of a gene is returned
type SequenceType string

const (
	SequenceGenomic SequenceType = "genomic" // the gene region
	SequenceCDS     SequenceType = "cds"     // annotated coding sequences in the region
	SequenceProtein SequenceType = "protein" // their translations
)

// SequenceTypes lists the accepted sequence_type values
var SequenceTypes = []string{string(SequenceGenomic), string(SequenceCDS), string(SequenceProtein)}

// SequenceFormat is the output format of a sequence tool
type SequenceFormat string

const (
	FormatFASTA   SequenceFormat = "fasta"
	FormatGenBank SequenceFormat = "genbank"
	FormatJSON    SequenceFormat = "json"
)

// SequenceFormats lists the accepted output_format values
var SequenceFormats = []string{string(FormatFASTA), string(FormatGenBank), string(FormatJSON)}

// retType maps a sequence type and format onto an efetch rettype
func retType(t SequenceType, f SequenceFormat) (string, error) {
	if !slices.Contains(SequenceTypes, string(t)) {
		return "", errors.NewInvalidRequestError("unknown sequence type %q (want one of %v)", t, SequenceTypes)
	}
	if !slices.Contains(SequenceFormats, string(f)) {
		return "", errors.NewInvalidRequestError("unknown output format %q (want one of %v)", f, SequenceFormats)
	}
	if f == FormatGenBank {
		return "gb", nil
	}
	switch t {
	case SequenceCDS:
		return "fasta_cds_na", nil
	case SequenceProtein:
		return "fasta_cds_aa", nil
	}
	return "fasta", nil
}

// GeneSequenceRequest asks for a gene's sequence by symbol
type GeneSequenceRequest struct {
	Symbol   string
	Organism string
	Type     SequenceType
	Format   SequenceFormat
}

// GeneSequence is a gene record with the sequence fetched for it
type GeneSequence struct {
	Gene     *Gene          `json:"gene"`
	Type     SequenceType   `json:"sequence_type"`
	Format   SequenceFormat `json:"output_format"`
	Sequence string         `json:"sequence"`
}

// GeneSequence resolves a gene symbol to its genomic location and fetches
// the region
func (c *Client) GeneSequence(ctx context.Context, req GeneSequenceRequest) (*GeneSequence, error) {
	if req.Type == "" {
		req.Type = SequenceGenomic
	}
	if req.Format == "" {
		req.Format = FormatFASTA
	}
	rettype, err := retType(req.Type, req.Format)
	if err != nil {
		return nil, err
	}

	gene, err := c.LookupGene(ctx, req.Symbol, req.Organism)
	if err != nil {
		return nil, err
	}
	if gene.Location == nil {
		return nil, errors.NewNotFoundError("gene %s (%s) has no annotated genomic location", gene.Symbol, gene.ID)
	}

	seq, err := c.Fetch(ctx, FetchRequest{
		ID:      gene.Location.Accession,
		Start:   gene.Location.Start,
		Stop:    gene.Location.Stop,
		Minus:   gene.Location.Minus,
		RetType: rettype,
	})
	if err != nil {
		return nil, err
	}
	return &GeneSequence{Gene: gene, Type: req.Type, Format: req.Format, Sequence: seq}, nil
}

// Region fetches a region of a sequence record as FASTA or GenBank text
func (c *Client) Region(ctx context.Context, loc Location, format SequenceFormat) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	if format == "" {
		format = FormatFASTA
	}
	if format == FormatJSON {
		return "", errors.NewInvalidRequestError("region output format must be fasta or genbank")
	}
	rettype, err := retType(SequenceGenomic, format)
	if err != nil {
		return "", err
	}
	return c.Fetch(ctx, FetchRequest{
		ID:      strings.TrimSpace(loc.Accession),
		Start:   loc.Start,
		Stop:    loc.Stop,
		Minus:   loc.Minus,
		RetType: rettype,
	})
}
