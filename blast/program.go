// Package blast holds the vocabulary shared by the local runner, the remote
// job transports and the MCP tool surface: programs, output formats, query
// normalization, hit records and their text rendering.
package blast

import (
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// Program identifies one of the BLAST search programs
type Program string

const (
	ProgramBlastn  Program = "blastn"  // nucleotide query vs nucleotide database
	ProgramBlastp  Program = "blastp"  // protein query vs protein database
	ProgramBlastx  Program = "blastx"  // translated nucleotide query vs protein database
	ProgramTblastn Program = "tblastn" // protein query vs translated nucleotide database
)

// Programs lists every supported program in display order
var Programs = []Program{ProgramBlastn, ProgramBlastp, ProgramBlastx, ProgramTblastn}

// ParseProgram accepts a program name in any case
func ParseProgram(s string) (Program, error) {
	p := Program(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.NewInvalidRequestError("unknown BLAST program %q (want one of %s)", s, ProgramNames())
	}
	return p, nil
}

// Valid reports whether p is a supported program
func (p Program) Valid() bool {
	switch p {
	case ProgramBlastn, ProgramBlastp, ProgramBlastx, ProgramTblastn:
		return true
	}
	return false
}

// QueryIsProtein reports whether the program expects a protein query
func (p Program) QueryIsProtein() bool {
	return p == ProgramBlastp || p == ProgramTblastn
}

// TargetDBType is the database type the program searches against
func (p Program) TargetDBType() DBType {
	if p == ProgramBlastn || p == ProgramTblastn {
		return DBTypeNucleotide
	}
	return DBTypeProtein
}

// DefaultDatabase is the NCBI database used when the caller names none
func (p Program) DefaultDatabase() string {
	if p.TargetDBType() == DBTypeNucleotide {
		return "nt"
	}
	return "nr"
}

// ProgramNames joins the supported program names for messages
func ProgramNames() string {
	names := make([]string, len(Programs))
	for i, p := range Programs {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// DBType is the makeblastdb -dbtype value
type DBType string

const (
	DBTypeNucleotide DBType = "nucl"
	DBTypeProtein    DBType = "prot"
)

// ParseDBType validates a makeblastdb database type
func ParseDBType(s string) (DBType, error) {
	switch DBType(s) {
	case DBTypeNucleotide, DBTypeProtein:
		return DBType(s), nil
	}
	return "", errors.NewInvalidRequestError("dbtype must be %q or %q, got %q", DBTypeNucleotide, DBTypeProtein, s)
}

// OutputFormat is the user-facing name of a BLAST+ -outfmt
type OutputFormat string

const (
	FormatTabular  OutputFormat = "tabular"
	FormatXML      OutputFormat = "xml"
	FormatJSON     OutputFormat = "json"
	FormatPairwise OutputFormat = "pairwise"
)

// OutputFormats lists the accepted output format names
var OutputFormats = []string{string(FormatTabular), string(FormatXML), string(FormatJSON), string(FormatPairwise)}

// TabularFields is the column list requested for tabular output
const TabularFields = "qaccver saccver pident length mismatch gapopen qstart qend sstart send evalue bitscore stitle"

// ParseOutputFormat validates a format name, empty means tabular
func ParseOutputFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatTabular, nil
	}
	switch OutputFormat(s) {
	case FormatTabular, FormatXML, FormatJSON, FormatPairwise:
		return OutputFormat(s), nil
	}
	return "", errors.NewInvalidRequestError("output_format must be one of %s, got %q", strings.Join(OutputFormats, ", "), s)
}

// Outfmt returns the -outfmt argument for BLAST+
func (f OutputFormat) Outfmt() string {
	switch f {
	case FormatXML:
		return "5"
	case FormatJSON:
		return "15"
	case FormatPairwise:
		return "0"
	default:
		return "6 " + TabularFields
	}
}
