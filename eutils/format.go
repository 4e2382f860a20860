package eutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// summaryPreview is how much of a dataset summary FormatDatasets shows
const summaryPreview = 200

// FormatGene renders a gene record as indented JSON
func FormatGene(g *Gene) (string, error) {
	return marshalIndent(g, "gene")
}

// FormatGeneSequence renders a gene sequence with a short header, or as JSON
// when the request asked for it
func FormatGeneSequence(gs *GeneSequence) (string, error) {
	if gs.Format == FormatJSON {
		return marshalIndent(gs, "gene sequence")
	}

	g := gs.Gene
	var b strings.Builder
	fmt.Fprintf(&b, "Gene: %s (%s)\n", g.Symbol, g.Organism)
	fmt.Fprintf(&b, "Gene ID: %s\n", g.ID)
	if g.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", g.Description)
	}
	if g.Location != nil {
		fmt.Fprintf(&b, "Location: %s, %d bp\n", g.Location, g.Location.Length())
	}
	fmt.Fprintf(&b, "Sequence Type: %s\n", gs.Type)
	fmt.Fprintf(&b, "Output Format: %s\n\n", gs.Format)
	b.WriteString(gs.Sequence)
	return b.String(), nil
}

// FormatDatasets renders dataset search results for a tool response
func FormatDatasets(r *DatasetResults) string {
	q := r.Query
	if len(r.Datasets) == 0 {
		return fmt.Sprintf("No GEO datasets found for %q in %s.", q.Disease, q.Organism)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GEO datasets for %q in %s\n", q.Disease, q.Organism)
	if q.StudyType != "" {
		fmt.Fprintf(&b, "Study type: %s\n", q.StudyType)
	}
	fmt.Fprintf(&b, "Showing %d of %d\n", len(r.Datasets), r.Total)

	for i, d := range r.Datasets {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, d.Title)
		fmt.Fprintf(&b, "   Accession: %s\n", d.Accession)
		fmt.Fprintf(&b, "   Data kind: %s\n", d.Kind)
		if d.StudyType != "" {
			fmt.Fprintf(&b, "   Study type: %s\n", d.StudyType)
		}
		if len(d.Platforms) > 0 {
			fmt.Fprintf(&b, "   Platform: %s\n", strings.Join(d.Platforms, ", "))
		}
		fmt.Fprintf(&b, "   Samples: %d\n", d.Samples)
		if d.Summary != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", preview(d.Summary, summaryPreview))
		}
		fmt.Fprintf(&b, "   URL: %s\n", d.URL())
	}
	return strings.TrimRight(b.String(), "\n")
}

// marshalIndent encodes v without HTML escaping so FASTA headers keep their '>'
func marshalIndent(v any, what string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrapf(err, "failed to encode %s", what)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func preview(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
