package blast

import (
	"fmt"
	"strconv"
	"strings"
)

const rule = "=================================================="

// FormatReport renders a report as the text returned by the search tools
func FormatReport(r *Report) string {
	program := strings.ToUpper(string(r.Program))
	if len(r.Hits) == 0 {
		return fmt.Sprintf("BLAST %s search completed - no significant hits found in the %s database", program, r.Database)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "BLAST %s Results (Database: %s)\n", program, r.Database)
	b.WriteString(rule + "\n")
	if r.QueryTitle != "" || r.QueryLength > 0 {
		fmt.Fprintf(&b, "Query: %s (%d residues)\n", orNA(r.QueryTitle), r.QueryLength)
	}
	if r.Truncated() {
		fmt.Fprintf(&b, "Showing %d of %d hits\n", len(r.Hits), r.TotalHits)
	}
	b.WriteString("\n")

	for i, h := range r.Hits {
		fmt.Fprintf(&b, "Hit %d:\n", i+1)
		fmt.Fprintf(&b, "  Subject: %s\n", h.Accession)
		if h.Title != "" {
			fmt.Fprintf(&b, "  Description: %s\n", h.Title)
		}
		fmt.Fprintf(&b, "  Identity: %s%%\n", strconv.FormatFloat(h.Identity, 'f', 2, 64))
		fmt.Fprintf(&b, "  E-value: %s\n", FormatEValue(h.EValue))
		fmt.Fprintf(&b, "  Bit score: %s\n", strconv.FormatFloat(h.BitScore, 'f', 1, 64))
		fmt.Fprintf(&b, "  Alignment length: %d\n\n", h.AlignLength)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FormatEValue prints e-values the way BLAST does: scientific notation for
// small values, plain decimals otherwise.
func FormatEValue(e float64) string {
	switch {
	case e == 0:
		return "0.0"
	case e < 0.001:
		return strconv.FormatFloat(e, 'e', 2, 64)
	default:
		return strconv.FormatFloat(e, 'g', 3, 64)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
