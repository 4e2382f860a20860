package blast

import (
	"strings"
	"unicode"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// DefaultMinQueryLength is the shortest query, in residues, accepted for
// submission. Shorter queries produce no meaningful alignments.
const DefaultMinQueryLength = 10

// NormalizeQuery trims the query and adds a FASTA header when missing
func NormalizeQuery(query string) string {
	q := strings.TrimSpace(query)
	if q == "" || strings.HasPrefix(q, ">") {
		return q
	}
	return ">query\n" + q
}

// SequenceLength counts residues in a raw or FASTA query, ignoring header
// lines, whitespace and digits.
func SequenceLength(query string) int {
	n := 0
	for _, line := range strings.Split(query, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, ">") || strings.HasPrefix(line, ";") {
			continue
		}
		for _, r := range line {
			if unicode.IsLetter(r) || r == '*' || r == '-' {
				n++
			}
		}
	}
	return n
}

// ValidateQuery rejects empty queries and queries shorter than minLength
// residues. A minLength of zero or less uses DefaultMinQueryLength.
func ValidateQuery(query string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinQueryLength
	}
	if strings.TrimSpace(query) == "" {
		return errors.NewInvalidRequestError("query is empty")
	}
	if n := SequenceLength(query); n < minLength {
		return errors.WithHint(
			errors.NewInvalidRequestError("query has %d residues, need at least %d", n, minLength),
			"pass the full sequence, raw or FASTA")
	}
	return nil
}
