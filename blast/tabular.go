package blast

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// tabularColumns is the number of columns in TabularFields
const tabularColumns = 13

// TabularHeader is prepended to raw tabular output handed back to callers
const TabularHeader = "# Fields: query_id, subject_id, percent_identity, alignment_length, mismatches, gap_opens, q_start, q_end, s_start, s_end, evalue, bit_score, subject_title"

// ParseTabular parses BLAST+ -outfmt "6 <TabularFields>" output.
//
// Comment lines and rows with fewer than 13 columns are skipped; a row with
// the right shape but a non-numeric column is an error. At most limit hits
// are kept (zero or less keeps all) but TotalHits counts every row.
func ParseTabular(output string, limit int) ([]Hit, int, error) {
	var hits []Hit
	total := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < tabularColumns {
			continue
		}

		hit, err := parseTabularRow(fields)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "tabular line %d", lineNo)
		}
		total++
		if limit <= 0 || len(hits) < limit {
			hits = append(hits, hit)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to read tabular output")
	}
	return hits, total, nil
}

func parseTabularRow(f []string) (Hit, error) {
	var (
		hit Hit
		err error
	)
	hit.Accession = f[1]
	hit.Title = strings.Join(f[12:], "\t")

	floats := []struct {
		dst  *float64
		col  int
		name string
	}{
		{&hit.Identity, 2, "pident"},
		{&hit.EValue, 10, "evalue"},
		{&hit.BitScore, 11, "bitscore"},
	}
	for _, c := range floats {
		if *c.dst, err = strconv.ParseFloat(strings.TrimSpace(f[c.col]), 64); err != nil {
			return Hit{}, errors.Wrapf(err, "column %s", c.name)
		}
	}

	ints := []struct {
		dst  *int
		col  int
		name string
	}{
		{&hit.AlignLength, 3, "length"},
		{&hit.Mismatches, 4, "mismatch"},
		{&hit.GapOpens, 5, "gapopen"},
		{&hit.QueryStart, 6, "qstart"},
		{&hit.QueryEnd, 7, "qend"},
		{&hit.SubjectStart, 8, "sstart"},
		{&hit.SubjectEnd, 9, "send"},
	}
	for _, c := range ints {
		if *c.dst, err = strconv.Atoi(strings.TrimSpace(f[c.col])); err != nil {
			return Hit{}, errors.Wrapf(err, "column %s", c.name)
		}
	}
	return hit, nil
}
