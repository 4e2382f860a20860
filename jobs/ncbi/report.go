package ncbi

import (
	"bytes"
	"encoding/json"

	"github.com/bio-mcp/bio-mcp-blast/blast"
	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
)

// JSON2_S ("single file") result layout, trimmed to the fields used
type blastOutput2 struct {
	BlastOutput2 []struct {
		Report *jsonReport `json:"report"`
	} `json:"BlastOutput2"`
}

type jsonReport struct {
	Program      string `json:"program"`
	SearchTarget struct {
		DB string `json:"db"`
	} `json:"search_target"`
	Results struct {
		Search jsonSearch `json:"search"`
	} `json:"results"`
}

type jsonSearch struct {
	QueryID    string    `json:"query_id"`
	QueryTitle string    `json:"query_title"`
	QueryLen   int       `json:"query_len"`
	Hits       []jsonHit `json:"hits"`
	Message    string    `json:"message"`
}

type jsonHit struct {
	Num         int `json:"num"`
	Description []struct {
		ID        string `json:"id"`
		Accession string `json:"accession"`
		Title     string `json:"title"`
	} `json:"description"`
	Len  int       `json:"len"`
	Hsps []jsonHSP `json:"hsps"`
}

type jsonHSP struct {
	BitScore  float64 `json:"bit_score"`
	EValue    float64 `json:"evalue"`
	Identity  int     `json:"identity"`
	AlignLen  int     `json:"align_len"`
	Gaps      int     `json:"gaps"`
	QueryFrom int     `json:"query_from"`
	QueryTo   int     `json:"query_to"`
	HitFrom   int     `json:"hit_from"`
	HitTo     int     `json:"hit_to"`
}

// DecodeReport turns a JSON2_S payload into a report. Each hit is described
// by its best-scoring HSP. Payloads that are not JSON2_S are marked
// jobs.ErrMalformed.
func DecodeReport(data []byte) (*blast.Report, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.Mark(errors.New("result is not JSON (the RID may have expired)"), jobs.ErrMalformed)
	}
	var out blastOutput2
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode JSON2_S result"), jobs.ErrMalformed)
	}
	if len(out.BlastOutput2) == 0 || out.BlastOutput2[0].Report == nil {
		return nil, errors.Mark(errors.New("result has no BlastOutput2 report"), jobs.ErrMalformed)
	}

	r := out.BlastOutput2[0].Report
	s := r.Results.Search
	report := &blast.Report{
		Program:     blast.Program(r.Program),
		Database:    r.SearchTarget.DB,
		QueryID:     s.QueryID,
		QueryTitle:  s.QueryTitle,
		QueryLength: s.QueryLen,
	}
	for _, h := range s.Hits {
		if len(h.Description) == 0 || len(h.Hsps) == 0 {
			continue
		}
		best := h.Hsps[0]
		for _, hsp := range h.Hsps[1:] {
			if hsp.BitScore > best.BitScore {
				best = hsp
			}
		}
		d := h.Description[0]
		acc := d.Accession
		if acc == "" {
			acc = d.ID
		}
		hit := blast.Hit{
			Accession:    acc,
			Title:        d.Title,
			AlignLength:  best.AlignLen,
			Mismatches:   max(best.AlignLen-best.Identity-best.Gaps, 0),
			QueryStart:   best.QueryFrom,
			QueryEnd:     best.QueryTo,
			SubjectStart: best.HitFrom,
			SubjectEnd:   best.HitTo,
			EValue:       best.EValue,
			BitScore:     best.BitScore,
		}
		if best.AlignLen > 0 {
			hit.Identity = float64(best.Identity) / float64(best.AlignLen) * 100
		}
		report.Hits = append(report.Hits, hit)
	}
	report.TotalHits = len(report.Hits)
	return report, nil
}
