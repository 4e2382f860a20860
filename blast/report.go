package blast

// Hit is one subject sequence matched by a search, described by its best
// scoring alignment.
type Hit struct {
	Accession    string  `json:"accession"`
	Title        string  `json:"title,omitempty"`
	Identity     float64 `json:"identity"` // percent identity over the alignment
	AlignLength  int     `json:"align_length"`
	Mismatches   int     `json:"mismatches,omitempty"`
	GapOpens     int     `json:"gap_opens,omitempty"`
	QueryStart   int     `json:"query_start,omitempty"`
	QueryEnd     int     `json:"query_end,omitempty"`
	SubjectStart int     `json:"subject_start,omitempty"`
	SubjectEnd   int     `json:"subject_end,omitempty"`
	EValue       float64 `json:"evalue"`
	BitScore     float64 `json:"bit_score"`
}

// Report is the parsed outcome of one search
type Report struct {
	Program     Program `json:"program"`
	Database    string  `json:"database"`
	QueryID     string  `json:"query_id,omitempty"`
	QueryTitle  string  `json:"query_title,omitempty"`
	QueryLength int     `json:"query_len,omitempty"`
	Hits        []Hit   `json:"hits"`
	// TotalHits is the number of hits the search produced before capping
	TotalHits int `json:"total_hits"`
}

// Truncated reports whether hits were dropped by a result limit
func (r *Report) Truncated() bool {
	return r.TotalHits > len(r.Hits)
}

// Cap keeps at most limit hits. A limit of zero or less keeps everything.
func (r *Report) Cap(limit int) {
	if r.TotalHits < len(r.Hits) {
		r.TotalHits = len(r.Hits)
	}
	if limit > 0 && len(r.Hits) > limit {
		r.Hits = r.Hits[:limit]
	}
}

// BestHit returns the hit with the lowest e-value, or nil for an empty report
func (r *Report) BestHit() *Hit {
	var best *Hit
	for i := range r.Hits {
		if best == nil || r.Hits[i].EValue < best.EValue {
			best = &r.Hits[i]
		}
	}
	return best
}
