package eutils

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// GEO DataSets search defaults
const (
	DefaultDatasetOrganism = "Homo sapiens"
	DefaultStudyType       = "Expression profiling by high throughput sequencing"
	DefaultMaxDatasets     = 10
	MaxDatasets            = 50
)

// DatasetOrganisms lists the organisms the dataset tool offers
var DatasetOrganisms = []string{"Homo sapiens", "Mus musculus", "Rattus norvegicus"}

// StudyTypes lists the GEO DataSet Type filters the dataset tool offers
var StudyTypes = []string{
	"Expression profiling by array",
	DefaultStudyType,
	"Genome binding/occupancy profiling by high throughput sequencing",
}

// DatasetQuery searches GEO DataSets (db=gds)
type DatasetQuery struct {
	Disease    string
	Organism   string
	StudyType  string // empty searches every type
	MaxResults int
}

func (q DatasetQuery) withDefaults() DatasetQuery {
	if strings.TrimSpace(q.Organism) == "" {
		q.Organism = DefaultDatasetOrganism
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxDatasets
	}
	return q
}

// Validate checks the query before any request is made
func (q DatasetQuery) Validate() error {
	if strings.TrimSpace(q.Disease) == "" {
		return errors.NewInvalidRequestError("a disease or condition is required, e.g. \"breast cancer\"")
	}
	if q.StudyType != "" && !slices.Contains(StudyTypes, q.StudyType) {
		return errors.NewInvalidRequestError("unknown study type %q (want one of %v)", q.StudyType, StudyTypes)
	}
	if q.MaxResults < 0 || q.MaxResults > MaxDatasets {
		return errors.NewInvalidRequestError("max_results must be between 1 and %d, got %d", MaxDatasets, q.MaxResults)
	}
	return nil
}

// Term builds the esearch term
func (q DatasetQuery) Term() string {
	parts := []string{strings.TrimSpace(q.Disease), fmt.Sprintf("%q[Organism]", q.Organism)}
	if q.StudyType != "" {
		parts = append(parts, fmt.Sprintf("%q[DataSet Type]", q.StudyType))
	}
	return strings.Join(parts, " AND ")
}

// DataKind classifies a dataset by the kind of transcriptomics it holds
type DataKind string

const (
	KindSingleCell DataKind = "Single-cell RNA-seq"
	KindSpatial    DataKind = "Spatial transcriptomics"
	KindBulk       DataKind = "Bulk"
)

var (
	singleCellMarkers = []string{
		"single cell", "single-cell", "scrnaseq", "scrna-seq", "scrna seq", "sc-rna",
		"snrna-seq", "single nucleus", "single-nucleus",
		"dropseq", "drop-seq", "10x genomics", "10x chromium",
	}
	spatialMarkers = []string{
		"spatial", "visium", "slide-seq", "slideseq", "merfish", "seqfish",
		"spatially resolved", "in situ sequencing",
	}
)

// ClassifyDataKind guesses the data kind from a dataset's title and summary.
// Single-cell markers win over spatial ones.
func ClassifyDataKind(title, summary string) DataKind {
	text := strings.ToLower(title + " " + summary)
	for _, m := range singleCellMarkers {
		if strings.Contains(text, m) {
			return KindSingleCell
		}
	}
	for _, m := range spatialMarkers {
		if strings.Contains(text, m) {
			return KindSpatial
		}
	}
	return KindBulk
}

// Dataset is one GEO DataSets record
type Dataset struct {
	ID        string   `json:"id"`
	Accession string   `json:"accession"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Organism  string   `json:"organism"`
	StudyType string   `json:"study_type"`
	Platforms []string `json:"platforms,omitempty"`
	Samples   int      `json:"samples"`
	Kind      DataKind `json:"kind"`
}

// URL is the GEO page for the dataset
func (d Dataset) URL() string {
	if strings.HasPrefix(d.Accession, "GDS") {
		return "https://www.ncbi.nlm.nih.gov/sites/GDSbrowser?acc=" + d.Accession
	}
	return "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi?acc=" + d.Accession
}

type gdsDoc struct {
	UID       string  `json:"uid"`
	Accession string  `json:"accession"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	GPL       string  `json:"gpl"`
	Taxon     string  `json:"taxon"`
	GDSType   string  `json:"gdstype"`
	Samples   flexInt `json:"n_samples"`
}

func (d gdsDoc) dataset() Dataset {
	ds := Dataset{
		ID:        d.UID,
		Accession: d.Accession,
		Title:     d.Title,
		Summary:   d.Summary,
		Organism:  d.Taxon,
		StudyType: d.GDSType,
		Samples:   int(d.Samples),
		Kind:      ClassifyDataKind(d.Title, d.Summary),
	}
	for _, p := range strings.Split(d.GPL, ";") {
		if p = strings.TrimSpace(p); p != "" {
			ds.Platforms = append(ds.Platforms, "GPL"+p)
		}
	}
	return ds
}

// DatasetResults is one page of GEO DataSets matches
type DatasetResults struct {
	Query    DatasetQuery
	Total    int
	Datasets []Dataset
}

// SearchDatasets finds GEO datasets for a disease in an organism
func (c *Client) SearchDatasets(ctx context.Context, q DatasetQuery) (*DatasetResults, error) {
	q = q.withDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	res, err := c.Search(ctx, "gds", q.Term(), q.MaxResults)
	if err != nil {
		return nil, err
	}
	out := &DatasetResults{Query: q, Total: res.Count}
	if len(res.IDs) == 0 {
		return out, nil
	}

	docs, err := summaries[gdsDoc](ctx, c, "gds", res.IDs)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out.Datasets = append(out.Datasets, d.dataset())
	}
	return out, nil
}
