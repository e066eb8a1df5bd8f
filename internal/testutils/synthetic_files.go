package testutils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ahrav/refclust/internal/domain"
)

// File names used by SaveSyntheticDataset.
const (
	MashFileName     = "mash_distances.tsv"
	ResultsDirName   = "referenceseeker"
	MetadataFileName = "dataset.json"
)

// SyntheticLayout lists the files written for a dataset.
type SyntheticLayout struct {
	MashPath     string
	ResultsDir   string
	ResultFiles  []string
	MetadataPath string
}

// SaveSyntheticDataset writes ds under dir in the layout the real tools
// produce: a headerless Mash table, one ReferenceSeeker table per sample in
// its own directory, and a JSON file holding the expected answers.
func SaveSyntheticDataset(ds *SyntheticDataset, dir string) (*SyntheticLayout, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	layout := &SyntheticLayout{
		MashPath:     filepath.Join(dir, MashFileName),
		ResultsDir:   filepath.Join(dir, ResultsDirName),
		MetadataPath: filepath.Join(dir, MetadataFileName),
	}

	if err := writeLines(layout.MashPath, func(w *bufio.Writer) {
		for _, r := range ds.Distances {
			fmt.Fprintf(w, "%s.fasta\t%s.fasta\t%s\t%s\t%s\n",
				r.SampleA, r.SampleB, formatFloat(r.Distance), formatFloat(r.PValue), r.Matches)
		}
	}); err != nil {
		return nil, err
	}

	for _, sample := range ds.Samples {
		path := filepath.Join(layout.ResultsDir, sample, "referenceseeker_"+sample+".tab")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		rows := ds.Results[sample]
		if err := writeLines(path, func(w *bufio.Writer) {
			fmt.Fprintf(w, "ReferenceSeeker synthetic results for %s\n", sample)
			fmt.Fprintln(w, "#ID\tMash Distance\tANI\tCon. DNA\tTaxonomy ID\tAssembly Status\tOrganism")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t562\tcomplete\tEscherichia coli\n",
					r.CandidateID, formatFloat(r.MashDistance), formatFloat(r.ANI), formatFloat(r.ConservedDNA))
			}
		}); err != nil {
			return nil, err
		}
		layout.ResultFiles = append(layout.ResultFiles, path)
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(layout.MetadataPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write dataset file: %w", err)
	}

	return layout, nil
}

// LoadSyntheticDataset reads the metadata file written by
// SaveSyntheticDataset. Distances and results are not restored; read them
// with the tabular readers.
func LoadSyntheticDataset(path string) (*SyntheticDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var ds SyntheticDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	if ds.ExpectedBest == "" || len(ds.Groups) == 0 {
		return nil, fmt.Errorf("dataset %s has no expected answers", path)
	}
	return &ds, nil
}

func writeLines(path string, fill func(*bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	fill(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// DistanceRecordsFor returns the rows of ds restricted to samples.
func (ds *SyntheticDataset) DistanceRecordsFor(samples ...string) []domain.DistanceRecord {
	keep := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		keep[s] = struct{}{}
	}
	var out []domain.DistanceRecord
	for _, r := range ds.Distances {
		_, a := keep[r.SampleA]
		_, b := keep[r.SampleB]
		if a && b {
			out = append(out, r)
		}
	}
	return out
}
