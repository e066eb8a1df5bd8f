package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/refclust/internal/testutils"
)

func main() {
	defaults := testutils.DefaultSyntheticConfig()
	var (
		outputDir  = flag.String("out", "testdata/synthetic", "Output directory")
		samples    = flag.Int("samples", defaults.Samples, "Number of samples to generate")
		groups     = flag.Int("groups", defaults.Groups, "Number of planted clusters")
		candidates = flag.Int("candidates", defaults.Candidates, "Number of reference candidates")
		threshold  = flag.Float64("threshold", defaults.Threshold, "Clustering threshold the groups are built for")
		extraEdges = flag.Float64("extra-edges", defaults.ExtraEdgeRate, "Probability of extra within-group edges")
		seed       = flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	cfg := testutils.SyntheticConfig{
		Samples:       *samples,
		Groups:        *groups,
		Candidates:    *candidates,
		Threshold:     *threshold,
		ExtraEdgeRate: *extraEdges,
	}
	dataset, err := testutils.GenerateSyntheticDataset(cfg, *seed)
	if err != nil {
		log.Fatalf("Failed to generate dataset: %v", err)
	}

	layout, err := testutils.SaveSyntheticDataset(dataset, *outputDir)
	if err != nil {
		log.Fatalf("Failed to save dataset: %v", err)
	}

	fmt.Printf("Generated synthetic dataset:\n")
	fmt.Printf("- Seed: %d\n", *seed)
	fmt.Printf("- Distance table: %s (%d rows)\n", layout.MashPath, len(dataset.Distances))
	fmt.Printf("- Result tables: %d under %s\n", len(layout.ResultFiles), layout.ResultsDir)
	fmt.Printf("- Planted clusters: %d\n", len(dataset.Groups))
	fmt.Printf("- Expected best reference: %s\n", dataset.ExpectedBest)
	fmt.Printf("\nDataset saved successfully!\n")

	readmePath := filepath.Join(*outputDir, "README.md")
	readme := `# Synthetic Dataset

Generated by cmd/generate_synthetic_dataset. NOT REAL GENOMIC DATA.

- mash_distances.tsv: headerless Mash distance table
- referenceseeker/<sample>/referenceseeker_<sample>.tab: one result table per sample
- dataset.json: the planted clusters and the expected best reference

Reproduce the expected answers with:

    refclust cluster -i mash_distances.tsv -o clusters.yaml -t <threshold>
    refclust best-ref --input-dir referenceseeker -o out
`
	if err := os.WriteFile(readmePath, []byte(readme), 0o600); err != nil {
		log.Printf("Warning: Failed to create README: %v", err)
	}
}
