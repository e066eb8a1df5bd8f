package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/ports"
)

// Default output file names.
const (
	ClustersFileName      = "clusters.yaml"
	ScoresFileName        = "scores_refseq_candidates.csv"
	BestReferenceFileName = "best_reference.txt"
)

// ScoresHeader is the header row of the candidate scores table.
var ScoresHeader = []string{ColumnID, "ANI_size", "ANI_mean", "Con. DNA_mean", "Mash Distance_mean"}

// EncodeClustersYAML writes the sample to cluster id mapping as a YAML
// mapping with keys in sorted order.
func EncodeClustersYAML(w io.Writer, assignment *domain.ClusterAssignment) error {
	samples := map[string]int{}
	if assignment != nil && assignment.Samples != nil {
		samples = assignment.Samples
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(samples); err != nil {
		return fmt.Errorf("encode clusters: %w", err)
	}
	return enc.Close()
}

// WriteClustersYAML atomically writes the assignment to path.
func WriteClustersYAML(path string, assignment *domain.ClusterAssignment) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return EncodeClustersYAML(w, assignment)
	})
}

// EncodeScoresCSV writes the ranked candidate table, best candidate first.
func EncodeScoresCSV(w io.Writer, ranking *domain.Ranking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoresHeader); err != nil {
		return err
	}
	if ranking != nil {
		for _, c := range ranking.Candidates {
			row := []string{
				c.CandidateID,
				strconv.Itoa(c.Count),
				formatFloat(c.ANIMean),
				formatFloat(c.ConservedDNAMean),
				formatFloat(c.MashDistanceMean),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScoresCSV atomically writes the ranked candidate table to path.
func WriteScoresCSV(path string, ranking *domain.Ranking) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return EncodeScoresCSV(w, ranking)
	})
}

// WriteBestReference atomically writes the winning candidate id followed
// by a newline.
func WriteBestReference(path, candidateID string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, candidateID+"\n")
		return err
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeFileAtomic writes to a temporary file in the destination directory
// and renames it over path, so readers never observe a partial file and a
// failed write leaves any previous file untouched.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.NewOutputError(path, "mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ports.NewOutputError(path, "create", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return ports.NewOutputError(path, "write", err)
	}
	if err := bw.Flush(); err != nil {
		return ports.NewOutputError(path, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		return ports.NewOutputError(path, "sync", err)
	}
	if err := tmp.Close(); err != nil {
		return ports.NewOutputError(path, "close", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return ports.NewOutputError(path, "chmod", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return ports.NewOutputError(path, "rename", err)
	}
	return nil
}
