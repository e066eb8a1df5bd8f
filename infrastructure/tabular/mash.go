package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ahrav/refclust/internal/domain"
)

// Mash table columns, in file order. Only the first three are required.
const (
	mashColQuery = iota
	mashColRef
	mashColDistance
	mashColPValue
	mashColMatches
)

var errNegativeDistance = errors.New("distance must be a finite non-negative number")

// maxLineSize bounds a single input line. Paths in Mash tables can be long
// but never approach this.
const maxLineSize = 1 << 20

// ReadMashFile opens path and parses it with ReadMashTable.
func ReadMashFile(path string) ([]domain.DistanceRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open distance table: %w", err)
	}
	defer func() { _ = fh.Close() }()

	return ReadMashTable(fh, path)
}

// ReadMashTable parses headerless `mash dist` output: query, reference,
// distance, p-value and shared hashes separated by tabs. Query and
// reference paths are reduced to sample names with domain.SampleName.
// Blank lines are skipped. Any malformed row aborts the whole read with a
// *domain.ParseError carrying path and 1-based line number.
func ReadMashTable(r io.Reader, path string) ([]domain.DistanceRecord, error) {
	var records []domain.DistanceRecord

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		f := strings.Split(line, "\t")
		if len(f) <= mashColDistance {
			return nil, domain.NewParseError(path, ln, "", line,
				fmt.Errorf("expected at least 3 tab-separated columns, got %d", len(f)))
		}

		rec := domain.DistanceRecord{
			SampleA: domain.SampleName(f[mashColQuery]),
			SampleB: domain.SampleName(f[mashColRef]),
			Row:     ln,
		}
		if rec.SampleA == "" || rec.SampleB == "" || rec.SampleA == "." || rec.SampleB == "." {
			return nil, domain.NewParseError(path, ln, "query", line, errors.New("empty sample path"))
		}

		d, err := parseDistance(f[mashColDistance])
		if err != nil {
			return nil, domain.NewParseError(path, ln, "distance", f[mashColDistance], err)
		}
		rec.Distance = d

		if len(f) > mashColPValue {
			raw := strings.TrimSpace(f[mashColPValue])
			p, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, domain.NewParseError(path, ln, "p-value", raw, err)
			}
			rec.PValue = p
		}
		if len(f) > mashColMatches {
			rec.Matches = strings.TrimSpace(f[mashColMatches])
		}

		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, domain.NewParseError(path, ln+1, "", "", err)
	}
	return records, nil
}

func parseDistance(raw string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, errNegativeDistance
	}
	return d, nil
}
