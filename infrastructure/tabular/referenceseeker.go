package tabular

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/ahrav/refclust/internal/domain"
)

const (
	// DefaultResultPrefix is stripped from result file stems to obtain the
	// sample name.
	DefaultResultPrefix = "referenceseeker_"

	// DefaultResultSuffix is the extension result tables are discovered by.
	DefaultResultSuffix = ".tab"

	// HeaderSentinel marks the header row of a result table.
	HeaderSentinel = "#ID"

	// DefaultMaxConcurrency bounds parallel result table reads.
	DefaultMaxConcurrency = 4
)

// Result table columns consumed by the candidate aggregator.
const (
	ColumnID           = "#ID"
	ColumnANI          = "ANI"
	ColumnMashDistance = "Mash Distance"
	ColumnConservedDNA = "Con. DNA"
)

var errNonFinite = errors.New("value must be a finite number")

var requiredColumns = []string{ColumnID, ColumnANI, ColumnMashDistance, ColumnConservedDNA}

// ReadOptions controls ReadReferenceSeekerResults.
type ReadOptions struct {
	// MaxConcurrency bounds how many files are parsed at once. Values
	// below 1 fall back to DefaultMaxConcurrency.
	MaxConcurrency int

	// Prefix is removed from each file stem to form the sample name.
	// Empty means DefaultResultPrefix.
	Prefix string
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.MaxConcurrency < 1 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.Prefix == "" {
		o.Prefix = DefaultResultPrefix
	}
	return o
}

// ResultSampleName returns the sample a result table belongs to: the file
// stem with prefix removed.
func ResultSampleName(path, prefix string) string {
	return strings.TrimPrefix(domain.SampleName(path), prefix)
}

// ReadReferenceSeekerResults parses every table in paths and concatenates
// their rows. Tables are read concurrently; the returned records are
// ordered by sample name, then path, then row, independent of completion
// order. An empty path list yields a *domain.MissingResultError with no
// path. The first failing table cancels the remaining reads.
func ReadReferenceSeekerResults(ctx context.Context, paths []string, opts ReadOptions) ([]domain.CandidateRecord, error) {
	if len(paths) == 0 {
		return nil, domain.NewMissingResultError("", "no result tables supplied")
	}
	opts = opts.withDefaults()

	type fileResult struct {
		path    string
		sample  string
		records []domain.CandidateRecord
	}
	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample := ResultSampleName(p, opts.Prefix)
			recs, err := ReadReferenceSeekerFile(p, sample)
			if err != nil {
				return err
			}
			results[i] = fileResult{path: p, sample: sample, records: recs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b fileResult) int {
		if c := cmp.Compare(a.sample, b.sample); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	total := 0
	for _, r := range results {
		total += len(r.records)
	}
	out := make([]domain.CandidateRecord, 0, total)
	for _, r := range results {
		out = append(out, r.records...)
	}
	return out, nil
}

// ReadReferenceSeekerFile opens path and parses it as the result table of
// sample. A file that cannot be opened is reported as missing.
func ReadReferenceSeekerFile(path, sample string) ([]domain.CandidateRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		reason := "cannot open file"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "file does not exist"
		}
		return nil, domain.NewMissingResultError(path, fmt.Sprintf("%s: %v", reason, err))
	}
	defer func() { _ = fh.Close() }()

	return ReadReferenceSeekerTable(fh, path, sample)
}

// ReadReferenceSeekerTable parses one result table. Lines before the first
// line containing HeaderSentinel are skipped; that line is the header. The
// four required columns are located by name, exactly or else ignoring
// case. Data rows follow the header; blank lines are skipped. A table
// with a header but no rows yields no records and no error.
func ReadReferenceSeekerTable(r io.Reader, path, sample string) ([]domain.CandidateRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	ln := 0
	var header []string
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.Contains(line, HeaderSentinel) {
			header = strings.Split(line, "\t")
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, domain.NewMissingResultError(path, fmt.Sprintf("read failed: %v", err))
	}
	if header == nil {
		return nil, domain.NewMissingResultError(path, fmt.Sprintf("no header row containing %q", HeaderSentinel))
	}

	idx, err := locateColumns(header)
	if err != nil {
		return nil, domain.NewMissingResultError(path, err.Error())
	}
	width := slices.Max(idx[:]) + 1

	var records []domain.CandidateRecord
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < width {
			return nil, domain.NewParseError(path, ln, "", line,
				fmt.Errorf("expected at least %d columns, got %d", width, len(f)))
		}

		rec := domain.CandidateRecord{
			CandidateID: strings.TrimSpace(f[idx[0]]),
			Sample:      sample,
		}
		if rec.CandidateID == "" {
			return nil, domain.NewParseError(path, ln, ColumnID, f[idx[0]], errors.New("empty candidate id"))
		}
		for i, dst := range []*float64{&rec.ANI, &rec.MashDistance, &rec.ConservedDNA} {
			col := idx[i+1]
			raw := strings.TrimSpace(f[col])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, domain.NewParseError(path, ln, requiredColumns[i+1], raw, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.NewParseError(path, ln, requiredColumns[i+1], raw, errNonFinite)
			}
			*dst = v
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, domain.NewParseError(path, ln+1, "", "", err)
	}
	return records, nil
}

// locateColumns maps requiredColumns to header positions. The order of
// the result matches requiredColumns.
func locateColumns(header []string) ([4]int, error) {
	var idx [4]int
	// A Caser keeps state between calls and tables are read concurrently.
	folder := cases.Fold()
	trimmed := make([]string, len(header))
	for i, h := range header {
		trimmed[i] = strings.TrimSpace(h)
	}

	for i, want := range requiredColumns {
		pos := slices.Index(trimmed, want)
		if pos < 0 {
			pos = slices.IndexFunc(trimmed, func(h string) bool {
				return folder.String(h) == folder.String(want)
			})
		}
		if pos < 0 {
			if near := closestHeader(folder, want, trimmed); near != "" {
				return idx, fmt.Errorf("missing column %q (closest header %q)", want, near)
			}
			return idx, fmt.Errorf("missing column %q", want)
		}
		idx[i] = pos
	}
	return idx, nil
}

// closestHeader returns the header nearest to want by edit distance, or ""
// when nothing is reasonably close.
func closestHeader(folder cases.Caser, want string, header []string) string {
	best, bestDist := "", len(want)/2+1
	for _, h := range header {
		if h == "" {
			continue
		}
		if d := levenshtein.ComputeDistance(folder.String(want), folder.String(h)); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}

// FindReferenceSeekerResults walks dir and returns every file named
// prefix*DefaultResultSuffix, sorted. An empty prefix means
// DefaultResultPrefix.
func FindReferenceSeekerResults(dir, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = DefaultResultPrefix
	}
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, DefaultResultSuffix) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search result tables in %s: %w", dir, err)
	}
	slices.Sort(found)
	return found, nil
}
