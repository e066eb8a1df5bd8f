package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/refclust/internal/domain"
)

func TestReadMashTable(t *testing.T) {
	input := strings.Join([]string{
		"/data/A.fasta\t/data/A.fasta\t0\t0\t1000/1000",
		"/data/A.fasta\truns/B.fa\t0.005\t1.2e-300\t950/1000",
		"",
		"B.fa\tC.fasta\t0.02\t0.0001\t700/1000",
		"C.fasta\tD.fasta\t0.3",
	}, "\n")

	got, err := ReadMashTable(strings.NewReader(input), "mash.tsv")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.True(t, got[0].SelfPair())
	assert.Equal(t, domain.DistanceRecord{
		SampleA: "A", SampleB: "B", Distance: 0.005, PValue: 1.2e-300, Matches: "950/1000", Row: 2,
	}, got[1])
	assert.Equal(t, 4, got[2].Row, "blank lines still count towards row numbers")
	assert.Equal(t, 0.3, got[3].Distance)
	assert.Empty(t, got[3].Matches)
}

func TestReadMashTable_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRow   int
		wantField string
	}{
		{name: "non numeric distance", input: "A\tB\tabc\t0\t1/1", wantRow: 1, wantField: "distance"},
		{name: "negative distance", input: "A\tB\t0.1\nA\tC\t-0.1", wantRow: 2, wantField: "distance"},
		{name: "NaN distance", input: "A\tB\tNaN", wantRow: 1, wantField: "distance"},
		{name: "too few columns", input: "A\tB\t0.1\nA B 0.1", wantRow: 2, wantField: ""},
		{name: "bad p-value", input: "A\tB\t0.1\tnope", wantRow: 1, wantField: "p-value"},
		{name: "empty sample", input: "\tB\t0.1", wantRow: 1, wantField: "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMashTable(strings.NewReader(tt.input), "mash.tsv")
			assert.Nil(t, got, "no partial result on error")

			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "mash.tsv", pe.Path)
			assert.Equal(t, tt.wantRow, pe.Row)
			assert.Equal(t, tt.wantField, pe.Field)
			assert.ErrorIs(t, err, domain.ErrMalformedRow)
		})
	}
}

func TestReadMashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mash.tsv")
	require.NoError(t, os.WriteFile(path, []byte("A.fa\tB.fa\t0.001\t0\t990/1000\n"), 0o644))

	got, err := ReadMashFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].SampleA)

	_, err = ReadMashFile(filepath.Join(dir, "absent.tsv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadMashTable_EndToEndClusters(t *testing.T) {
	input := "A.fa\tB.fa\t0.005\nB.fa\tC.fa\t0.02\n"
	records, err := ReadMashTable(strings.NewReader(input), "")
	require.NoError(t, err)

	got := domain.ExtractClusters(domain.BuildSimilarityGraph(records).Filter(0.01))
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 2}, got.Samples)
}
