package dat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRecords = `ID   HLA00001; SV 1; standard; DNA; HUM; 24 BP.
XX
AC   HLA00001;
XX
DE   HLA-A*01:01:01:01, Human MHC Class I sequence
XX
KW   HLA; HLA-A; Class I; Full; Allele; Genomic;
XX
FT   source          1..24
FT                   /organism="Homo sapiens"
XX
SQ   Sequence 24 BP; 6 A; 6 C; 6 G; 6 T; 0 other;
     acgtacgtac gtacgtacgt                                              20
     acgt                                                               24
//
ID   HLA00132   standard; DNA; HUM; 8 BP.
XX
AC   HLA00132;
SV   HLA00132.2
DE   HLA-B*07:02:01,
DE   Human MHC Class I sequence
SQ   Sequence 8 BP;
     ggccttaa                                                            8
//
`

func TestScannerReadsRecords(t *testing.T) {
	sc := NewScanner(strings.NewReader(twoRecords))

	require.True(t, sc.Scan())
	first := sc.Record()
	assert.Equal(t, "HLA00001", first.Name)
	assert.Equal(t, "HLA00001", first.Accession)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "DNA", first.Molecule)
	assert.Equal(t, 24, first.Length)
	assert.Equal(t, "HLA-A*01:01:01:01, Human MHC Class I sequence", first.Description)
	assert.Equal(t, []string{"HLA", "HLA-A", "Class I", "Full", "Allele", "Genomic"}, first.Keywords)
	assert.Equal(t, "ACGTACGTACGTACGTACGTACGT", first.Sequence)

	require.True(t, sc.Scan())
	second := sc.Record()
	assert.Equal(t, "HLA00132", second.Name)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "HLA-B*07:02:01, Human MHC Class I sequence", second.Description)
	assert.Equal(t, "GGCCTTAA", second.Sequence)

	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
	assert.False(t, sc.Scan(), "scanner is forward-only")
}

func TestScannerEmptyInput(t *testing.T) {
	sc := NewScanner(strings.NewReader("\n\n"))
	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestScannerMalformed(t *testing.T) {
	cases := map[string]string{
		"content before ID":     "XX\nID   HLA00001; 4 BP.\nSQ\n     acgt\n//\n",
		"missing terminator":    "ID   HLA00001; 4 BP.\nSQ   Sequence 4 BP;\n     acgt\n",
		"length mismatch":       "ID   HLA00001; 5 BP.\nSQ   Sequence 5 BP;\n     acgt\n//\n",
		"nested ID":             "ID   HLA00001; 4 BP.\nID   HLA00002; 4 BP.\n//\n",
		"terminator without ID": "//\n",
		"bad length":            "ID   HLA00001; lots BP.\n//\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			sc := NewScanner(strings.NewReader(input))
			for sc.Scan() {
			}
			require.Error(t, sc.Err())
			assert.True(t, errors.Is(sc.Err(), ErrMalformed), sc.Err().Error())
		})
	}
}

func TestScannerStopsAtFirstError(t *testing.T) {
	input := twoRecords + "garbage\n" + twoRecords
	sc := NewScanner(strings.NewReader(input))
	n := 0
	for sc.Scan() {
		n++
	}
	assert.Equal(t, 2, n)
	require.ErrorIs(t, sc.Err(), ErrMalformed)
	assert.Contains(t, sc.Err().Error(), "line 25")
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3260.hla.dat")
	require.NoError(t, os.WriteFile(path, []byte(twoRecords), 0o600))

	sc, closer, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()
	n := 0
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 2, n)

	_, _, err = Open(filepath.Join(t.TempDir(), "missing.dat"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
