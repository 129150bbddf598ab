package allele

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeparatorFor(t *testing.T) {
	assert.Equal(t, ",", SeparatorFor("3260"))
	assert.Equal(t, ",", SeparatorFor("3270"))
	assert.Equal(t, " ", SeparatorFor("3280"))
	assert.Equal(t, " ", SeparatorFor("Latest"))
}

func TestParseSpaceSeparated(t *testing.T) {
	m, err := Parse(strings.NewReader("HLA00001 A*01:01:01:01\nHLA00002 B*07:02:01"), "Latest")
	require.NoError(t, err)
	assert.Equal(t, Mapping{"HLA00001": "A*01:01:01:01", "HLA00002": "B*07:02:01"}, m)
}

func TestParseLegacyCommaMatchesSpaceForm(t *testing.T) {
	legacy, err := Parse(strings.NewReader("HLA00001,A*01:01:01:01\n"), "3260")
	require.NoError(t, err)
	current, err := Parse(strings.NewReader("HLA00001 A*01:01:01:01\n"), "Latest")
	require.NoError(t, err)
	assert.Equal(t, current, legacy)
	assert.Len(t, legacy, 1)
}

func TestParseTrimsTrailingWhitespace(t *testing.T) {
	m, err := Parse(strings.NewReader("HLA00001 A*01:01:01:01\r\nHLA00002 B*07:02:01  \n"), "Latest")
	require.NoError(t, err)
	assert.Equal(t, "A*01:01:01:01", m["HLA00001"])
	assert.Equal(t, "B*07:02:01", m["HLA00002"])
}

func TestParseLastWriteWins(t *testing.T) {
	m, err := Parse(strings.NewReader("HLA00001 A*01:01\nHLA00001 A*01:02\n"), "Latest")
	require.NoError(t, err)
	assert.Equal(t, Mapping{"HLA00001": "A*01:02"}, m)
}

func TestParseMalformedLineIsFatal(t *testing.T) {
	cases := map[string]struct {
		content string
		release string
		line    string
	}{
		"no separator":        {"HLA00001 A*01:01\nHLA00002\n", "Latest", "line 2"},
		"too many fields":     {"HLA00001 A*01:01 extra\n", "Latest", "line 1"},
		"wrong legacy sep":    {"HLA00001 A*01:01\n", "3260", "line 1"},
		"comma in new format": {"HLA00001,A*01:01\n", "3300", "line 1"},
		"blank line":          {"HLA00001 A*01:01\n\nHLA00002 B*07:02\n", "Latest", "line 2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := Parse(strings.NewReader(tc.content), tc.release)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrMalformedLine))
			assert.Contains(t, err.Error(), tc.line)
		})
	}
}

func TestParseFileRoundTripsProperty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3270.Allelelist.txt")
	lines := []string{"HLA00001,A*01:01:01:01", "HLA00132,B*07:02:01", "HLA01234,DRB1*15:01:01:01", "HLA09999,MICA*001"}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

	m, err := ParseFile(path, "3270")
	require.NoError(t, err)
	for _, l := range lines {
		acc, name, _ := strings.Cut(l, ",")
		got, ok := m.Lookup(acc)
		require.True(t, ok, acc)
		assert.Equal(t, name, got)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"), "Latest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
