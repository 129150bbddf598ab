// Package allele parses IMGT/HLA allele list files into an accession to
// allele-name lookup.
package allele

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// DefaultSeparator splits accession and name in current allele list files.
const DefaultSeparator = " "

// ErrMalformedLine is returned when a mapping line does not split into exactly two fields.
var ErrMalformedLine = errors.New("malformed allele list line")

// legacySeparators lists releases whose allele list uses a different field separator.
var legacySeparators = map[string]string{
	"3260": ",",
	"3270": ",",
}

// Mapping maps an accession (e.g. "HLA00001") to its allele name (e.g. "A*01:01:01:01").
type Mapping map[string]string

// SeparatorFor returns the field separator used by the allele list of releaseID.
func SeparatorFor(releaseID string) string {
	if sep, ok := legacySeparators[releaseID]; ok {
		return sep
	}
	return DefaultSeparator
}

// Parse reads an allele list. Each line, after trailing whitespace is trimmed,
// must split on the release separator into exactly two fields; any other line
// fails the whole parse. A repeated accession keeps the last name seen.
func Parse(r io.Reader, releaseID string) (Mapping, error) {
	sep := SeparatorFor(releaseID)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	m := make(Mapping)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRightFunc(sc.Text(), unicode.IsSpace)
		fields := strings.Split(line, sep)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: want 2 fields separated by %q, got %d", ErrMalformedLine, n, sep, len(fields))
		}
		m[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read allele list: %w", err)
	}
	return m, nil
}

// ParseFile parses the allele list stored at path.
func ParseFile(path, releaseID string) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allele list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, releaseID)
}

// Lookup returns the allele name for accession.
func (m Mapping) Lookup(accession string) (string, bool) {
	name, ok := m[accession]
	return name, ok
}
