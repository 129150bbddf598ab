// Package dat reads the IMGT/HLA annotated-sequence flat file (hla.dat), an
// EMBL-style format of two-letter line tags with records ended by "//".
package dat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed is returned when the flat file cannot be split into records.
var ErrMalformed = errors.New("malformed dat file")

// Record is one entry of the flat file.
type Record struct {
	// Name is the entry name from the ID line (the IMGT accession, e.g. "HLA00001").
	// Loaders overwrite it with the resolved allele name.
	Name        string
	Accession   string
	Version     int
	Description string
	Molecule    string
	Length      int
	Keywords    []string
	Sequence    string
}

// Scanner yields records one at a time. Like bufio.Scanner it is forward-only
// and cannot be rewound; iteration stops at EOF or at the first error.
type Scanner struct {
	sc   *bufio.Scanner
	line int
	rec  Record
	err  error
	done bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	const maxLine = 4 * 1024 * 1024
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &Scanner{sc: sc}
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the first non-EOF error encountered.
func (s *Scanner) Err() error { return s.err }

// Scan advances to the next record.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.done {
		return false
	}
	var (
		rec      Record
		inRecord bool
		inSeq    bool
		seq      strings.Builder
		desc     []string
	)
	for s.sc.Scan() {
		s.line++
		line := s.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			if !inRecord {
				return s.fail("record terminator without ID line")
			}
			rec.Sequence = seq.String()
			rec.Description = strings.TrimSuffix(strings.Join(desc, " "), ".")
			if rec.Length > 0 && rec.Length != len(rec.Sequence) {
				return s.fail(fmt.Sprintf("%s: expected sequence length %d, found %d", rec.Name, rec.Length, len(rec.Sequence)))
			}
			if rec.Accession == "" {
				rec.Accession = rec.Name
			}
			s.rec = rec
			return true
		}
		tag, rest := splitTag(line)
		if !inRecord {
			if tag != "ID" {
				return s.fail(fmt.Sprintf("expected ID line, got %q", tag))
			}
			if err := parseID(rest, &rec); err != nil {
				return s.fail(err.Error())
			}
			inRecord = true
			continue
		}
		if inSeq {
			if tag == "ID" {
				return s.fail(fmt.Sprintf("%s: ID line before record terminator", rec.Name))
			}
			appendBases(&seq, line)
			continue
		}
		switch tag {
		case "ID":
			return s.fail(fmt.Sprintf("%s: ID line before record terminator", rec.Name))
		case "AC":
			if rec.Accession == "" {
				rec.Accession = firstToken(rest)
			}
		case "SV":
			if _, v, ok := strings.Cut(strings.TrimSpace(rest), "."); ok {
				if n, err := strconv.Atoi(v); err == nil {
					rec.Version = n
				}
			}
		case "DE":
			desc = append(desc, strings.TrimSpace(rest))
		case "KW":
			for _, kw := range strings.Split(rest, ";") {
				kw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(kw), "."))
				if kw != "" {
					rec.Keywords = append(rec.Keywords, kw)
				}
			}
		case "SQ":
			inSeq = true
		}
	}
	if err := s.sc.Err(); err != nil {
		s.err = fmt.Errorf("read dat: %w", err)
		return false
	}
	if inRecord {
		return s.fail(fmt.Sprintf("%s: unexpected end of file inside record", rec.Name))
	}
	s.done = true
	return false
}

func (s *Scanner) fail(msg string) bool {
	s.err = fmt.Errorf("%w: line %d: %s", ErrMalformed, s.line, msg)
	return false
}

// splitTag returns the two-letter line code and the payload starting at column 6.
func splitTag(line string) (string, string) {
	if len(line) < 2 {
		return strings.TrimSpace(line), ""
	}
	tag := strings.TrimSpace(line[:2])
	if len(line) <= 5 {
		return tag, ""
	}
	return tag, line[5:]
}

// parseID handles both "HLA00001; SV 1; standard; DNA; HUM; 3503 BP." and the
// older "HLA00001   standard; DNA; HUM; 3503 BP." layouts.
func parseID(rest string, rec *Record) error {
	name := firstToken(rest)
	if name == "" {
		return fmt.Errorf("empty ID line")
	}
	rec.Name = name
	for _, field := range strings.Split(rest, ";") {
		field = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(field), "."))
		switch {
		case strings.HasPrefix(field, "SV "):
			if n, err := strconv.Atoi(strings.TrimSpace(field[3:])); err == nil {
				rec.Version = n
			}
		case strings.HasSuffix(field, " BP"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(field, " BP")))
			if err != nil {
				return fmt.Errorf("%s: bad length %q", name, field)
			}
			rec.Length = n
		case strings.Contains(field, "DNA") || strings.Contains(field, "RNA"):
			rec.Molecule = lastToken(field)
		}
	}
	return nil
}

func firstToken(s string) string {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ' ' || r == '\t' })
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func lastToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}

// appendBases keeps sequence letters and drops the spacing and position numbers.
func appendBases(b *strings.Builder, line string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z' || c == '*' || c == '-':
			b.WriteByte(c)
		}
	}
}

// Open opens the flat file at path and returns a scanner over it along with
// the file to close when done.
func Open(path string) (*Scanner, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dat: %w", err)
	}
	return NewScanner(f), f, nil
}
