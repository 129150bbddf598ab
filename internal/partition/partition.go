// Package partition renames dat records to their allele names and groups them by locus.
package partition

import (
	"fmt"
	"strings"

	"imgtdb/internal/allele"
	"imgtdb/internal/dat"
	"imgtdb/internal/locus"
)

// NamePrefix is prepended to allele names when records are renamed.
const NamePrefix = "HLA-"

// RecordSource is a forward-only record stream such as *dat.Scanner.
type RecordSource interface {
	Scan() bool
	Record() dat.Record
	Err() error
}

// Buckets holds the records of each recognized locus in source order.
type Buckets map[locus.Locus][]dat.Record

// Len returns the total number of bucketed records.
func (b Buckets) Len() int {
	n := 0
	for _, recs := range b {
		n += len(recs)
	}
	return n
}

// Stats counts what happened to the records of one stream.
type Stats struct {
	Seen         int
	Kept         int
	Unmapped     int
	UnknownLocus int
}

// Partition drains src once. Records whose name is not in m, whose allele is
// not of the form "<locus>*<suffix>" with a single '*', or whose locus is
// outside the recognized set, are dropped without error.
// Kept records are renamed to "HLA-<allele>" and appended to their locus bucket.
// A stream error fails the whole partition.
func Partition(src RecordSource, m allele.Mapping) (Buckets, Stats, error) {
	buckets := make(Buckets)
	var st Stats
	for src.Scan() {
		rec := src.Record()
		st.Seen++
		name, ok := m.Lookup(rec.Name)
		if !ok {
			st.Unmapped++
			continue
		}
		code, suffix, ok := locus.SplitAllele(name)
		if !ok || strings.Contains(suffix, "*") {
			st.UnknownLocus++
			continue
		}
		l, ok := locus.Parse(code)
		if !ok {
			st.UnknownLocus++
			continue
		}
		rec.Name = NamePrefix + name
		buckets[l] = append(buckets[l], rec)
		st.Kept++
	}
	if err := src.Err(); err != nil {
		return nil, st, fmt.Errorf("partition records: %w", err)
	}
	return buckets, st, nil
}
