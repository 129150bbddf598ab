// Package locus holds the closed set of HLA loci the loader materializes.
package locus

import "strings"

// Locus is an HLA gene locus code such as "A" or "DRB1".
type Locus string

const (
	A    Locus = "A"
	B    Locus = "B"
	C    Locus = "C"
	DRB1 Locus = "DRB1"
	DQB1 Locus = "DQB1"
	DRB3 Locus = "DRB3"
	DRB4 Locus = "DRB4"
	DRB5 Locus = "DRB5"
	DQA1 Locus = "DQA1"
	DPA1 Locus = "DPA1"
	DPB1 Locus = "DPB1"
)

// ordered is the load order; collections are created in this sequence.
var ordered = []Locus{A, B, C, DRB1, DQB1, DRB3, DRB4, DRB5, DQA1, DPA1, DPB1}

var known = func() map[Locus]struct{} {
	m := make(map[Locus]struct{}, len(ordered))
	for _, l := range ordered {
		m[l] = struct{}{}
	}
	return m
}()

// All returns the recognized loci in load order.
func All() []Locus {
	out := make([]Locus, len(ordered))
	copy(out, ordered)
	return out
}

// Parse returns the locus for code and whether it is recognized.
// Matching is exact; "a" is not "A".
func Parse(code string) (Locus, bool) {
	l := Locus(code)
	_, ok := known[l]
	return l, ok
}

// SplitAllele splits an allele name "<locus>*<suffix>" on its first '*'.
// ok is false when the name carries no '*'.
func SplitAllele(name string) (code, suffix string, ok bool) {
	return strings.Cut(name, "*")
}

func (l Locus) String() string { return string(l) }
