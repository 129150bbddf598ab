// Package release models IMGT/HLA database releases and decides which of
// them a run should process.
package release

import (
	"strings"
)

// Latest is the moving release pointer used when no release list can be discovered.
const Latest = "Latest"

// Release identifies one IMGT/HLA database snapshot, e.g. "3260" or "Latest".
type Release struct {
	ID string
}

// New returns the release with the given identifier.
func New(id string) Release { return Release{ID: id} }

func (r Release) String() string { return r.ID }

// IsLatest reports whether r is the moving Latest pointer rather than a numbered release.
func (r Release) IsLatest() bool { return r.ID == Latest }

// Description renders the dotted version, "3260" -> "3.26.0". Identifiers
// that are not purely numeric (or are too short to split) are returned as-is.
func (r Release) Description() string {
	id := r.ID
	if len(id) < 3 || !isDigits(id) {
		return id
	}
	return id[:1] + "." + id[1:len(id)-1] + "." + id[len(id)-1:]
}

// DatFile is the work-dir file name of the release's annotated-sequence artifact.
func (r Release) DatFile() string { return r.ID + ".hla.dat" }

// AlleleListFile is the work-dir file name of the release's accession mapping artifact.
func (r Release) AlleleListFile() string { return r.ID + ".Allelelist.txt" }

// CollectionName names the store collection holding locus records of this release.
func (r Release) CollectionName(locus string) string { return r.ID + "_" + locus }

// CollectionDescription is the human-readable description stored alongside a collection.
func (r Release) CollectionDescription(locus string) string {
	return "IMGT/HLA " + r.Description() + " " + locus
}

// ParseList splits an explicit comma separated release list. Entries are used
// verbatim; no shape validation is performed.
func ParseList(list string) []Release {
	parts := strings.Split(list, ",")
	out := make([]Release, 0, len(parts))
	for _, p := range parts {
		out = append(out, New(p))
	}
	return out
}

// IDs returns the identifiers of releases in order.
func IDs(releases []Release) []string {
	ids := make([]string, len(releases))
	for i, r := range releases {
		ids[i] = r.ID
	}
	return ids
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
