// Package loader writes the locus buckets of a release into the sequence
// store, one collection per non-empty locus.
package loader

import (
	"context"
	"fmt"

	"imgtdb/internal/dat"
	"imgtdb/internal/locus"
	"imgtdb/internal/logging"
	"imgtdb/internal/partition"
	"imgtdb/internal/release"
)

// Store is the part of the sequence store the loader needs. *seqdb.Server satisfies it.
type Store interface {
	LoadCollection(ctx context.Context, name, description string, records []dat.Record) (int, error)
}

// Collection reports one loaded collection.
type Collection struct {
	Locus  locus.Locus
	Name   string
	Loaded int
}

// Report lists the collections loaded for a release in load order.
type Report struct {
	Release     release.Release
	Collections []Collection
}

// Total returns the number of records loaded across collections.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Loaded
	}
	return n
}

// Loader loads buckets into a Store.
type Loader struct {
	Store Store
	Log   *logging.Logger
}

// New returns a loader writing to store.
func New(store Store, log *logging.Logger) *Loader {
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{Store: store, Log: log}
}

// Load walks the recognized loci in their fixed order and loads every
// non-empty bucket into the collection "<release>_<locus>". The first failing
// collection stops the load; collections loaded before it stay committed.
func (l *Loader) Load(ctx context.Context, rel release.Release, buckets partition.Buckets) (Report, error) {
	rep := Report{Release: rel}
	for _, lc := range locus.All() {
		recs := buckets[lc]
		if len(recs) == 0 {
			continue
		}
		name := rel.CollectionName(lc.String())
		n, err := l.Store.LoadCollection(ctx, name, rel.CollectionDescription(lc.String()), recs)
		if err != nil {
			return rep, fmt.Errorf("load collection %s: %w", name, err)
		}
		rep.Collections = append(rep.Collections, Collection{Locus: lc, Name: name, Loaded: n})
		l.Log.DebugContext(ctx, "loaded", "collection", name, "records", n)
	}
	return rep, nil
}
