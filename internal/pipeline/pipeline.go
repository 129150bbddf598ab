// Package pipeline drives releases through fetch, mapping, partitioning,
// loading and cleanup, strictly one release after another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"imgtdb/internal/allele"
	"imgtdb/internal/dat"
	"imgtdb/internal/fetch"
	"imgtdb/internal/loader"
	"imgtdb/internal/logging"
	"imgtdb/internal/metrics"
	"imgtdb/internal/partition"
	"imgtdb/internal/release"
)

// Store is the sequence store handle a run owns.
type Store interface {
	loader.Store
	Close() error
}

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	Fetcher fetch.Fetcher
	Store   Store
	Loader  *loader.Loader
	Log     *logging.Logger
	Metrics *metrics.Metrics
	// OnTransition, when set, observes every state a release enters.
	OnTransition func(rel release.Release, s State)
}

// New wires a pipeline with a loader over store.
func New(f fetch.Fetcher, store Store, log *logging.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = logging.Discard()
	}
	return &Pipeline{Fetcher: f, Store: store, Loader: loader.New(store, log), Log: log, Metrics: m}
}

// Run processes releases in order and stops at the first fatal error, which
// is returned as an *AbortError. The store is closed exactly once before Run
// returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, releases []release.Release) (err error) {
	defer func() {
		if cerr := p.Store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	p.Log.DebugContext(ctx, "releases", "ids", release.IDs(releases))
	for _, rel := range releases {
		if err := p.runRelease(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runRelease(ctx context.Context, rel release.Release) error {
	start := time.Now()
	log := p.Log.WithRelease(rel.ID)
	var arts fetch.Artifacts

	abort := func(st State, err error) error {
		p.enter(rel, Aborted)
		log.ErrorContext(ctx, "release aborted", "state", st.String(), "error", err)
		p.cleanup(ctx, log, arts)
		p.Metrics.Finished(rel.ID, metrics.StatusAborted, time.Since(start))
		return &AbortError{Release: rel.ID, State: st, Err: err}
	}

	p.enter(rel, Fetching)
	if err := ctx.Err(); err != nil {
		return abort(Fetching, err)
	}
	arts, err := p.Fetcher.Fetch(ctx, rel)
	if err != nil {
		return abort(Fetching, err)
	}

	p.enter(rel, Mapping)
	mapping, err := allele.ParseFile(arts.AlleleList, rel.ID)
	if err != nil {
		return abort(Mapping, err)
	}
	log.DebugContext(ctx, "allele names read", "count", len(mapping))

	p.enter(rel, Partitioning)
	buckets, stats, err := p.partition(arts.Dat, mapping)
	if err != nil {
		return abort(Partitioning, err)
	}
	p.Metrics.Dropped(rel.ID, metrics.ReasonUnmapped, stats.Unmapped)
	p.Metrics.Dropped(rel.ID, metrics.ReasonUnknownLocus, stats.UnknownLocus)
	log.DebugContext(ctx, "records partitioned", "seen", stats.Seen, "kept", stats.Kept)

	p.enter(rel, Loading)
	rep, err := p.Loader.Load(ctx, rel, buckets)
	for _, c := range rep.Collections {
		p.Metrics.Loaded(rel.ID, c.Locus.String(), c.Loaded)
	}
	if err != nil {
		return abort(Loading, err)
	}

	p.enter(rel, Cleanup)
	p.cleanup(ctx, log, arts)

	p.enter(rel, Done)
	p.Metrics.Finished(rel.ID, metrics.StatusDone, time.Since(start))
	log.DebugContext(ctx, "release finished", "records", rep.Total(), "collections", len(rep.Collections))
	return nil
}

func (p *Pipeline) partition(path string, m allele.Mapping) (partition.Buckets, partition.Stats, error) {
	sc, closer, err := dat.Open(path)
	if err != nil {
		return nil, partition.Stats{}, err
	}
	defer func() { _ = closer.Close() }()
	return partition.Partition(sc, m)
}

// cleanup removes the transient artifacts. Missing files are not an error.
func (p *Pipeline) cleanup(ctx context.Context, log *logging.Logger, arts fetch.Artifacts) {
	for _, path := range arts.Paths() {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.WarnContext(ctx, "remove artifact", "path", path, "error", err)
		}
	}
}

func (p *Pipeline) enter(rel release.Release, s State) {
	if p.OnTransition != nil {
		p.OnTransition(rel, s)
	}
}
