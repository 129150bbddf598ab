// Command imgtdb loads IMGT/HLA releases into a BioSQL-style sequence store,
// one collection per release and locus.
//
// Usage:
//
//	imgtdb [-v] [-n N | -r 3260,3270]                    load releases
//	imgtdb mirror [-v] [-n N | -r IDS] [--compress zstd]  copy releases into the blob mirror
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"imgtdb/internal/blob"
	"imgtdb/internal/config"
	"imgtdb/internal/fetch"
	"imgtdb/internal/logging"
	"imgtdb/internal/metrics"
	"imgtdb/internal/pipeline"
	"imgtdb/internal/release"
	"imgtdb/internal/seqdb"
)

const (
	exitOK      = 0
	exitAborted = 1
	exitUsage   = 2
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	verbose  bool
	number   int
	releases string
	compress string
}

func flagSet(name string, opts *options, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress messages")
	fs.IntVarP(&opts.number, "number", "n", 1, "number of most recent releases to process")
	fs.StringVarP(&opts.releases, "releases", "r", "", "comma separated release ids, overrides --number")
	return fs
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "mirror" {
		return mirrorCLI(args[1:], stdout, stderr)
	}
	var opts options
	fs := flagSet("imgtdb", &opts, stderr)
	if code, ok := parse(fs, args, stderr); !ok {
		return code
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "imgtdb: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, cfg.LogFormat, opts.verbose).WithRun(uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &http.Client{Timeout: cfg.Source.HTTPTimeout}
	releases := release.NewResolver(cfg.Source.ReleasesURL, client, log).Resolve(ctx, opts.releases, opts.number)

	fetcher, err := newFetcher(ctx, cfg, client, log)
	if err != nil {
		log.ErrorContext(ctx, "open release source", "error", err)
		return exitAborted
	}
	store, err := seqdb.Open(ctx, seqdb.Options{
		Driver:  seqdb.Driver(cfg.Storage.Driver),
		DSN:     cfg.StorageDSN(),
		Retries: cfg.Storage.Retries,
	})
	if err != nil {
		log.ErrorContext(ctx, "open sequence store", "error", err)
		return exitAborted
	}

	m := metrics.New()
	runErr := pipeline.New(fetcher, store, log, m).Run(ctx, releases)
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.WarnContext(ctx, "write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}
	if runErr != nil {
		var ae *pipeline.AbortError
		if !errors.As(runErr, &ae) {
			log.ErrorContext(ctx, "run failed", "error", runErr)
		}
		return exitAborted
	}
	return exitOK
}

// mirrorCLI downloads releases over HTTP and publishes them into the blob mirror.
func mirrorCLI(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flagSet("imgtdb mirror", &opts, stderr)
	fs.StringVar(&opts.compress, "compress", "zstd", "mirror encoding: none|gzip|zstd")
	if code, ok := parse(fs, args, stderr); !ok {
		return code
	}
	enc, err := fetch.ParseEncoding(opts.compress)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "imgtdb mirror: %v\n", err)
		return exitUsage
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "imgtdb mirror: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, cfg.LogFormat, opts.verbose).WithRun(uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &http.Client{Timeout: cfg.Source.HTTPTimeout}
	releases := release.NewResolver(cfg.Source.ReleasesURL, client, log).Resolve(ctx, opts.releases, opts.number)
	store, err := openBlob(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "open mirror", "error", err)
		return exitAborted
	}
	src := fetch.NewHTTP(cfg.Source.DatURL, cfg.Source.AlleleListURL, cfg.WorkDir, client, log)
	for _, rel := range releases {
		arts, err := src.Fetch(ctx, rel)
		if err == nil {
			var infos []blob.Info
			infos, err = fetch.Publish(ctx, store, rel, arts, enc)
			for _, info := range infos {
				_, _ = fmt.Fprintf(stdout, "%s\t%d\n", info.Key, info.Size)
			}
		}
		for _, p := range arts.Paths() {
			_ = os.Remove(p)
		}
		if err != nil {
			log.ErrorContext(ctx, "mirror release", "release", rel.ID, "error", err)
			return exitAborted
		}
	}
	return exitOK
}

func parse(fs *pflag.FlagSet, args []string, stderr io.Writer) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return exitUsage, false
	}
	return 0, true
}

func newFetcher(ctx context.Context, cfg config.Config, client *http.Client, log *logging.Logger) (fetch.Fetcher, error) {
	if cfg.Source.Kind == config.SourceMirror {
		store, err := openBlob(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return fetch.NewMirror(store, cfg.WorkDir, log), nil
	}
	return fetch.NewHTTP(cfg.Source.DatURL, cfg.Source.AlleleListURL, cfg.WorkDir, client, log), nil
}

func openBlob(ctx context.Context, cfg config.Config) (blob.Store, error) {
	return blob.Open(ctx, blobConfig(cfg))
}

func blobConfig(cfg config.Config) blob.Config {
	return blob.Config{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          cfg.Blob.S3Bucket,
			Region:          cfg.Blob.S3Region,
			Endpoint:        cfg.Blob.S3Endpoint,
			AccessKeyID:     cfg.Blob.S3AccessKeyID,
			SecretAccessKey: cfg.Blob.S3SecretAccessKey,
			SessionToken:    cfg.Blob.S3SessionToken,
			PathStyle:       cfg.Blob.S3PathStyle,
		},
	}
}
