package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"imgtdb/internal/blob"
	"imgtdb/internal/fetch"
	"imgtdb/internal/metrics"
	"imgtdb/internal/pipeline"
	"imgtdb/internal/release"
	"imgtdb/internal/seqdb"
)

const (
	smokeDat = `ID   HLA00001; SV 1; standard; DNA; HUM; 8 BP.
AC   HLA00001;
DE   HLA-A*01:01:01:01, Human MHC Class I sequence
SQ   Sequence 8 BP;
     acgtacgt                                                           8
//
ID   HLA00664; SV 1; standard; DNA; HUM; 6 BP.
SQ   Sequence 6 BP;
     ttaacc                                                             6
//
`
	smokeList = "HLA00001,A*01:01:01:01\nHLA00664,DRB1*01:01:01\n"
)

// TestIntegrationSmoke runs a full mirror-backed ingestion of one release for
// each blob adapter and encoding, reading the result back from sqlite.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	blobVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{
			name: "memory-blob",
			open: func(_ *testing.T) blob.Store { return blob.NewMemory() },
		},
		{
			name: "filesystem-blob",
			open: func(t *testing.T) blob.Store {
				fs, err := blob.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem blob: %v", err)
				}
				return fs
			},
		},
		{
			name: "mock-s3-blob",
			open: func(_ *testing.T) blob.Store { return blob.NewMockS3ForTests() },
		},
	}
	encodings := []fetch.Encoding{fetch.EncodingNone, fetch.EncodingGzip, fetch.EncodingZstd}
	rel := release.New("3260")

	for _, bv := range blobVariants {
		for _, enc := range encodings {
			t.Run(bv.name+"/"+string(enc), func(t *testing.T) {
				mirror := bv.open(t)
				seed := fetch.ArtifactsIn(t.TempDir(), rel)
				writeFile(t, seed.Dat, smokeDat)
				writeFile(t, seed.AlleleList, smokeList)
				if _, err := fetch.Publish(ctx, mirror, rel, seed, enc); err != nil {
					t.Fatalf("publish: %v", err)
				}

				dbPath := filepath.Join(t.TempDir(), "bioseqdb.db")
				store, err := seqdb.Open(ctx, seqdb.Options{DSN: dbPath})
				if err != nil {
					t.Fatalf("open store: %v", err)
				}
				workDir := t.TempDir()
				p := pipeline.New(fetch.NewMirror(mirror, workDir, nil), store, nil, metrics.New())
				if err := p.Run(ctx, []release.Release{rel}); err != nil {
					t.Fatalf("run: %v", err)
				}
				if !store.Closed() {
					t.Fatalf("store left open")
				}
				if entries, _ := os.ReadDir(workDir); len(entries) != 0 {
					t.Fatalf("work dir not cleaned: %v", entries)
				}

				verify, err := seqdb.Open(ctx, seqdb.Options{DSN: dbPath})
				if err != nil {
					t.Fatalf("reopen store: %v", err)
				}
				defer func() { _ = verify.Close() }()
				cols, err := verify.Collections(ctx)
				if err != nil {
					t.Fatalf("collections: %v", err)
				}
				if len(cols) != 2 || cols[0].Name != "3260_A" || cols[1].Name != "3260_DRB1" {
					t.Fatalf("unexpected collections: %+v", cols)
				}
				entries, err := verify.Entries(ctx, "3260_DRB1")
				if err != nil {
					t.Fatalf("entries: %v", err)
				}
				if len(entries) != 1 || entries[0].Name != "HLA-DRB1*01:01:01" || entries[0].Sequence != "TTAACC" {
					t.Fatalf("unexpected entries: %+v", entries)
				}
			})
		}
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
