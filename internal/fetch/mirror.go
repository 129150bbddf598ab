package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"imgtdb/internal/blob"
	"imgtdb/internal/logging"
	"imgtdb/internal/release"
)

// Mirror key names inside a release prefix.
const (
	DatKey        = "hla.dat"
	AlleleListKey = "Allelelist.txt"
)

// Encoding is the compression applied to a mirrored artifact.
type Encoding string

const (
	EncodingNone Encoding = ""
	EncodingGzip Encoding = "gzip"
	EncodingZstd Encoding = "zstd"
)

// Ext is the key suffix of the encoding.
func (e Encoding) Ext() string {
	switch e {
	case EncodingGzip:
		return ".gz"
	case EncodingZstd:
		return ".zst"
	}
	return ""
}

// ParseEncoding accepts "", "none", "gzip" and "zstd".
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "none":
		return EncodingNone, nil
	case string(EncodingGzip), string(EncodingZstd):
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// lookup order when several variants of a key are mirrored
var encodings = []Encoding{EncodingNone, EncodingGzip, EncodingZstd}

// MirrorKey is the blob key of an artifact of rel.
func MirrorKey(rel release.Release, name string, enc Encoding) string {
	return rel.ID + "/" + name + enc.Ext()
}

// Mirror copies artifacts out of a blob store. The work dir copies are the
// ones the pipeline later deletes; the mirror itself is never modified.
type Mirror struct {
	Store   blob.Store
	WorkDir string
	Log     *logging.Logger
}

// NewMirror returns a mirror fetcher reading from store.
func NewMirror(store blob.Store, workDir string, log *logging.Logger) *Mirror {
	if log == nil {
		log = logging.Discard()
	}
	return &Mirror{Store: store, WorkDir: workDir, Log: log}
}

// Fetch copies both artifacts of rel into the work dir, decompressing them
// when only a compressed variant is mirrored. The release prefix is listed
// once to pick the variant of each artifact.
func (m *Mirror) Fetch(ctx context.Context, rel release.Release) (Artifacts, error) {
	arts := ArtifactsIn(m.WorkDir, rel)
	infos, err := m.Store.List(ctx, rel.ID+"/")
	if err != nil {
		return arts, fmt.Errorf("mirror list %s: %w", rel.ID, err)
	}
	present := make(map[string]bool, len(infos))
	for _, info := range infos {
		present[info.Key] = true
	}
	if err := m.copy(ctx, rel, present, DatKey, arts.Dat); err != nil {
		return arts, err
	}
	if err := m.copy(ctx, rel, present, AlleleListKey, arts.AlleleList); err != nil {
		return arts, err
	}
	m.Log.DebugContext(ctx, "download finished", "release", rel.ID, "driver", string(m.Store.Driver()))
	return arts, nil
}

func (m *Mirror) copy(ctx context.Context, rel release.Release, present map[string]bool, name, path string) error {
	for _, enc := range encodings {
		key := MirrorKey(rel, name, enc)
		if !present[key] {
			continue
		}
		_, rc, err := m.Store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("mirror get %s: %w", key, err)
		}
		n, err := decodeTo(path, rc, enc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("mirror copy %s: %w", key, err)
		}
		m.Log.DebugContext(ctx, "copied from mirror", "key", key, "path", path, "bytes", n)
		return nil
	}
	return fmt.Errorf("mirror: %s: %w", MirrorKey(rel, name, EncodingNone), blob.ErrNotFound)
}

func decodeTo(path string, r io.Reader, enc Encoding) (int64, error) {
	switch enc {
	case EncodingGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return 0, err
		}
		defer func() { _ = zr.Close() }()
		return writeFile(path, zr)
	case EncodingZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return 0, err
		}
		defer zr.Close()
		return writeFile(path, zr)
	}
	return writeFile(path, r)
}

// Publish stores the local artifacts of rel in the mirror using enc.
func Publish(ctx context.Context, store blob.Store, rel release.Release, arts Artifacts, enc Encoding) ([]blob.Info, error) {
	var out []blob.Info
	for _, item := range []struct{ name, path string }{{DatKey, arts.Dat}, {AlleleListKey, arts.AlleleList}} {
		body, err := encodeFile(item.path, enc)
		if err != nil {
			return out, err
		}
		key := MirrorKey(rel, item.name, enc)
		info, err := store.Put(ctx, key, bytes.NewReader(body), blob.PutOptions{
			ContentType: contentType(enc),
			Metadata:    map[string]string{"release": rel.ID},
		})
		if err != nil {
			return out, fmt.Errorf("mirror put %s: %w", key, err)
		}
		out = append(out, info)
	}
	return out, nil
}

func encodeFile(path string, enc Encoding) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch enc {
	case EncodingGzip:
		w = gzip.NewWriter(&buf)
	case EncodingZstd:
		if w, err = zstd.NewWriter(&buf); err != nil {
			return nil, err
		}
	default:
		if _, err := io.Copy(&buf, f); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return buf.Bytes(), nil
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("compress %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func contentType(enc Encoding) string {
	switch enc {
	case EncodingGzip:
		return "application/gzip"
	case EncodingZstd:
		return "application/zstd"
	}
	return "text/plain"
}
