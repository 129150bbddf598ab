package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"imgtdb/internal/logging"
	"imgtdb/internal/release"
)

// Default download locations. {release} is replaced by the release id.
const (
	DefaultDatURL        = "https://raw.githubusercontent.com/ANHIG/IMGTHLA/{release}/hla.dat"
	DefaultAlleleListURL = "https://raw.githubusercontent.com/ANHIG/IMGTHLA/Latest/Allelelist.{release}.txt"

	placeholder = "{release}"
)

// HTTP downloads artifacts from the public IMGT/HLA repository.
type HTTP struct {
	DatURL        string
	AlleleListURL string
	WorkDir       string
	Client        *http.Client
	Log           *logging.Logger
}

// NewHTTP returns an HTTP fetcher. Empty templates use the defaults and a nil
// client uses http.DefaultClient.
func NewHTTP(datURL, alleleListURL, workDir string, client *http.Client, log *logging.Logger) *HTTP {
	if datURL == "" {
		datURL = DefaultDatURL
	}
	if alleleListURL == "" {
		alleleListURL = DefaultAlleleListURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logging.Discard()
	}
	return &HTTP{DatURL: datURL, AlleleListURL: alleleListURL, WorkDir: workDir, Client: client, Log: log}
}

// URLs returns the dat and allele list URLs of rel. The Latest allele list is
// published without a release suffix.
func (h *HTTP) URLs(rel release.Release) (datURL, alleleListURL string) {
	datURL = strings.ReplaceAll(h.DatURL, placeholder, rel.ID)
	alleleListURL = h.AlleleListURL
	if rel.IsLatest() {
		alleleListURL = strings.ReplaceAll(alleleListURL, "."+placeholder, "")
	}
	alleleListURL = strings.ReplaceAll(alleleListURL, placeholder, rel.ID)
	return datURL, alleleListURL
}

// Fetch downloads both artifacts into the work dir. Any transport error or
// non-2xx status fails the fetch.
func (h *HTTP) Fetch(ctx context.Context, rel release.Release) (Artifacts, error) {
	arts := ArtifactsIn(h.WorkDir, rel)
	datURL, alleleListURL := h.URLs(rel)
	if err := h.download(ctx, datURL, arts.Dat); err != nil {
		return arts, err
	}
	if err := h.download(ctx, alleleListURL, arts.AlleleList); err != nil {
		return arts, err
	}
	h.Log.DebugContext(ctx, "download finished", "release", rel.ID)
	return arts, nil
}

func (h *HTTP) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}
	n, err := writeFile(path, resp.Body)
	if err != nil {
		return err
	}
	h.Log.DebugContext(ctx, "downloaded", "url", url, "path", path, "bytes", n)
	return nil
}
