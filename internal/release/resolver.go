package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"imgtdb/internal/logging"
)

// DefaultTableURL is the EBI page listing published IMGT/HLA releases, newest first.
const DefaultTableURL = "https://www.ebi.ac.uk/ipd/imgt/hla/docs/release.html"

// ErrNoReleaseTable is returned when the release page holds no usable table.
var ErrNoReleaseTable = errors.New("release table not found")

// Resolver decides which releases a run processes.
type Resolver struct {
	TableURL string
	Client   *http.Client
	Log      *logging.Logger
}

// NewResolver returns a resolver reading the release table at tableURL
// (DefaultTableURL when empty).
func NewResolver(tableURL string, client *http.Client, log *logging.Logger) *Resolver {
	if tableURL == "" {
		tableURL = DefaultTableURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{TableURL: tableURL, Client: client, Log: log}
}

// Resolve returns the explicit list when one is given. Otherwise it takes the
// first count releases from the published table, with dots removed. Any table
// failure is logged and recovered by falling back to Latest.
func (r *Resolver) Resolve(ctx context.Context, explicit string, count int) []Release {
	if explicit != "" {
		return ParseList(explicit)
	}
	if count < 1 {
		count = 1
	}
	ids, err := r.fetchTable(ctx, count)
	if err != nil {
		r.Log.InfoContext(ctx, "failed to load release list", "error", err)
		r.Log.InfoContext(ctx, "defaulting to Latest")
		return []Release{New(Latest)}
	}
	out := make([]Release, 0, len(ids))
	for _, id := range ids {
		out = append(out, New(strings.ReplaceAll(id, ".", "")))
	}
	return out
}

func (r *Resolver) fetchTable(ctx context.Context, count int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.TableURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	res, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.TableURL, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d %s", r.TableURL, res.StatusCode, http.StatusText(res.StatusCode))
	}
	return LeadingColumn(res.Body, count)
}

// LeadingColumn parses an HTML document and returns up to limit values from
// the first column of the first table's data rows. Header rows (no td cells)
// are skipped.
func LeadingColumn(r io.Reader, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse release page: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoReleaseTable
	}
	var values []string
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("td").Length() == 0 {
			return true
		}
		cell := row.Children().First()
		values = append(values, strings.TrimSpace(cell.Text()))
		return len(values) < limit
	})
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrNoReleaseTable)
	}
	return values, nil
}
