package ingest

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/resolve"
)

// NFeNamespace is the XML namespace of Brazilian electronic invoices.
const NFeNamespace = "http://www.portalfiscal.inf.br/nfe"

// DefaultWorkers bounds concurrent NF-e parsing when the caller gives no limit.
const DefaultWorkers = 4

var (
	// ErrNotNFe is returned when a document has no infNFe element.
	ErrNotNFe = eris.New("ingest: document has no infNFe element")
	// ErrNoReadableInvoices is returned when invoice files were given but
	// none of them could be read.
	ErrNoReadableInvoices = eris.New("ingest: no readable invoice files")
)

// NFe holds the parts of an infNFe element used for reconciliation.
type NFe struct {
	Issuer         *string   `xml:"emit>xNome"`
	RecipientTaxID *string   `xml:"dest>CNPJ"`
	RecipientName  *string   `xml:"dest>xNome"`
	Items          []NFeItem `xml:"det"`
}

// NFeItem is one det entry. Fields are nil when the element is absent.
type NFeItem struct {
	Product  *string `xml:"prod>xProd"`
	Quantity *string `xml:"prod>qCom"`
}

// DecodeNFe finds the first infNFe element in the NF-e namespace and decodes
// it. Documents declaring a non-UTF-8 charset are transcoded.
func DecodeNFe(r io.Reader) (*NFe, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil, ErrNotNFe
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read nfe token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "infNFe" || se.Name.Space != NFeNamespace {
			continue
		}

		var doc NFe
		if err := decoder.DecodeElement(&doc, &se); err != nil {
			return nil, eris.Wrap(err, "ingest: decode infNFe")
		}
		return &doc, nil
	}
}

// Lines converts the document into invoice lines. The issuer resolves to a
// supplier and the recipient to a store. Items missing a description or a
// quantity are skipped; the second return value counts items whose quantity
// could not be parsed (kept with quantity 0).
func (d *NFe) Lines() ([]model.InvoiceLine, int) {
	issuer := deref(d.Issuer, Unknown)
	supplier := Unknown
	if d.Issuer != nil {
		supplier = resolve.Supplier(issuer)
	}
	store := resolve.Store(deref(d.RecipientTaxID, "0"), deref(d.RecipientName, ""))

	var (
		lines   []model.InvoiceLine
		invalid int
	)
	for _, item := range d.Items {
		if item.Product == nil || item.Quantity == nil {
			continue
		}
		q, err := ParseQuantity(*item.Quantity)
		if err != nil {
			invalid++
		}
		lines = append(lines, model.InvoiceLine{
			StoreID:  store,
			Issuer:   issuer,
			Supplier: supplier,
			Product:  *item.Product,
			Quantity: q,
		})
	}
	return lines, invalid
}

// ReadNFeFile decodes one NF-e file into invoice lines.
func ReadNFeFile(path string) ([]model.InvoiceLine, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	doc, err := DecodeNFe(f)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "ingest: %s", path)
	}
	lines, invalid := doc.Lines()
	return lines, invalid, nil
}

// LoadInvoices parses NF-e files concurrently, at most workers at a time.
// A file that cannot be read is logged and skipped. Lines are returned in
// the order of paths regardless of completion order. Giving files of which
// none is readable is an error.
func LoadInvoices(ctx context.Context, paths []string, workers int) ([]model.InvoiceLine, Stats, error) {
	var stats Stats
	if workers <= 0 {
		workers = DefaultWorkers
	}

	type result struct {
		lines   []model.InvoiceLine
		invalid int
		err     error
	}
	results := make([]result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "ingest: load invoices")
			}
			lines, invalid, err := ReadNFeFile(path)
			results[i] = result{lines: lines, invalid: invalid, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	lines := []model.InvoiceLine{}
	for i, r := range results {
		if r.err != nil {
			stats.Skipped++
			zap.L().Warn("ingest: skipping invoice file",
				zap.String("path", paths[i]),
				zap.Error(r.err),
			)
			continue
		}
		stats.Sources++
		stats.Invalid += r.invalid
		lines = append(lines, r.lines...)
	}
	stats.Lines = len(lines)

	if len(paths) > 0 && stats.Sources == 0 {
		return nil, stats, ErrNoReadableInvoices
	}

	zap.L().Debug("ingest: invoices loaded",
		zap.Int("files", stats.Sources),
		zap.Int("skipped", stats.Skipped),
		zap.Int("lines", stats.Lines),
	)
	return lines, stats, nil
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// InvoicePaths expands inputs into NF-e file paths. A directory contributes
// its *.xml files in name order; a file is taken as is.
func InvoicePaths(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: stat %s", in)
		}
		if !info.IsDir() {
			paths = append(paths, in)
			continue
		}
		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read dir %s", in)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
				continue
			}
			paths = append(paths, filepath.Join(in, e.Name()))
		}
	}
	return paths, nil
}
