// Package pdfsource is a source.Opener for PDF documents.
//
// Documents are decoded with ledongthuc/pdf, which also drives the password
// challenge and extracts positioned glyphs. Page boxes come from pdfcpu when
// it can read the file, falling back to the page MediaBox. Rendering draws a
// text proof of each page: the extracted runs rasterized at their positions,
// which is enough for a headless viewer to show layout and highlights.
package pdfsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jackzampolin/pageview/internal/source"
)

// Letter is used when a page declares no usable box.
var Letter = source.Geometry{Width: 612, Height: 792}

// Opener opens PDF bytes.
type Opener struct {
	Logger *slog.Logger
}

// NewOpener creates a PDF opener.
func NewOpener(logger *slog.Logger) *Opener {
	return &Opener{Logger: logger}
}

// Open implements source.Opener.
func (o *Opener) Open(ctx context.Context, data []byte, opts source.OpenOptions) (doc source.Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pdfsource")

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: malformed PDF: %v", source.ErrDocumentOpenFailed, r)
		}
	}()

	ch := newChallenge(opts.Password)
	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), ch.prompt())
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: %w", source.ErrPasswordRequired, err)
		}
		return nil, fmt.Errorf("%w: %w", source.ErrDocumentOpenFailed, err)
	}

	d := &Document{reader: reader, logger: logger, pages: make(map[int]*Page)}
	d.dims = pageBoxes(data, ch.accepted, logger)
	if d.dims != nil && len(d.dims) != reader.NumPage() {
		logger.Debug("page box count mismatch, using MediaBox", "boxes", len(d.dims), "pages", reader.NumPage())
		d.dims = nil
	}
	logger.Debug("document opened", "pages", reader.NumPage(), "encrypted", ch.calls > 0)
	return d, nil
}

// challenge adapts source.PasswordFunc to the reader's prompt, which is
// only called after the empty password was rejected and again after every
// wrong answer.
type challenge struct {
	fn       source.PasswordFunc
	calls    int
	accepted string
}

func newChallenge(fn source.PasswordFunc) *challenge {
	return &challenge{fn: fn}
}

func (c *challenge) prompt() func() string {
	if c.fn == nil {
		return nil
	}
	return func() string {
		reason := source.NeedPassword
		if c.calls > 0 {
			reason = source.IncorrectPassword
		}
		c.calls++
		c.accepted = c.fn(reason)
		return c.accepted
	}
}

// pageBoxes reads page dimensions with pdfcpu. It returns nil when pdfcpu
// cannot process the file.
func pageBoxes(data []byte, password string, logger *slog.Logger) (dims []source.Geometry) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("pdfcpu panicked reading page boxes", "panic", r)
			dims = nil
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
	}
	boxes, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		logger.Debug("pdfcpu could not read page boxes", "error", err)
		return nil
	}
	dims = make([]source.Geometry, len(boxes))
	for i, b := range boxes {
		dims[i] = source.Geometry{Width: b.Width, Height: b.Height}
	}
	return dims
}

// Document is an open PDF. The underlying reader is not safe for concurrent
// use, so every access is serialized.
type Document struct {
	mu     sync.Mutex
	reader *pdf.Reader
	dims   []source.Geometry
	pages  map[int]*Page
	logger *slog.Logger
}

// NumPages implements source.Document.
func (d *Document) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reader.NumPage()
}

// Page implements source.Document.
func (d *Document) Page(ctx context.Context, index int) (source.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pages[index]; ok {
		return p, nil
	}
	if index < 0 || index >= d.reader.NumPage() {
		return nil, fmt.Errorf("page index %d out of range", index)
	}

	pp := d.reader.Page(index + 1)
	if pp.V.IsNull() {
		return nil, fmt.Errorf("page %d missing from page tree", index+1)
	}
	unit := Letter
	if d.dims != nil {
		unit = d.dims[index]
	} else if box, ok := mediaBox(pp); ok {
		unit = box
	}

	p := &Page{doc: d, index: index, page: pp, unit: unit}
	d.pages[index] = p
	return p, nil
}

// Close implements source.Document. The reader holds no resources beyond
// the bytes it was opened on.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = make(map[int]*Page)
	return nil
}

func mediaBox(p pdf.Page) (source.Geometry, bool) {
	box := p.V.Key("MediaBox")
	if box.Len() != 4 {
		return source.Geometry{}, false
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return source.Geometry{}, false
	}
	return source.Geometry{Width: w, Height: h}, true
}
