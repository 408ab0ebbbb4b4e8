package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
	"time"
)

// MockPage is a Page for testing.
type MockPage struct {
	index int

	// Configurable behavior
	Size     Geometry
	Text     []TextItem // nil means ErrNoTextContent
	Latency  time.Duration
	Gate     chan struct{} // when set, Render blocks until it yields or ctx is done
	FailWith error         // Render fails with this error when set
	GeomErr  error

	// State
	renders   atomic.Int64
	cancelled atomic.Int64
}

// NewMockPage creates a page of the given unit size.
func NewMockPage(index int, width, height float64) *MockPage {
	return &MockPage{index: index, Size: Geometry{Width: width, Height: height}}
}

func (p *MockPage) Index() int { return p.index }

func (p *MockPage) Ref() string { return fmt.Sprintf("mock-page-%d", p.index) }

// Geometry returns Size scaled.
func (p *MockPage) Geometry(ctx context.Context, scale float64) (Geometry, error) {
	if p.GeomErr != nil {
		return Geometry{}, p.GeomErr
	}
	return p.Size.Scaled(scale), nil
}

// Render fills dst with a solid color after the configured latency or gate.
func (p *MockPage) Render(ctx context.Context, dst draw.Image, scale float64) Outcome {
	p.renders.Add(1)

	if p.Latency > 0 {
		select {
		case <-ctx.Done():
			p.cancelled.Add(1)
			return Cancelled()
		case <-time.After(p.Latency):
		}
	}
	if p.Gate != nil {
		select {
		case <-ctx.Done():
			p.cancelled.Add(1)
			return Cancelled()
		case <-p.Gate:
		}
	}
	if out, done := OutcomeFromContext(ctx); done {
		p.cancelled.Add(1)
		return out
	}
	if p.FailWith != nil {
		return Failed(p.FailWith)
	}
	if dst != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Gray{Y: 0xee}), image.Point{}, draw.Src)
	}
	return Succeeded()
}

// TextContent returns Text.
func (p *MockPage) TextContent(ctx context.Context) ([]TextItem, error) {
	if p.Text == nil {
		return nil, ErrNoTextContent
	}
	return p.Text, nil
}

// Renders returns how many render operations were started.
func (p *MockPage) Renders() int { return int(p.renders.Load()) }

// Cancellations returns how many render operations settled as cancelled.
func (p *MockPage) Cancellations() int { return int(p.cancelled.Load()) }

// MockDocument is a Document for testing.
type MockDocument struct {
	Pages   []*MockPage
	PageErr error
	closed  atomic.Bool
}

// NewMockDocument creates a document with one page per size.
func NewMockDocument(sizes ...Geometry) *MockDocument {
	doc := &MockDocument{}
	for i, s := range sizes {
		doc.Pages = append(doc.Pages, NewMockPage(i, s.Width, s.Height))
	}
	return doc
}

func (d *MockDocument) NumPages() int { return len(d.Pages) }

func (d *MockDocument) Page(ctx context.Context, index int) (Page, error) {
	if d.PageErr != nil {
		return nil, d.PageErr
	}
	if index < 0 || index >= len(d.Pages) {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	return d.Pages[index], nil
}

func (d *MockDocument) Close() error {
	d.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (d *MockDocument) Closed() bool { return d.closed.Load() }

// MockOpener returns Doc from Open, optionally behind a password.
type MockOpener struct {
	Doc      *MockDocument
	Password string // required password, empty for none
	OpenErr  error

	opens atomic.Int64
}

// Open implements Opener.
func (o *MockOpener) Open(ctx context.Context, data []byte, opts OpenOptions) (Document, error) {
	o.opens.Add(1)
	if o.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentOpenFailed, o.OpenErr)
	}
	if o.Password != "" {
		reason := NeedPassword
		for {
			if opts.Password == nil {
				return nil, ErrPasswordRequired
			}
			pw := opts.Password(reason)
			if pw == "" {
				return nil, ErrPasswordRequired
			}
			if pw == o.Password {
				break
			}
			reason = IncorrectPassword
		}
	}
	return o.Doc, nil
}

// Opens returns how many times Open was called.
func (o *MockOpener) Opens() int { return int(o.opens.Load()) }
