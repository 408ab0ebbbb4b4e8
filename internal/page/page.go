// Package page owns the render lifecycle of a single document page: its
// geometry at the current scale, at most one cancellable render operation,
// the rendered surface, and the text layer used for search highlights.
//
// A Page is not safe for concurrent use. All methods must be called from the
// task queue that Config.Post feeds; render completions are delivered back
// through Post so every state change happens on that queue.
package page

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pageview/internal/source"
)

// Render errors
var (
	// ErrRenderFailed wraps backend failures reported for a page.
	ErrRenderFailed = errors.New("page render failed")
)

// Highlight errors
var (
	// ErrNotRendered indicates an operation that needs a rendered page.
	ErrNotRendered = errors.New("page not rendered")

	// ErrNoText indicates the page was loaded without text content.
	ErrNoText = errors.New("page has no text content")

	// ErrItemOutOfRange indicates a text item index or range outside the layer.
	ErrItemOutOfRange = errors.New("text item out of range")
)

// State is the render state of a page.
type State int

const (
	NotRendered State = iota
	Rendering
	Rendered
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case NotRendered:
		return "not_rendered"
	case Rendering:
		return "rendering"
	case Rendered:
		return "rendered"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is returned by Render.
type Status int

const (
	Started Status = iota
	AlreadyRendered
	AlreadyScheduled
)

func (s Status) String() string {
	switch s {
	case Started:
		return "started"
	case AlreadyRendered:
		return "already_rendered"
	case AlreadyScheduled:
		return "already_scheduled"
	default:
		return "unknown"
	}
}

// Result describes how a render request settled.
type Result struct {
	PageID   int
	State    State // Rendered, Cancelled or Failed
	Scale    float64
	Err      error
	Duration time.Duration
}

// Hooks receive render notifications. Cancellations are not reported.
type Hooks struct {
	OnRendered func(p *Page, r Result)
	OnFailed   func(p *Page, r Result)
}

// Config configures a new page.
type Config struct {
	ID     int             // 1-based page number
	Source source.Page     // backend page
	Unit   source.Geometry // geometry at scale 1.0
	Text   []source.TextItem
	Post   func(func()) // schedules fn on the owning task queue
	Logger *slog.Logger
	Hooks  Hooks
}

type renderHandle struct {
	id      string
	cancel  context.CancelFunc
	scale   float64
	surface *image.RGBA
	started time.Time
}

// Page is one page of the open document.
type Page struct {
	id     int
	src    source.Page
	unit   source.Geometry
	text   []source.TextItem
	post   func(func())
	logger *slog.Logger
	hooks  Hooks

	scale float64
	geom  source.Geometry

	state   State
	handle  *renderHandle
	waiters []func(Result)

	surface   *image.RGBA
	layer     *TextLayer
	highlight int // layer item index, -1 for none
}

// New creates a page in the NotRendered state at scale 1.0.
func New(cfg Config) *Page {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	post := cfg.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Page{
		id:        cfg.ID,
		src:       cfg.Source,
		unit:      cfg.Unit,
		text:      cfg.Text,
		post:      post,
		logger:    logger.With("page", cfg.ID),
		hooks:     cfg.Hooks,
		scale:     1.0,
		geom:      cfg.Unit,
		highlight: -1,
	}
}

// ID returns the 1-based page number.
func (p *Page) ID() int { return p.id }

// State returns the current render state.
func (p *Page) State() State { return p.state }

// Scale returns the scale of the current geometry.
func (p *Page) Scale() float64 { return p.scale }

// Geometry returns the page size at the current scale.
func (p *Page) Geometry() source.Geometry { return p.geom }

// UnitGeometry returns the page size at scale 1.0.
func (p *Page) UnitGeometry() source.Geometry { return p.unit }

// HasText reports whether text content was loaded for the page.
func (p *Page) HasText() bool { return p.text != nil }

// TextItems returns the raw text items in reading order.
func (p *Page) TextItems() []source.TextItem { return p.text }

// Source returns the backend page.
func (p *Page) Source() source.Page { return p.src }

// Surface returns the rendered pixels, or nil unless the page is Rendered.
func (p *Page) Surface() image.Image {
	if p.state != Rendered || p.surface == nil {
		return nil
	}
	return p.surface
}

// TextLayer returns the text layer of a rendered page, or nil.
func (p *Page) TextLayer() *TextLayer { return p.layer }

// Highlighted returns the highlighted text item, if any.
func (p *Page) Highlighted() (int, bool) {
	return p.highlight, p.highlight >= 0
}

// Resize recomputes the geometry for scale. Callers clear the page first;
// resizing a rendering page leaves its in-flight output at the old scale.
func (p *Page) Resize(scale float64) {
	p.scale = scale
	p.geom = p.unit.Scaled(scale)
}

// Render starts rendering the page at scale unless it is already rendered or
// rendering. onDone, if non-nil, is called once the request settles: right
// away for a rendered page, or when the in-flight operation it joined
// completes.
func (p *Page) Render(scale float64, onDone func(Result)) Status {
	switch p.state {
	case Rendered:
		if onDone != nil {
			onDone(Result{PageID: p.id, State: Rendered, Scale: p.scale})
		}
		return AlreadyRendered
	case Rendering:
		if onDone != nil {
			p.waiters = append(p.waiters, onDone)
		}
		return AlreadyScheduled
	}

	if scale != p.scale {
		p.Resize(scale)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &renderHandle{
		id:      uuid.New().String(),
		cancel:  cancel,
		scale:   scale,
		surface: image.NewRGBA(image.Rect(0, 0, pixels(p.geom.Width), pixels(p.geom.Height))),
		started: time.Now(),
	}
	p.handle = h
	p.state = Rendering
	if onDone != nil {
		p.waiters = append(p.waiters, onDone)
	}

	p.logger.Debug("render started", "render_id", h.id, "scale", scale)

	src := p.src
	go func() {
		out := src.Render(ctx, h.surface, h.scale)
		p.post(func() { p.settle(h, out) })
	}()

	return Started
}

// settle applies the outcome of the operation behind h. Outcomes of
// operations that were cleared in the meantime are dropped.
func (p *Page) settle(h *renderHandle, out source.Outcome) {
	h.cancel()
	if p.handle != h {
		p.logger.Debug("stale render outcome dropped", "render_id", h.id, "outcome", out.Status)
		return
	}
	p.handle = nil

	res := Result{PageID: p.id, Scale: h.scale, Duration: time.Since(h.started)}
	switch out.Status {
	case source.OutcomeSucceeded:
		p.state = Rendered
		p.surface = h.surface
		if p.text != nil {
			p.layer = NewTextLayer(p.text, h.scale)
		}
		res.State = Rendered
		p.logger.Debug("render completed", "render_id", h.id, "duration", res.Duration)
		if p.hooks.OnRendered != nil {
			p.hooks.OnRendered(p, res)
		}
	case source.OutcomeCancelled:
		p.state = Cancelled
		res.State = Cancelled
		p.logger.Debug("render cancelled", "render_id", h.id)
	default:
		p.state = Failed
		res.State = Failed
		res.Err = fmt.Errorf("%w: page %d: %w", ErrRenderFailed, p.id, out.Err)
		p.logger.Warn("render failed", "render_id", h.id, "error", out.Err)
		if p.hooks.OnFailed != nil {
			p.hooks.OnFailed(p, res)
		}
	}

	p.notify(res)
}

// Clear cancels an in-flight render, drops rendered output and the text
// layer (and with it any highlight), and leaves the page NotRendered.
// Requests that had joined a cancelled render receive a Cancelled result.
func (p *Page) Clear() {
	var res *Result
	if p.state == Rendering && p.handle != nil {
		h := p.handle
		p.handle = nil
		h.cancel()
		p.state = Cancelled
		res = &Result{PageID: p.id, State: Cancelled, Scale: h.scale, Duration: time.Since(h.started)}
		p.logger.Debug("render cancelled by clear", "render_id", h.id)
	}

	p.surface = nil
	p.layer = nil
	p.highlight = -1
	p.state = NotRendered

	if res != nil {
		p.notify(*res)
	}
}

func (p *Page) notify(res Result) {
	waiters := p.waiters
	p.waiters = nil
	for _, fn := range waiters {
		fn(res)
	}
}

// HighlightTextItem marks length bytes at offset of text layer item
// itemIndex and returns the match bounds in page-local pixels. Any previous
// highlight on the page is cleared first.
func (p *Page) HighlightTextItem(itemIndex, offset, length int) (Rect, error) {
	if p.state != Rendered {
		return Rect{}, fmt.Errorf("%w: page %d is %s", ErrNotRendered, p.id, p.state)
	}
	if p.layer == nil {
		return Rect{}, fmt.Errorf("%w: page %d", ErrNoText, p.id)
	}
	p.ClearHighlight()
	r, err := p.layer.Highlight(itemIndex, offset, length)
	if err != nil {
		return Rect{}, err
	}
	p.highlight = itemIndex
	return r, nil
}

// ClearHighlight removes the highlight from the page, if any.
func (p *Page) ClearHighlight() {
	if p.highlight < 0 {
		return
	}
	if p.layer != nil {
		p.layer.ClearHighlight(p.highlight)
	}
	p.highlight = -1
}

func pixels(v float64) int {
	n := int(math.Ceil(v))
	if n < 1 {
		return 1
	}
	return n
}
