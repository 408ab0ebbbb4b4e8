package pdfsource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jackzampolin/pageview/internal/source"
)

// Page is one page of a Document. Text runs are extracted on first use and
// cached; both TextContent and Render draw from them.
type Page struct {
	doc   *Document
	index int
	page  pdf.Page
	unit  source.Geometry

	runs    []source.TextItem
	runsErr error
	loaded  bool
}

// Index implements source.Page.
func (p *Page) Index() int { return p.index }

// Ref implements source.Page.
func (p *Page) Ref() string { return fmt.Sprintf("pdf-page-%d", p.index+1) }

// Geometry implements source.Page.
func (p *Page) Geometry(ctx context.Context, scale float64) (source.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return source.Geometry{}, err
	}
	return p.unit.Scaled(scale), nil
}

// TextContent implements source.Page. A page without glyphs has an empty,
// non-nil run list.
func (p *Page) TextContent(ctx context.Context) ([]source.TextItem, error) {
	runs, err := p.textRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]source.TextItem, len(runs))
	copy(out, runs)
	return out, nil
}

func (p *Page) textRuns(ctx context.Context) ([]source.TextItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if !p.loaded {
		p.runs, p.runsErr = extract(p.page, p.unit.Height)
		p.loaded = true
		if p.runsErr != nil {
			p.doc.logger.Debug("text extraction failed", "page", p.index+1, "error", p.runsErr)
		}
	}
	return p.runs, p.runsErr
}

// extract reads the content stream glyphs. The decoder panics on some
// malformed streams.
func extract(pp pdf.Page, pageHeight float64) (runs []source.TextItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	content := pp.Content()
	runs = groupRuns(content.Text, pageHeight)
	if runs == nil {
		runs = []source.TextItem{}
	}
	return runs, nil
}

// groupRuns joins glyphs on the same baseline into runs. A gap wider than a
// fifth of the font size becomes a space; a gap wider than one and a half
// times the font size, a baseline change or a jump backwards starts a new
// run. Coordinates are flipped to a top-left origin.
func groupRuns(glyphs []pdf.Text, pageHeight float64) []source.TextItem {
	var (
		out   []source.TextItem
		b     strings.Builder
		open  bool
		x     float64
		y     float64
		size  float64
		right float64
	)
	flush := func() {
		if !open {
			return
		}
		if s := b.String(); s != "" {
			out = append(out, source.TextItem{
				Text:   s,
				X:      x,
				Y:      pageHeight - y - size,
				Width:  right - x,
				Height: size,
			})
		}
		b.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		gs := math.Max(g.FontSize, 1)
		if open {
			gap := g.X - right
			sameLine := math.Abs(g.Y-y) <= size/2
			if !sameLine || gap < -size/2 || gap > size*1.5 || math.Abs(gs-size) > size/2 {
				flush()
			} else if gap > size/5 && !strings.HasSuffix(b.String(), " ") && g.S != " " {
				b.WriteByte(' ')
			}
		}
		if !open {
			open = true
			x, y, size, right = g.X, g.Y, gs, g.X
		}
		b.WriteString(g.S)
		right = math.Max(right, g.X+g.W)
	}
	flush()
	return out
}

var (
	paper = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	ink   = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

// Render implements source.Page. The page is painted white and each text
// run is drawn with a bitmap face scaled into the run's box. The token is
// checked between runs.
func (p *Page) Render(ctx context.Context, dst xdraw.Image, scale float64) source.Outcome {
	if o, done := source.OutcomeFromContext(ctx); done {
		return o
	}
	runs, err := p.textRuns(ctx)
	if err != nil {
		if o, done := source.OutcomeFromContext(ctx); done {
			return o
		}
		return source.Failed(fmt.Errorf("page %d: %w", p.index+1, err))
	}

	bounds := dst.Bounds()
	xdraw.Draw(dst, bounds, image.NewUniform(paper), image.Point{}, xdraw.Src)

	for _, r := range runs {
		if o, done := source.OutcomeFromContext(ctx); done {
			return o
		}
		drawRun(dst, r, scale)
	}
	return source.Succeeded()
}

// drawRun rasterizes r with basicfont at its native size, then scales the
// strip into the run's box on dst.
func drawRun(dst xdraw.Image, r source.TextItem, scale float64) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	adv := font.MeasureString(face, text).Ceil()
	if adv <= 0 {
		return
	}
	strip := image.NewRGBA(image.Rect(0, 0, adv, face.Height))
	d := font.Drawer{
		Dst:  strip,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	w := r.Width
	if w <= 0 {
		// No advance widths; assume the bitmap aspect.
		w = r.Height * float64(adv) / float64(face.Height)
	}
	target := image.Rect(
		int(math.Floor(r.X*scale)),
		int(math.Floor(r.Y*scale)),
		int(math.Ceil((r.X+w)*scale)),
		int(math.Ceil((r.Y+r.Height)*scale)),
	).Intersect(dst.Bounds())
	if target.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, target, strip, strip.Bounds(), xdraw.Over, nil)
}
