package viewer

import (
	"context"
	"fmt"
	"image"

	"github.com/jackzampolin/pageview/internal/page"
	"github.com/jackzampolin/pageview/internal/search"
	"github.com/jackzampolin/pageview/internal/viewport"
	"github.com/jackzampolin/pageview/internal/zoom"
)

// GoToPage scrolls page n (1-based) to the top of the viewport.
func (v *Viewer) GoToPage(ctx context.Context, n int) error {
	return v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		if n < 1 || n > len(v.pages) {
			return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, len(v.pages))
		}
		v.sched.GoTo(n - 1)
		return nil
	})
}

// GoToNextPage moves to the page after the current one. On the last page
// it does nothing.
func (v *Viewer) GoToNextPage(ctx context.Context) error {
	return v.step(ctx, 1)
}

// GoToPrevPage moves to the page before the current one. On the first page
// it does nothing.
func (v *Viewer) GoToPrevPage(ctx context.Context) error {
	return v.step(ctx, -1)
}

func (v *Viewer) step(ctx context.Context, delta int) error {
	return v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		cur := v.sched.CurrentPage()
		if cur == 0 {
			cur = 1
		}
		next := cur + delta
		if next < 1 || next > len(v.pages) {
			return nil
		}
		v.sched.GoTo(next - 1)
		return nil
	})
}

// PageImage renders page n at the current scale, if it is not rendered
// already, and returns its surface. The image stays valid after the page is
// evicted; a later render allocates a new one.
func (v *Viewer) PageImage(ctx context.Context, n int) (image.Image, error) {
	type outcome struct {
		img image.Image
		err error
	}
	ch := make(chan outcome, 1)
	err := v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		if n < 1 || n > len(v.pages) {
			return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, len(v.pages))
		}
		p := v.pages[n-1]
		p.Render(v.scale, func(res page.Result) {
			switch res.State {
			case page.Rendered:
				ch <- outcome{img: p.Surface()}
			case page.Failed:
				ch <- outcome{err: res.Err}
			default:
				ch <- outcome{err: fmt.Errorf("%w: page %d render cancelled", page.ErrNotRendered, n)}
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	select {
	case o := <-ch:
		return o.img, o.err
	case <-v.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CurrentPage returns the 1-based current page, or 0 before anything is
// visible.
func (v *Viewer) CurrentPage(ctx context.Context) (int, error) {
	var n int
	err := v.call(ctx, func() { n = v.sched.CurrentPage() })
	return n, err
}

// NumPages returns the number of pages of the open document.
func (v *Viewer) NumPages(ctx context.Context) (int, error) {
	var n int
	err := v.call(ctx, func() { n = len(v.pages) })
	return n, err
}

// Search runs term over the document text and highlights the first match.
// Progress and results are reported through Events.SearchStatus. An empty
// term resets the search.
func (v *Viewer) Search(ctx context.Context, term string) error {
	return v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		v.session.Search(term)
		return nil
	})
}

// Matches returns the match set of the active search.
func (v *Viewer) Matches(ctx context.Context) ([]search.Match, error) {
	var out []search.Match
	err := v.call(ctx, func() { out = append(out, v.session.Matches()...) })
	return out, err
}

// PageText returns the searchable text items of page n, trimmed, in the
// order search.Match.ItemIndex refers to them.
func (v *Viewer) PageText(ctx context.Context, n int) ([]string, error) {
	var texts []string
	err := v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		if n < 1 || n > len(v.pages) {
			return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, len(v.pages))
		}
		texts, _ = page.Indexable(v.pages[n-1].TextItems())
		return nil
	})
	return texts, err
}

// ResetSearch clears the term, the matches and the highlight.
func (v *Viewer) ResetSearch(ctx context.Context) error {
	return v.call(ctx, v.session.Reset)
}

// FindNext highlights the next match, wrapping around.
func (v *Viewer) FindNext(ctx context.Context) error {
	return v.call(ctx, v.session.FindNext)
}

// FindPrev highlights the previous match, wrapping around.
func (v *Viewer) FindPrev(ctx context.Context) error {
	return v.call(ctx, v.session.FindPrev)
}

// ScrollTo moves the viewport top to y (clamped to the content).
func (v *Viewer) ScrollTo(ctx context.Context, y float64) error {
	return v.call(ctx, func() { v.sched.ScrollTo(y) })
}

// ScrollBy moves the viewport by dy.
func (v *Viewer) ScrollBy(ctx context.Context, dy float64) error {
	return v.call(ctx, func() { v.sched.ScrollBy(dy) })
}

// Resize changes the container size. A fit descriptor in effect is
// re-resolved against the new size.
func (v *Viewer) Resize(ctx context.Context, width, height float64) error {
	return v.call(ctx, func() {
		v.container = zoom.Size{Width: width, Height: height}
		v.sched.Resize(width, height)
		v.refit()
	})
}

// refit recomputes fit scales and rescales when a fit descriptor is in
// effect and its factor changed; otherwise it just re-renders the window.
func (v *Viewer) refit() {
	if len(v.pages) == 0 {
		return
	}
	v.updateFitScales()
	if v.requested.IsFit() {
		if f := v.resolve(v.requested); f != v.scale {
			v.applyScale(f)
			return
		}
	}
	v.sched.Render(0)
}

// ApplySettings replaces the viewer settings. Scheduling settings and the
// fit margin take effect immediately; the text layer and initial scale
// apply to the next document opened.
func (v *Viewer) ApplySettings(ctx context.Context, st Settings) error {
	return v.call(ctx, func() {
		if st.LoadConcurrency <= 0 {
			st.LoadConcurrency = DefaultLoadConcurrency
		}
		if !validScale(st.InitialScale) {
			st.InitialScale = v.settings.InitialScale
		}
		v.settings = st
		v.sched.Configure(v.viewportSettings())
		v.logger.Debug("settings applied",
			"evict_distance", v.sched.Settings().EvictDistance,
			"prefetch", st.Prefetch,
			"page_gap", st.PageGap,
			"fit_margin", st.FitMargin,
		)
		v.refit()
	})
}

// Settings returns the active settings.
func (v *Viewer) Settings(ctx context.Context) (Settings, error) {
	var st Settings
	err := v.call(ctx, func() { st = v.settings })
	return st, err
}

// PageSnapshot is the observable state of one page.
type PageSnapshot struct {
	ID          int     `json:"id" yaml:"id"`
	State       string  `json:"state" yaml:"state"`
	Top         float64 `json:"top" yaml:"top"`
	Width       float64 `json:"width" yaml:"width"`
	Height      float64 `json:"height" yaml:"height"`
	HasText     bool    `json:"has_text" yaml:"has_text"`
	Highlighted bool    `json:"highlighted,omitempty" yaml:"highlighted,omitempty"`
}

// SearchSnapshot is the observable search state.
type SearchSnapshot struct {
	Term     string `json:"term,omitempty" yaml:"term,omitempty"`
	Total    int    `json:"total" yaml:"total"`
	Active   int    `json:"active" yaml:"active"`
	InFlight bool   `json:"in_flight,omitempty" yaml:"in_flight,omitempty"`
}

// Snapshot is a consistent view of the viewer state, taken on the loop.
type Snapshot struct {
	DocID       string            `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	NumPages    int               `json:"num_pages" yaml:"num_pages"`
	CurrentPage int               `json:"current_page" yaml:"current_page"`
	Zoom        Level             `json:"zoom" yaml:"zoom"`
	Viewport    viewport.Viewport `json:"viewport" yaml:"viewport"`
	Content     float64           `json:"content_height" yaml:"content_height"`
	Search      SearchSnapshot    `json:"search" yaml:"search"`
	Pages       []PageSnapshot    `json:"pages" yaml:"pages"`
}

// Snapshot returns the current viewer state.
func (v *Viewer) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := v.call(ctx, func() { snap = v.snapshot() })
	return snap, err
}

func (v *Viewer) snapshot() Snapshot {
	snap := Snapshot{
		NumPages:    len(v.pages),
		CurrentPage: v.sched.CurrentPage(),
		Zoom:        v.level(),
		Viewport:    v.sched.Viewport(),
		Content:     v.sched.ContentHeight(),
		Search: SearchSnapshot{
			Term:     v.session.Term(),
			Total:    len(v.session.Matches()),
			Active:   v.session.Active(),
			InFlight: v.session.InFlight(),
		},
		Pages: make([]PageSnapshot, len(v.pages)),
	}
	if v.doc != nil {
		snap.DocID = v.docID
	}
	for i, p := range v.pages {
		g := p.Geometry()
		_, hl := p.Highlighted()
		snap.Pages[i] = PageSnapshot{
			ID:          p.ID(),
			State:       p.State().String(),
			Top:         v.sched.PageTop(i),
			Width:       g.Width,
			Height:      g.Height,
			HasText:     p.HasText(),
			Highlighted: hl,
		}
	}
	return snap
}
