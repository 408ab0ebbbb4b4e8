// Package viewport decides which pages to render and which to discard as the
// viewport scrolls or the scale changes.
//
// Pages are laid out in a single column, strictly in document order, so the
// visible set is always a contiguous run. The scheduler scans from the top
// and stops at the first invisible page after the run, keeping each scroll
// event proportional to the visible window rather than the document.
package viewport

import (
	"log/slog"
	"math"

	"github.com/jackzampolin/pageview/internal/page"
)

// DefaultEvictDistance is how many pages on each side of the current page
// keep their rendered output.
const DefaultEvictDistance = 5

// Viewport is the visible window of the scroll container.
type Viewport struct {
	ScrollTop float64 `json:"scroll_top" yaml:"scroll_top"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
}

// Window is the run of visible page indexes (0-based, inclusive). Both are
// -1 when nothing is visible.
type Window struct {
	First int
	Last  int
}

// Empty reports whether no page is visible.
func (w Window) Empty() bool { return w.First < 0 }

// Settings are the tunables that can change while a document is open.
type Settings struct {
	EvictDistance int
	Prefetch      bool
	PageGap       float64
}

// Config configures a new scheduler.
type Config struct {
	Settings
	OnCurrentPageChanged func(pageID int)

	// Keep, when set, exempts pages from eviction, e.g. the page a search
	// highlight is waiting on.
	Keep func(pageID int) bool

	Logger *slog.Logger
}

// Scheduler lays out pages and drives their rendering. It is confined to the
// viewer task queue, like the pages it drives.
type Scheduler struct {
	settings Settings
	onChange func(int)
	keep     func(int) bool
	logger   *slog.Logger

	pages         []*page.Page
	tops          []float64
	contentHeight float64
	scale         float64
	vp            Viewport
	current       int // index of the current page, -1 for none
	window        Window
}

// New creates a scheduler with no pages.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		onChange: cfg.OnCurrentPageChanged,
		keep:     cfg.Keep,
		logger:   logger.With("component", "viewport"),
		scale:    1.0,
		current:  -1,
		window:   Window{-1, -1},
	}
	s.Configure(cfg.Settings)
	return s
}

// Configure replaces the scheduler settings and relays out the pages.
func (s *Scheduler) Configure(st Settings) {
	if st.EvictDistance <= 0 {
		st.EvictDistance = DefaultEvictDistance
	}
	if st.PageGap < 0 {
		st.PageGap = 0
	}
	s.settings = st
	s.relayout()
}

// Settings returns the active settings.
func (s *Scheduler) Settings() Settings { return s.settings }

// SetPages installs a new page set at scale, scrolled to the top. Pages are
// expected to be NotRendered.
func (s *Scheduler) SetPages(pages []*page.Page, scale float64) {
	s.pages = pages
	s.scale = scale
	for _, p := range pages {
		p.Resize(scale)
	}
	s.vp.ScrollTop = 0
	s.current = -1
	s.window = Window{-1, -1}
	s.relayout()
}

// Pages returns the page set.
func (s *Scheduler) Pages() []*page.Page { return s.pages }

// Scale returns the scale pages are laid out at.
func (s *Scheduler) Scale() float64 { return s.scale }

// Viewport returns the visible window.
func (s *Scheduler) Viewport() Viewport { return s.vp }

// VisibleWindow returns the window found by the last Render.
func (s *Scheduler) VisibleWindow() Window { return s.window }

// ContentHeight returns the height of the laid out column.
func (s *Scheduler) ContentHeight() float64 { return s.contentHeight }

// PageTop returns the offset of the top of page index i.
func (s *Scheduler) PageTop(i int) float64 {
	if i < 0 || i >= len(s.tops) {
		return 0
	}
	return s.tops[i]
}

// CurrentPage returns the 1-based current page, or 0 when none.
func (s *Scheduler) CurrentPage() int { return s.current + 1 }

// Resize changes the viewport dimensions without rendering.
func (s *Scheduler) Resize(width, height float64) {
	s.vp.Width = width
	s.vp.Height = height
	s.vp.ScrollTop = s.clamp(s.vp.ScrollTop)
}

func (s *Scheduler) relayout() {
	s.tops = make([]float64, len(s.pages))
	y := 0.0
	for i, p := range s.pages {
		s.tops[i] = y
		y += p.Geometry().Height + s.settings.PageGap
	}
	s.contentHeight = y
}

func (s *Scheduler) clamp(top float64) float64 {
	maxTop := math.Max(0, s.contentHeight-s.vp.Height)
	return math.Min(math.Max(top, 0), maxTop)
}

func (s *Scheduler) visible(i int) bool {
	top := s.tops[i]
	bottom := top + s.pages[i].Geometry().Height
	return bottom >= s.vp.ScrollTop && top <= s.vp.ScrollTop+s.vp.Height
}

// Render renders every visible page, prefetches one page beyond the visible
// run in the scroll direction (when direction is non-zero), and evicts
// pages farther than the eviction distance from the current page.
func (s *Scheduler) Render(direction int) Window {
	w := Window{-1, -1}
	for i := range s.pages {
		if s.visible(i) {
			if w.First < 0 {
				w.First = i
			}
			w.Last = i
			continue
		}
		if w.First >= 0 {
			break
		}
	}
	s.window = w
	if w.Empty() {
		return w
	}

	s.updateCurrent(w)

	for i := w.First; i <= w.Last; i++ {
		s.pages[i].Render(s.scale, nil)
	}

	if s.settings.Prefetch {
		switch {
		case direction > 0 && w.Last+1 < len(s.pages):
			s.pages[w.Last+1].Render(s.scale, nil)
		case direction < 0 && w.First > 0:
			s.pages[w.First-1].Render(s.scale, nil)
		}
	}

	s.evict()
	return w
}

// updateCurrent picks the first visible page whose top is at or above the
// viewport midpoint, falling back to the first visible page. A page whose
// bottom only touches the viewport top is visible for rendering but never
// current, so GoTo(i) makes page i current even without a page gap.
func (s *Scheduler) updateCurrent(w Window) {
	mid := s.vp.ScrollTop + s.vp.Height/2
	first := w.First
	if first < w.Last && s.tops[first]+s.pages[first].Geometry().Height <= s.vp.ScrollTop {
		first++
	}
	cur := first
	for i := first; i <= w.Last; i++ {
		if s.tops[i] <= mid {
			cur = i
			break
		}
	}
	if cur == s.current {
		return
	}
	s.current = cur
	s.logger.Debug("current page changed", "page", cur+1)
	if s.onChange != nil {
		s.onChange(cur + 1)
	}
}

func (s *Scheduler) evict() {
	d := s.settings.EvictDistance
	for i, p := range s.pages {
		if abs(i-s.current) <= d || p.State() == page.NotRendered {
			continue
		}
		if s.keep != nil && s.keep(p.ID()) {
			continue
		}
		p.Clear()
	}
}

// ScrollTo moves the viewport top (clamped to the content) and renders,
// prefetching in the direction of the move.
func (s *Scheduler) ScrollTo(top float64) Window {
	top = s.clamp(top)
	dir := 0
	switch {
	case top > s.vp.ScrollTop:
		dir = 1
	case top < s.vp.ScrollTop:
		dir = -1
	}
	s.vp.ScrollTop = top
	return s.Render(dir)
}

// ScrollBy moves the viewport by dy.
func (s *Scheduler) ScrollBy(dy float64) Window {
	return s.ScrollTo(s.vp.ScrollTop + dy)
}

// GoTo scrolls the top of page index i to the top of the viewport.
func (s *Scheduler) GoTo(i int) Window {
	return s.ScrollTo(s.PageTop(i))
}

// Reveal scrolls r (page-local) on p into view. A rectangle that is already
// fully visible leaves the viewport where it is; otherwise it is placed a
// third of the way down so surrounding context stays on screen.
func (s *Scheduler) Reveal(p *page.Page, r page.Rect) {
	i := p.ID() - 1
	if i < 0 || i >= len(s.pages) {
		return
	}
	top := s.tops[i] + r.Y
	bottom := top + r.Height
	if top >= s.vp.ScrollTop && bottom <= s.vp.ScrollTop+s.vp.Height {
		return
	}
	s.ScrollTo(top - s.vp.Height/3)
}

// SetScale clears and resizes every page, keeps the viewport anchored to the
// same relative position within the current page, calls reapply (used to
// restore the search highlight), and renders the visible pages.
func (s *Scheduler) SetScale(scale float64, reapply func()) Window {
	anchor, frac := s.current, 0.0
	if anchor >= 0 && anchor < len(s.pages) {
		if h := s.pages[anchor].Geometry().Height; h > 0 {
			frac = (s.vp.ScrollTop - s.tops[anchor]) / h
		}
	}

	for _, p := range s.pages {
		p.Clear()
		p.Resize(scale)
	}
	s.scale = scale
	s.relayout()

	if anchor >= 0 && anchor < len(s.pages) {
		s.vp.ScrollTop = s.clamp(s.tops[anchor] + frac*s.pages[anchor].Geometry().Height)
	} else {
		s.vp.ScrollTop = s.clamp(s.vp.ScrollTop)
	}

	if reapply != nil {
		reapply()
	}
	return s.Render(0)
}

// Clear cancels and drops the output of every page.
func (s *Scheduler) Clear() {
	for _, p := range s.pages {
		p.Clear()
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
