package viewport

import (
	"testing"
	"time"

	"github.com/jackzampolin/pageview/internal/page"
	"github.com/jackzampolin/pageview/internal/source"
)

type harness struct {
	tasks   chan func()
	pages   []*page.Page
	srcs    []*source.MockPage
	changes []int
	s       *Scheduler
}

// newHarness lays out n pages of 100x100 with no gap in a 100x150 viewport.
func newHarness(t *testing.T, n int, st Settings) *harness {
	t.Helper()
	h := &harness{tasks: make(chan func(), 256)}
	for i := 0; i < n; i++ {
		src := source.NewMockPage(i, 100, 100)
		h.srcs = append(h.srcs, src)
		h.pages = append(h.pages, page.New(page.Config{
			ID:     i + 1,
			Source: src,
			Unit:   src.Size,
			Post:   func(fn func()) { h.tasks <- fn },
		}))
	}
	h.s = New(Config{
		Settings:             st,
		OnCurrentPageChanged: func(id int) { h.changes = append(h.changes, id) },
	})
	h.s.Resize(100, 150)
	h.s.SetPages(h.pages, 1)
	return h
}

// settle runs posted completions until no page is rendering.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	for {
		busy := false
		for _, p := range h.pages {
			if p.State() == page.Rendering {
				busy = true
				break
			}
		}
		if !busy {
			return
		}
		select {
		case fn := <-h.tasks:
			fn()
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for renders to settle")
		}
	}
}

func (h *harness) rendered() []int {
	var ids []int
	for _, p := range h.pages {
		if p.State() == page.Rendered {
			ids = append(ids, p.ID())
		}
	}
	return ids
}

func TestScheduler_RendersVisibleRun(t *testing.T) {
	h := newHarness(t, 10, Settings{})

	w := h.s.Render(0)
	if w.First != 0 || w.Last != 1 {
		t.Fatalf("Render(0) window = %+v, want 0..1", w)
	}
	h.settle(t)

	got := h.rendered()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("rendered pages = %v, want [1 2]", got)
	}
	if h.s.CurrentPage() != 1 {
		t.Errorf("CurrentPage() = %d, want 1", h.s.CurrentPage())
	}
	if len(h.changes) != 1 || h.changes[0] != 1 {
		t.Errorf("current page notifications = %v, want [1]", h.changes)
	}

	// A second pass over the same window starts nothing new.
	h.s.Render(0)
	if len(h.changes) != 1 {
		t.Errorf("notifications after repeat = %v, want unchanged", h.changes)
	}
	for _, src := range h.srcs[:2] {
		if src.Renders() != 1 {
			t.Errorf("%s renders = %d, want 1", src.Ref(), src.Renders())
		}
	}
}

func TestScheduler_Prefetch(t *testing.T) {
	tests := []struct {
		name     string
		prefetch bool
		from, to float64
		want     []int
	}{
		{name: "scroll down prefetches next", prefetch: true, from: 0, to: 420, want: []int{5, 6, 7}},
		{name: "scroll up prefetches previous", prefetch: true, from: 600, to: 420, want: []int{4, 5, 6}},
		{name: "disabled", prefetch: false, from: 0, to: 420, want: []int{5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 12, Settings{Prefetch: tt.prefetch})
			h.s.ScrollTo(tt.from)
			h.settle(t)
			for _, p := range h.pages {
				p.Clear()
			}

			h.s.ScrollTo(tt.to)
			h.settle(t)

			got := h.rendered()
			if len(got) != len(tt.want) {
				t.Fatalf("rendered = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("rendered = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestScheduler_EvictsDistantPages(t *testing.T) {
	h := newHarness(t, 30, Settings{EvictDistance: 5, Prefetch: true})

	for top := 0.0; top <= 2000; top += 75 {
		h.s.ScrollTo(top)
		h.settle(t)

		cur := h.s.CurrentPage() - 1
		for i, p := range h.pages {
			d := i - cur
			if d < 0 {
				d = -d
			}
			if d > 5 && p.State() != page.NotRendered {
				t.Fatalf("scrollTop %v: page %d is %s at distance %d from current page %d",
					top, p.ID(), p.State(), d, cur+1)
			}
		}
	}
}

func TestScheduler_CurrentPage(t *testing.T) {
	h := newHarness(t, 10, Settings{PageGap: 10})

	h.s.ScrollTo(350)
	if h.s.CurrentPage() != 4 {
		t.Errorf("CurrentPage() at 350 = %d, want 4", h.s.CurrentPage())
	}
	h.s.GoTo(7)
	if h.s.CurrentPage() != 8 {
		t.Errorf("CurrentPage() after GoTo(7) = %d, want 8", h.s.CurrentPage())
	}
	want := []int{4, 8}
	if len(h.changes) != len(want) || h.changes[0] != 4 || h.changes[1] != 8 {
		t.Errorf("notifications = %v, want %v", h.changes, want)
	}
	h.settle(t)
}

func TestScheduler_CurrentPageWithoutGap(t *testing.T) {
	h := newHarness(t, 10, Settings{})

	for i := 4; i < 8; i++ {
		h.s.GoTo(i)
		if got := h.s.CurrentPage(); got != i+1 {
			t.Fatalf("CurrentPage() after GoTo(%d) = %d, want %d", i, got, i+1)
		}
		// The page above still touches the top edge and is rendered.
		if w := h.s.VisibleWindow(); w.First != i-1 {
			t.Errorf("window after GoTo(%d) = %+v, want first %d", i, w, i-1)
		}
	}

	// The whole first page scrolled off except for its bottom edge.
	h.s.ScrollTo(100)
	if got := h.s.CurrentPage(); got != 2 {
		t.Errorf("CurrentPage() at 100 = %d, want 2", got)
	}
	h.settle(t)
}

func TestScheduler_KeepExemptsFromEviction(t *testing.T) {
	h := newHarness(t, 30, Settings{EvictDistance: 2})
	kept := 20
	h.s.keep = func(id int) bool { return id == kept }

	h.pages[kept-1].Render(1, nil)
	h.settle(t)
	h.pages[25].Render(1, nil)
	h.settle(t)

	h.s.Render(0)
	if got := h.pages[kept-1].State(); got != page.Rendered {
		t.Errorf("kept page %d is %s, want rendered", kept, got)
	}
	if got := h.pages[25].State(); got != page.NotRendered {
		t.Errorf("page 26 is %s, want evicted", got)
	}
	h.settle(t)
}

func TestScheduler_ScrollClamped(t *testing.T) {
	h := newHarness(t, 20, Settings{})

	h.s.ScrollTo(-10)
	if got := h.s.Viewport().ScrollTop; got != 0 {
		t.Errorf("ScrollTop = %v, want 0", got)
	}
	h.s.ScrollTo(1e6)
	if got := h.s.Viewport().ScrollTop; got != 1850 {
		t.Errorf("ScrollTop = %v, want 1850", got)
	}
	h.s.ScrollBy(-50)
	if got := h.s.Viewport().ScrollTop; got != 1800 {
		t.Errorf("ScrollTop after ScrollBy = %v, want 1800", got)
	}
	h.settle(t)
}

func TestScheduler_PageGapLayout(t *testing.T) {
	h := newHarness(t, 3, Settings{PageGap: 10})
	if got := h.s.PageTop(2); got != 220 {
		t.Errorf("PageTop(2) = %v, want 220", got)
	}
	if got := h.s.ContentHeight(); got != 330 {
		t.Errorf("ContentHeight() = %v, want 330", got)
	}
}

func TestScheduler_SetScaleKeepsAnchor(t *testing.T) {
	h := newHarness(t, 10, Settings{})
	h.s.ScrollTo(250)
	h.settle(t)

	reapplied := 0
	h.s.SetScale(2, func() { reapplied++ })

	if reapplied != 1 {
		t.Errorf("reapply calls = %d, want 1", reapplied)
	}
	if got := h.s.Viewport().ScrollTop; got != 500 {
		t.Errorf("ScrollTop = %v, want 500", got)
	}
	for _, p := range h.pages {
		if p.Scale() != 2 {
			t.Fatalf("page %d scale = %v, want 2", p.ID(), p.Scale())
		}
	}
	h.settle(t)
	for _, id := range h.rendered() {
		if g := h.pages[id-1].Surface().Bounds(); g.Dx() != 200 {
			t.Errorf("page %d surface width = %d, want 200", id, g.Dx())
		}
	}
}

func TestScheduler_Reveal(t *testing.T) {
	h := newHarness(t, 10, Settings{})

	h.s.Reveal(h.pages[4], page.Rect{Y: 50, Height: 10})
	if got := h.s.Viewport().ScrollTop; got != 400 {
		t.Fatalf("ScrollTop after reveal = %v, want 400", got)
	}

	h.s.Reveal(h.pages[4], page.Rect{Y: 10, Height: 10})
	if got := h.s.Viewport().ScrollTop; got != 400 {
		t.Errorf("visible rect moved viewport to %v", got)
	}
	h.settle(t)
}
