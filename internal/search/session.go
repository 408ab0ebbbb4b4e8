package search

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/pageview/internal/page"
)

// ErrInvalidSearchIndex is reported when navigation targets a result outside
// the current match set.
var ErrInvalidSearchIndex = errors.New("search result index out of range")

// State is the search status reported to the host.
type State string

const (
	StateSearching State = "searching"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateReset     State = "reset"
)

// Status is one search notification. Index is -1 when there is no result.
type Status struct {
	State State  `json:"state" yaml:"state"`
	Term  string `json:"term,omitempty" yaml:"term,omitempty"`
	Index int    `json:"index" yaml:"index"`
	Total int    `json:"total" yaml:"total"`
	Match *Match `json:"match,omitempty" yaml:"match,omitempty"`
	Err   error  `json:"-" yaml:"-"`
}

// Host gives the session access to the viewer's pages.
type Host interface {
	// Pages returns the loaded pages in document order.
	Pages() []*page.Page

	// RenderPage renders p at the current scale, calling onDone when it
	// settles (immediately if it is already rendered).
	RenderPage(p *page.Page, onDone func(page.Result)) page.Status

	// Reveal scrolls the viewport so r on page p is visible.
	Reveal(p *page.Page, r page.Rect)
}

// Config configures a new session.
type Config struct {
	Host     Host
	OnStatus func(Status)
	Logger   *slog.Logger
}

// Session is the search state of one document: the term, its matches and
// the highlighted match. Like Page it is confined to the viewer task queue.
type Session struct {
	host     Host
	onStatus func(Status)
	logger   *slog.Logger

	term     string
	matches  []Match
	active   int
	inFlight bool
	gen      int
}

// NewSession creates an empty session.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		host:     cfg.Host,
		onStatus: cfg.OnStatus,
		logger:   logger.With("component", "search"),
		active:   -1,
	}
}

// Term returns the active search term.
func (s *Session) Term() string { return s.term }

// Matches returns the current match set.
func (s *Session) Matches() []Match { return s.matches }

// Active returns the highlighted match index, or -1.
func (s *Session) Active() int { return s.active }

// InFlight reports whether a highlight is waiting for its page to render.
func (s *Session) InFlight() bool { return s.inFlight }

// Search replaces the term, rebuilds the match set and highlights the first
// match. An empty term resets the session.
func (s *Session) Search(term string) {
	s.clear()
	if term == "" {
		s.emit(Status{State: StateReset, Index: -1})
		return
	}

	s.term = term
	s.emit(Status{State: StateSearching, Term: term, Index: -1})

	if _, literal := Pattern(term); literal {
		s.logger.Debug("term is not a valid pattern, matching literally", "term", term)
	}
	s.matches = BuildIndex(term, s.host.Pages())
	s.logger.Debug("search index built", "term", term, "matches", len(s.matches))

	s.Highlight(0)
}

// Reset clears the term, the matches and the highlight.
func (s *Session) Reset() {
	s.clear()
	s.emit(Status{State: StateReset, Index: -1})
}

func (s *Session) clear() {
	s.clearHighlight()
	s.gen++
	s.term = ""
	s.matches = nil
	s.active = -1
	s.inFlight = false
}

func (s *Session) clearHighlight() {
	if s.active < 0 || s.active >= len(s.matches) {
		return
	}
	if p := s.pageFor(s.matches[s.active]); p != nil {
		p.ClearHighlight()
	}
}

func (s *Session) pageFor(m Match) *page.Page {
	pages := s.host.Pages()
	if m.PageID < 1 || m.PageID > len(pages) {
		return nil
	}
	return pages[m.PageID-1]
}

// Highlight moves the highlight to match i. If its page is not rendered it
// is rendered first; if that render is cancelled the previous active index
// is restored.
func (s *Session) Highlight(i int) {
	total := len(s.matches)
	if total == 0 {
		s.emit(Status{State: StateDone, Term: s.term, Index: -1})
		return
	}
	if i < 0 || i >= total {
		s.emit(Status{
			State: StateFailed,
			Term:  s.term,
			Index: s.active,
			Total: total,
			Err:   fmt.Errorf("%w: %d of %d", ErrInvalidSearchIndex, i, total),
		})
		return
	}
	if s.inFlight {
		s.logger.Debug("highlight already in flight", "requested", i)
		return
	}

	m := s.matches[i]
	p := s.pageFor(m)
	if p == nil {
		s.emit(Status{State: StateFailed, Term: s.term, Index: s.active, Total: total,
			Err: fmt.Errorf("%w: page %d", ErrInvalidSearchIndex, m.PageID)})
		return
	}

	prev := s.active
	s.clearHighlight()
	s.active = i
	s.inFlight = true
	gen := s.gen

	s.host.RenderPage(p, func(res page.Result) {
		if gen != s.gen {
			return
		}
		s.inFlight = false

		switch res.State {
		case page.Cancelled:
			s.logger.Debug("highlight render cancelled, keeping previous result", "requested", i, "active", prev)
			s.restore(prev)
			s.emit(s.doneStatus(prev))
			return
		case page.Failed:
			s.restore(prev)
			s.emit(Status{State: StateFailed, Term: s.term, Index: prev, Total: total, Err: res.Err})
			return
		}

		r, err := p.HighlightTextItem(m.ItemIndex, m.Offset, m.Length)
		if err != nil {
			s.restore(prev)
			s.emit(Status{State: StateFailed, Term: s.term, Index: prev, Total: total, Err: err})
			return
		}
		s.host.Reveal(p, r)
		s.emit(Status{State: StateDone, Term: s.term, Index: i, Total: total, Match: &m})
	})
}

// restore makes prev the active match again after a highlight attempt was
// abandoned, marking it again when its page is still rendered.
func (s *Session) restore(prev int) {
	s.active = prev
	if prev < 0 || prev >= len(s.matches) {
		return
	}
	m := s.matches[prev]
	p := s.pageFor(m)
	if p == nil || p.State() != page.Rendered {
		return
	}
	if _, err := p.HighlightTextItem(m.ItemIndex, m.Offset, m.Length); err != nil {
		s.logger.Debug("failed to restore previous highlight", "index", prev, "error", err)
	}
}

// doneStatus reports match i (or none, for -1) as the settled result.
func (s *Session) doneStatus(i int) Status {
	st := Status{State: StateDone, Term: s.term, Index: i, Total: len(s.matches)}
	if i >= 0 && i < len(s.matches) {
		m := s.matches[i]
		st.Match = &m
	}
	return st
}

// Pending returns the page a highlight is waiting on to render.
func (s *Session) Pending() (pageID int, ok bool) {
	if !s.inFlight || s.active < 0 || s.active >= len(s.matches) {
		return 0, false
	}
	return s.matches[s.active].PageID, true
}

// Target returns the match the session is showing or about to show.
func (s *Session) Target() int { return s.active }

// Reapply highlights match i again, normally the Target captured before the
// pages were cleared for a rescale.
func (s *Session) Reapply(i int) {
	if i < 0 || i >= len(s.matches) {
		return
	}
	s.Highlight(i)
}

// FindNext highlights the match after the active one, wrapping around.
// It does nothing while a previous highlight is still in flight.
func (s *Session) FindNext() {
	if s.inFlight {
		return
	}
	n := len(s.matches)
	if n == 0 {
		s.emit(Status{State: StateDone, Term: s.term, Index: -1})
		return
	}
	s.Highlight((s.active + 1) % n)
}

// FindPrev highlights the match before the active one, wrapping around.
func (s *Session) FindPrev() {
	if s.inFlight {
		return
	}
	n := len(s.matches)
	if n == 0 {
		s.emit(Status{State: StateDone, Term: s.term, Index: -1})
		return
	}
	prev := s.active - 1
	if prev < 0 {
		prev = n - 1
	}
	s.Highlight(prev)
}

func (s *Session) emit(st Status) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}
