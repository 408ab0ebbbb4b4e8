// Package viewer ties a document source, the page lifecycle, the viewport
// scheduler and search together behind a single task queue.
//
// A Viewer owns one goroutine (started with Run) that performs every
// mutation of document, page, scheduler and search state. The exported
// methods post a closure to that goroutine and wait for it to finish, so
// they are safe to call from any goroutine. Work that blocks (fetching
// bytes, opening the document, loading page metadata, rendering) runs off
// the loop and posts its result back.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/page"
	"github.com/jackzampolin/pageview/internal/search"
	"github.com/jackzampolin/pageview/internal/source"
	"github.com/jackzampolin/pageview/internal/viewport"
	"github.com/jackzampolin/pageview/internal/zoom"
)

// Viewer errors
var (
	// ErrPageOutOfRange is returned for page numbers outside 1..NumPages.
	ErrPageOutOfRange = errors.New("page number out of range")

	// ErrNoDocument is returned by operations that need a loaded document.
	ErrNoDocument = errors.New("no document loaded")

	// ErrClosed is returned once the viewer loop has stopped.
	ErrClosed = errors.New("viewer closed")

	// ErrSuperseded is returned by Open when a newer Open replaced the load
	// before it completed.
	ErrSuperseded = errors.New("document load superseded")
)

// Fetcher acquires document bytes from a location, reporting progress.
type Fetcher interface {
	Fetch(ctx context.Context, location string, onProgress func(source.Progress)) ([]byte, error)
}

// Events receive viewer notifications. Every callback runs on the viewer
// loop and must not call back into the Viewer's exported methods.
type Events struct {
	Progress           func(p source.Progress)
	Loaded             func(numPages int)
	OpenFailed         func(err error)
	PageRendered       func(pageID int, res page.Result)
	PageRenderFailed   func(pageID int, err error)
	CurrentPageChanged func(pageID int)
	SearchStatus       func(st search.Status)
}

// Settings are the viewer tunables.
type Settings struct {
	InitialScale    zoom.Scale // scale requested for newly opened documents
	TextLayer       bool       // load text content for search and highlights
	EvictDistance   int
	Prefetch        bool
	PageGap         float64
	FitMargin       float64 // subtracted from the container before fit scales are computed
	LoadConcurrency int     // page metadata fetched in parallel
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		InitialScale:    zoom.FitWidth,
		TextLayer:       true,
		EvictDistance:   viewport.DefaultEvictDistance,
		Prefetch:        true,
		PageGap:         10,
		FitMargin:       20,
		LoadConcurrency: DefaultLoadConcurrency,
	}
}

// DefaultLoadConcurrency bounds parallel page metadata loads.
const DefaultLoadConcurrency = 8

// Config configures a new viewer.
type Config struct {
	Opener    source.Opener
	Fetcher   Fetcher // required only for Open; OpenBytes works without one
	Password  source.PasswordFunc
	Settings  Settings
	Container zoom.Size
	Events    Events
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	QueueSize int // task queue buffer (default 256)
}

// Viewer is an embeddable document viewer core.
type Viewer struct {
	opener    source.Opener
	fetcher   Fetcher
	password  source.PasswordFunc
	events    Events
	metrics   *metrics.Recorder
	logger    *slog.Logger
	tasks     chan func()
	done      chan struct{}
	started   atomic.Bool

	// Owned by the loop.
	settings  Settings
	container zoom.Size
	doc       source.Document
	docID     string
	pages     []*page.Page
	sched     *viewport.Scheduler
	session   *search.Session
	requested zoom.Scale
	scale     float64
	fitWidth  float64
	fitPage   float64
	loadGen   int
}

// New creates a viewer. Call Run to start its loop.
func New(cfg Config) (*Viewer, error) {
	if cfg.Opener == nil {
		return nil, errors.New("viewer: document opener is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	st := cfg.Settings
	if st.LoadConcurrency <= 0 {
		st.LoadConcurrency = DefaultLoadConcurrency
	}
	if !validScale(st.InitialScale) {
		st.InitialScale = zoom.FitWidth
	}

	v := &Viewer{
		opener:    cfg.Opener,
		fetcher:   cfg.Fetcher,
		password:  cfg.Password,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "viewer"),
		tasks:     make(chan func(), queueSize),
		done:      make(chan struct{}),
		settings:  st,
		container: cfg.Container,
		requested: st.InitialScale,
		scale:     1.0,
		fitWidth:  1.0,
		fitPage:   1.0,
	}
	v.sched = viewport.New(viewport.Config{
		Settings:             v.viewportSettings(),
		OnCurrentPageChanged: v.currentPageChanged,
		Keep:                 v.pendingHighlight,
		Logger:               logger,
	})
	v.sched.Resize(cfg.Container.Width, cfg.Container.Height)
	v.session = search.NewSession(search.Config{
		Host:     searchHost{v},
		OnStatus: v.searchStatus,
		Logger:   logger,
	})
	return v, nil
}

// validScale reports whether s was built by zoom, rather than being the
// zero Scale.
func validScale(s zoom.Scale) bool {
	return s.IsFit() || s.Value() > 0
}

func (v *Viewer) viewportSettings() viewport.Settings {
	return viewport.Settings{
		EvictDistance: v.settings.EvictDistance,
		Prefetch:      v.settings.Prefetch,
		PageGap:       v.settings.PageGap,
	}
}

// Run processes viewer tasks until ctx is cancelled, then cancels every
// in-flight render and closes the document. Call this in a goroutine.
func (v *Viewer) Run(ctx context.Context) error {
	if !v.started.CompareAndSwap(false, true) {
		return errors.New("viewer: Run called twice")
	}
	v.logger.Debug("viewer loop started")
	defer close(v.done)

	for {
		select {
		case <-ctx.Done():
			v.shutdown()
			v.logger.Debug("viewer loop stopped")
			return ctx.Err()
		case fn := <-v.tasks:
			fn()
		}
	}
}

func (v *Viewer) shutdown() {
	v.loadGen++
	v.sched.Clear()
	if v.doc != nil {
		if err := v.doc.Close(); err != nil {
			v.logger.Warn("failed to close document", "doc_id", v.docID, "error", err)
		}
		v.doc = nil
	}
}

// post schedules fn on the loop without waiting. Tasks posted after the
// loop stopped are dropped.
func (v *Viewer) post(fn func()) {
	select {
	case v.tasks <- fn:
	case <-v.done:
	}
}

// call runs fn on the loop and waits for it to return.
func (v *Viewer) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case v.tasks <- task:
	case <-v.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-v.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callErr runs fn on the loop and returns its error.
func (v *Viewer) callErr(ctx context.Context, fn func() error) error {
	var err error
	if cerr := v.call(ctx, func() { err = fn() }); cerr != nil {
		return cerr
	}
	return err
}

func (v *Viewer) currentPageChanged(id int) {
	if v.events.CurrentPageChanged != nil {
		v.events.CurrentPageChanged(id)
	}
}

// pendingHighlight keeps the page a search highlight waits on from being
// evicted, so the highlight can settle wherever the viewport is.
func (v *Viewer) pendingHighlight(pageID int) bool {
	if v.session == nil {
		return false
	}
	id, ok := v.session.Pending()
	return ok && id == pageID
}

func (v *Viewer) searchStatus(st search.Status) {
	if st.State == search.StateFailed {
		v.logger.Debug("search navigation failed", "term", st.Term, "error", st.Err)
	}
	if v.events.SearchStatus != nil {
		v.events.SearchStatus(st)
	}
}

// searchHost adapts the viewer to search.Host. Its methods run on the loop.
type searchHost struct{ v *Viewer }

func (h searchHost) Pages() []*page.Page { return h.v.pages }

func (h searchHost) RenderPage(p *page.Page, onDone func(page.Result)) page.Status {
	return p.Render(h.v.scale, onDone)
}

func (h searchHost) Reveal(p *page.Page, r page.Rect) { h.v.sched.Reveal(p, r) }
