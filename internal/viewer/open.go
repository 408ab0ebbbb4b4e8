package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/page"
	"github.com/jackzampolin/pageview/internal/source"
)

// loadedPage is the metadata of one page, gathered before the page set is
// installed.
type loadedPage struct {
	src  source.Page
	unit source.Geometry
	text []source.TextItem
}

// loadParams are loop-owned settings captured when a load begins.
type loadParams struct {
	gen         int
	docID       string
	textLayer   bool
	concurrency int
	logger      *slog.Logger
}

// Open fetches location with the configured Fetcher and opens it. Any
// previously open document is discarded first: its pages are cleared, its
// in-flight renders cancelled and search reset.
//
// Open returns once the page set is installed; pages render asynchronously
// after that. Failures are also reported through Events.OpenFailed.
func (v *Viewer) Open(ctx context.Context, location string) error {
	if v.fetcher == nil {
		return errors.New("viewer: no fetcher configured")
	}
	lp, err := v.beginLoad(ctx)
	if err != nil {
		return err
	}
	lp.logger.Info("opening document", "location", location)

	start := time.Now()
	data, err := v.fetcher.Fetch(ctx, location, func(p source.Progress) {
		v.post(func() {
			if lp.gen == v.loadGen && v.events.Progress != nil {
				v.events.Progress(p)
			}
		})
	})
	v.metrics.RecordError(metrics.OpFetch, metrics.RecordOpts{DocID: lp.docID, Bytes: int64(len(data))}, err, time.Since(start))
	if err != nil {
		return v.fail(lp, fmt.Errorf("%w: %w", source.ErrDocumentOpenFailed, err))
	}
	return v.load(ctx, lp, data)
}

// OpenBytes opens an in-memory document. See Open.
func (v *Viewer) OpenBytes(ctx context.Context, data []byte) error {
	lp, err := v.beginLoad(ctx)
	if err != nil {
		return err
	}
	lp.logger.Info("opening document", "bytes", len(data))
	return v.load(ctx, lp, data)
}

// beginLoad tears down the current document and starts a new load
// generation. Loads from older generations never install their pages.
func (v *Viewer) beginLoad(ctx context.Context) (loadParams, error) {
	var lp loadParams
	err := v.call(ctx, func() {
		v.loadGen++
		v.teardown()
		v.docID = uuid.New().String()
		lp = loadParams{
			gen:         v.loadGen,
			docID:       v.docID,
			textLayer:   v.settings.TextLayer,
			concurrency: v.settings.LoadConcurrency,
			logger:      v.logger.With("doc_id", v.docID),
		}
	})
	return lp, err
}

// teardown discards the open document, if any.
func (v *Viewer) teardown() {
	if v.doc == nil && len(v.pages) == 0 {
		return
	}
	v.sched.Clear()
	v.session.Reset()
	v.pages = nil
	v.sched.SetPages(nil, v.scale)
	if v.doc != nil {
		if err := v.doc.Close(); err != nil {
			v.logger.Warn("failed to close document", "doc_id", v.docID, "error", err)
		}
		v.doc = nil
	}
}

func (v *Viewer) load(ctx context.Context, lp loadParams, data []byte) error {
	start := time.Now()
	doc, err := v.opener.Open(ctx, data, source.OpenOptions{Password: v.password})
	v.metrics.RecordError(metrics.OpOpen, metrics.RecordOpts{DocID: lp.docID, Bytes: int64(len(data))}, err, time.Since(start))
	if err != nil {
		return v.fail(lp, err)
	}

	loaded, err := v.loadPages(ctx, lp, doc)
	if err != nil {
		doc.Close()
		return v.fail(lp, fmt.Errorf("%w: %w", source.ErrDocumentOpenFailed, err))
	}

	// Installing is quick and must not be abandoned half way, so it ignores
	// ctx. installed is only read once the task ran or the loop stopped.
	installed := false
	err = v.call(context.Background(), func() {
		if lp.gen != v.loadGen {
			return
		}
		v.install(lp, doc, loaded)
		installed = true
	})
	if !installed {
		doc.Close()
		if err != nil {
			return err
		}
		lp.logger.Debug("load superseded by a newer document")
		return ErrSuperseded
	}
	lp.logger.Info("document loaded", "pages", len(loaded), "duration", time.Since(start))
	return nil
}

// fail reports a load failure once, unless a newer load replaced it.
func (v *Viewer) fail(lp loadParams, err error) error {
	lp.logger.Error("failed to open document", "error", err)
	_ = v.call(context.Background(), func() {
		if lp.gen == v.loadGen && v.events.OpenFailed != nil {
			v.events.OpenFailed(err)
		}
	})
	return err
}

// loadPages fetches geometry (and text, when the text layer is on) for
// every page concurrently. The result is complete or an error; a partial
// page set is never returned.
func (v *Viewer) loadPages(ctx context.Context, lp loadParams, doc source.Document) ([]loadedPage, error) {
	n := doc.NumPages()
	loaded := make([]loadedPage, n)
	if n == 0 {
		return loaded, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		index int
		err   error
	}
	results := make(chan result, n)
	sem := make(chan struct{}, lp.concurrency)

	launched := 0
launch:
	for i := 0; i < n; i++ {
		select {
		case sem <- struct{}{}: // acquire
		case <-ctx.Done():
			break launch
		}
		launched++
		go func(i int) {
			defer func() { <-sem }() // release
			p, err := v.loadPage(ctx, lp, doc, i)
			loaded[i] = p
			results <- result{index: i, err: err}
		}(i)
	}

	var firstErr error
	for i := 0; i < launched; i++ {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("page %d: %w", r.index+1, r.err)
			cancel()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if launched < n {
		return nil, ctx.Err()
	}
	return loaded, nil
}

func (v *Viewer) loadPage(ctx context.Context, lp loadParams, doc source.Document, i int) (loadedPage, error) {
	src, err := doc.Page(ctx, i)
	if err != nil {
		return loadedPage{}, err
	}
	unit, err := src.Geometry(ctx, 1.0)
	if err != nil {
		return loadedPage{}, fmt.Errorf("geometry: %w", err)
	}
	out := loadedPage{src: src, unit: unit}
	if !lp.textLayer {
		return out, nil
	}

	start := time.Now()
	items, err := src.TextContent(ctx)
	opts := metrics.RecordOpts{DocID: lp.docID, Page: i + 1}
	switch {
	case err == nil:
		if items == nil {
			items = []source.TextItem{}
		}
		out.text = items
		v.metrics.RecordOp(metrics.OpText, opts, metrics.Success, time.Since(start))
	case errors.Is(err, source.ErrNoTextContent):
		v.metrics.RecordOp(metrics.OpText, opts, metrics.Success, time.Since(start))
	case ctx.Err() != nil:
		return loadedPage{}, ctx.Err()
	default:
		// Text is optional; the page stays viewable without search.
		lp.logger.Warn("failed to load page text", "page", i+1, "error", err)
		v.metrics.RecordError(metrics.OpText, opts, err, time.Since(start))
	}
	return out, nil
}

// install builds the page set and renders the first screen. Runs on the
// loop.
func (v *Viewer) install(lp loadParams, doc source.Document, loaded []loadedPage) {
	pages := make([]*page.Page, len(loaded))
	for i, l := range loaded {
		pages[i] = page.New(page.Config{
			ID:     i + 1,
			Source: l.src,
			Unit:   l.unit,
			Text:   l.text,
			Post:   v.post,
			Logger: lp.logger,
			Hooks: page.Hooks{
				OnRendered: v.pageRendered,
				OnFailed:   v.pageFailed,
			},
		})
	}

	v.doc = doc
	v.pages = pages
	v.requested = v.settings.InitialScale
	v.updateFitScales()
	v.scale = v.resolve(v.requested)
	v.sched.SetPages(pages, v.scale)

	if v.events.Loaded != nil {
		v.events.Loaded(len(pages))
	}
	v.sched.Render(0)
}

func (v *Viewer) pageRendered(p *page.Page, res page.Result) {
	v.metrics.RecordOp(metrics.OpRender, metrics.RecordOpts{DocID: v.docID, Page: p.ID(), Scale: res.Scale}, metrics.Success, res.Duration)
	if v.events.PageRendered != nil {
		v.events.PageRendered(p.ID(), res)
	}
}

func (v *Viewer) pageFailed(p *page.Page, res page.Result) {
	v.metrics.RecordError(metrics.OpRender, metrics.RecordOpts{DocID: v.docID, Page: p.ID(), Scale: res.Scale}, res.Err, res.Duration)
	if v.events.PageRenderFailed != nil {
		v.events.PageRenderFailed(p.ID(), res.Err)
	}
}
