package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackzampolin/pageview/internal/config"
	"github.com/jackzampolin/pageview/internal/fetch"
	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/pdfsource"
	"github.com/jackzampolin/pageview/internal/search"
	"github.com/jackzampolin/pageview/internal/source"
	"github.com/jackzampolin/pageview/internal/viewer"
)

// searchWait bounds how long commands wait for a search to settle.
const searchWait = 30 * time.Second

// sessionOptions configures startSession.
type sessionOptions struct {
	opener   source.Opener // default: PDF
	password source.PasswordFunc
	events   viewer.Events // SearchStatus is chained, not replaced
}

// session is a running viewer with its metrics and search notifications.
type session struct {
	viewer   *viewer.Viewer
	metrics  *metrics.Recorder
	logger   *slog.Logger
	searches chan search.Status

	cancel context.CancelFunc
	done   chan error
}

func startSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts sessionOptions) (*session, error) {
	st, err := cfg.ViewerSettings()
	if err != nil {
		logger.Warn("invalid initial scale, using fit width", "error", err)
	}
	opener := opts.opener
	if opener == nil {
		opener = pdfsource.NewOpener(logger)
	}

	s := &session{
		metrics:  metrics.NewRecorder(metrics.DefaultLimit),
		logger:   logger,
		searches: make(chan search.Status, 64),
		done:     make(chan error, 1),
	}
	events := opts.events
	chained := events.SearchStatus
	events.SearchStatus = func(st search.Status) {
		if chained != nil {
			chained(st)
		}
		select {
		case s.searches <- st:
		default:
			// Nobody is waiting; drop rather than block the viewer loop.
		}
	}

	v, err := viewer.New(viewer.Config{
		Opener:    opener,
		Fetcher:   fetch.New(cfg.FetchConfig(logger)),
		Password:  opts.password,
		Settings:  st,
		Container: cfg.Container(),
		Events:    events,
		Metrics:   s.metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	s.viewer = v

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() { s.done <- v.Run(runCtx) }()
	return s, nil
}

// Close stops the viewer loop and waits for it.
func (s *session) Close() error {
	s.cancel()
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// drainSearches discards search notifications nobody waited for.
func (s *session) drainSearches() {
	for {
		select {
		case <-s.searches:
		default:
			return
		}
	}
}

// waitSearch waits for the search of term to settle.
func (s *session) waitSearch(ctx context.Context, term string) (search.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, searchWait)
	defer cancel()
	for {
		select {
		case st := <-s.searches:
			if st.Term != term {
				continue
			}
			switch st.State {
			case search.StateDone:
				return st, nil
			case search.StateFailed:
				return st, st.Err
			}
		case <-ctx.Done():
			return search.Status{}, fmt.Errorf("waiting for search %q: %w", term, ctx.Err())
		}
	}
}

// flagPassword answers the first challenge with pw and gives up when it
// is rejected.
func flagPassword(pw string) source.PasswordFunc {
	if pw == "" {
		return nil
	}
	return func(reason source.PasswordReason) string {
		if reason == source.IncorrectPassword {
			return ""
		}
		return pw
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
