package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackzampolin/pageview/internal/metrics"
	"github.com/jackzampolin/pageview/internal/output"
	"github.com/jackzampolin/pageview/internal/zoom"
)

// errQuit ends the session.
var errQuit = errors.New("quit")

const replHelp = `commands:
  open <file|url>       replace the document
  next | prev           move one page
  goto <n>              go to page n
  scroll <dy>           scroll by dy pixels
  scrollto <y>          scroll to y
  resize <w> <h>        resize the container
  zoom in|out|<scale>   zoom a step or to a scale (1.5, 150%, fit_width, fit_page)
  find <term>           search and highlight the first match
  n | p                 next or previous match
  reset                 clear the search
  text <n>              print the text items of page n
  state                 print the viewer state
  metrics               print render metrics
  quit`

// repl executes view commands against a session.
type repl struct {
	s   *session
	out io.Writer
}

// exec runs one command line. It returns errQuit for quit.
func (r *repl) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	v := r.s.viewer

	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "open":
		if len(args) != 1 {
			return errors.New("usage: open <file|url>")
		}
		if err := v.Open(ctx, args[0]); err != nil {
			return err
		}
		return r.printPosition(ctx)
	case "next":
		if err := v.GoToNextPage(ctx); err != nil {
			return err
		}
		return r.printPosition(ctx)
	case "prev":
		if err := v.GoToPrevPage(ctx); err != nil {
			return err
		}
		return r.printPosition(ctx)
	case "goto":
		n, err := intArg(args, "goto <n>")
		if err != nil {
			return err
		}
		if err := v.GoToPage(ctx, n); err != nil {
			return err
		}
		return r.printPosition(ctx)
	case "scroll", "scrollto":
		y, err := floatArgs(args, 1, cmd+" <pixels>")
		if err != nil {
			return err
		}
		if cmd == "scroll" {
			err = v.ScrollBy(ctx, y[0])
		} else {
			err = v.ScrollTo(ctx, y[0])
		}
		if err != nil {
			return err
		}
		return r.printPosition(ctx)
	case "resize":
		wh, err := floatArgs(args, 2, "resize <w> <h>")
		if err != nil {
			return err
		}
		if err := v.Resize(ctx, wh[0], wh[1]); err != nil {
			return err
		}
		return r.printZoom(ctx)
	case "zoom":
		return r.zoom(ctx, args)
	case "find":
		if len(args) == 0 {
			return errors.New("usage: find <term>")
		}
		term := strings.Join(args, " ")
		r.s.drainSearches()
		if err := v.Search(ctx, term); err != nil {
			return err
		}
		return r.printMatch(ctx, term)
	case "n", "p":
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return err
		}
		if snap.Search.Term == "" {
			return errors.New("no active search")
		}
		r.s.drainSearches()
		if cmd == "n" {
			err = v.FindNext(ctx)
		} else {
			err = v.FindPrev(ctx)
		}
		if err != nil {
			return err
		}
		return r.printMatch(ctx, snap.Search.Term)
	case "reset":
		return v.ResetSearch(ctx)
	case "text":
		n, err := intArg(args, "text <n>")
		if err != nil {
			return err
		}
		texts, err := v.PageText(ctx, n)
		if err != nil {
			return err
		}
		for i, t := range texts {
			fmt.Fprintf(r.out, "%4d  %s\n", i, t)
		}
		return nil
	case "state":
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return err
		}
		return output.WriteTo(r.out, output.GetFormat(), snap)
	case "metrics":
		return output.WriteTo(r.out, output.GetFormat(), r.s.metrics.Breakdown(metrics.Filter{}))
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (r *repl) zoom(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: zoom in|out|<scale>")
	}
	v := r.s.viewer
	switch args[0] {
	case "in":
		if _, err := v.ZoomIn(ctx); err != nil {
			return err
		}
	case "out":
		if _, err := v.ZoomOut(ctx); err != nil {
			return err
		}
	default:
		s, err := zoom.Parse(args[0])
		if err != nil {
			return err
		}
		if err := v.ZoomTo(ctx, s); err != nil {
			return err
		}
	}
	return r.printZoom(ctx)
}

func (r *repl) printPosition(ctx context.Context) error {
	snap, err := r.s.viewer.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "page %d of %d (scroll %.0f)\n", snap.CurrentPage, snap.NumPages, snap.Viewport.ScrollTop)
	return nil
}

func (r *repl) printZoom(ctx context.Context) error {
	lvl, err := r.s.viewer.ZoomLevel(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "zoom %s (%.4g)\n", lvl.Label, lvl.Scale)
	return nil
}

func (r *repl) printMatch(ctx context.Context, term string) error {
	st, err := r.s.waitSearch(ctx, term)
	if err != nil {
		return err
	}
	if st.Match == nil {
		if st.Total > 0 {
			fmt.Fprintf(r.out, "%d matches for %q, none highlighted\n", st.Total, term)
			return nil
		}
		fmt.Fprintf(r.out, "no matches for %q\n", term)
		return nil
	}
	cur, err := r.s.viewer.CurrentPage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "match %d of %d on page %d (current page %d)\n", st.Index+1, st.Total, st.Match.PageID, cur)
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return n, nil
}

func floatArgs(args []string, n int, usage string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("usage: %s", usage)
		}
		out[i] = f
	}
	return out, nil
}
