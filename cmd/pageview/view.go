package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageview/internal/config"
	"github.com/jackzampolin/pageview/internal/page"
	"github.com/jackzampolin/pageview/internal/source"
	"github.com/jackzampolin/pageview/internal/viewer"
	"github.com/jackzampolin/pageview/internal/zoom"
)

var viewCmd = &cobra.Command{
	Use:   "view [file|url]",
	Short: "Interactive viewing session over stdin",
	Long: `Start a headless viewer and drive it with line commands read from stdin
(type help for the list). Render and navigation events are logged at debug
level. Edits to the config file are applied to the running viewer.

Examples:
  pageview view report.pdf
  echo -e "goto 3\nzoom in\nfind revenue\nstate" | pageview view report.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		lines := readLines(ctx, os.Stdin)
		pw := flagPassword(password)
		if pw == nil {
			pw = promptPassword(cmd.ErrOrStderr(), lines)
		}
		s, err := startSession(ctx, env.config.Get(), env.logger, sessionOptions{
			password: pw,
			events:   logEvents(env),
		})
		if err != nil {
			return err
		}
		defer s.Close()

		env.config.OnChange(func(c *config.Config) { applyConfig(ctx, s, c) })
		env.config.WatchConfig()

		r := &repl{s: s, out: cmd.OutOrStdout()}
		if len(args) == 1 {
			if err := r.exec(ctx, "open "+args[0]); err != nil {
				return err
			}
		}
		return runREPL(ctx, r, lines, cmd.ErrOrStderr())
	},
}

// runREPL executes lines until quit, end of input or ctx is done. Command
// errors are printed and do not end the session.
func runREPL(ctx context.Context, r *repl, lines <-chan string, errOut io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := r.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
			}
		}
	}
}

// readLines delivers the lines of in until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// promptPassword asks for a password on w and reads the answer from lines.
// End of input answers "", which gives up.
func promptPassword(w io.Writer, lines <-chan string) source.PasswordFunc {
	return func(reason source.PasswordReason) string {
		if reason == source.IncorrectPassword {
			fmt.Fprint(w, "incorrect password, try again: ")
		} else {
			fmt.Fprint(w, "password: ")
		}
		return <-lines
	}
}

// applyConfig pushes a reloaded config into the running viewer.
func applyConfig(ctx context.Context, s *session, c *config.Config) {
	st, err := c.ViewerSettings()
	if err != nil {
		s.logger.Warn("invalid initial scale in reloaded config, keeping the previous one", "error", err)
		st.InitialScale = zoom.Scale{}
	}
	if err := s.viewer.ApplySettings(ctx, st); err != nil {
		s.logger.Warn("failed to apply settings", "error", err)
		return
	}
	size := c.Container()
	if err := s.viewer.Resize(ctx, size.Width, size.Height); err != nil {
		s.logger.Warn("failed to resize container", "error", err)
	}
}

// logEvents logs viewer notifications at debug level.
func logEvents(env *environment) viewer.Events {
	log := env.logger.With("component", "view")
	return viewer.Events{
		Progress: func(p source.Progress) {
			log.Debug("download progress", "loaded", p.Loaded, "total", p.EstimatedTotal())
		},
		Loaded:     func(n int) { log.Debug("document loaded", "pages", n) },
		OpenFailed: func(err error) { log.Debug("document open failed", "error", err) },
		PageRendered: func(id int, res page.Result) {
			log.Debug("page rendered", "page", id, "scale", res.Scale, "duration", res.Duration)
		},
		PageRenderFailed: func(id int, err error) {
			log.Warn("page render failed", "page", id, "error", err)
		},
		CurrentPageChanged: func(id int) { log.Debug("current page changed", "page", id) },
	}
}
