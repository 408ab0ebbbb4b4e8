// Package fetch acquires document bytes from local files or http(s) URLs,
// reporting download progress as it reads.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/pageview/internal/source"
)

// ErrHTTPStatus is returned for non-2xx responses.
var ErrHTTPStatus = errors.New("unexpected http status")

// Defaults
const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// Config configures a Fetcher.
type Config struct {
	Timeout    time.Duration     // per attempt
	MaxRetries int               // retries after the first attempt; negative disables retrying
	RetryDelay time.Duration     // base delay, doubled per retry
	Headers    map[string]string // sent with every http request
	Client     *http.Client      // optional, built from Timeout when nil
	Logger     *slog.Logger
}

// Fetcher reads documents. It is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	headers    map[string]string
	logger     *slog.Logger
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		client:     client,
		maxRetries: retries,
		retryDelay: delay,
		headers:    cfg.Headers,
		logger:     logger.With("component", "fetch"),
	}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Fetch returns the bytes at location: an http(s) URL, a file:// URL or a
// local path. onProgress, if non-nil, is called as bytes arrive.
func (f *Fetcher) Fetch(ctx context.Context, location string, onProgress func(source.Progress)) ([]byte, error) {
	if IsRemote(location) {
		return f.fetchHTTP(ctx, location, onProgress)
	}
	return f.fetchFile(ctx, strings.TrimPrefix(location, "file://"), onProgress)
}

func (f *Fetcher) fetchFile(ctx context.Context, path string, onProgress func(source.Progress)) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	total := int64(-1)
	if info, err := file.Stat(); err == nil {
		total = info.Size()
	}
	data, err := readAll(ctx, file, total, onProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string, onProgress func(source.Progress)) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			for k, v := range f.headers {
				req.Header.Set(k, v)
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				statusErr := fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return statusErr
				}
				return retry.Unrecoverable(statusErr)
			}

			data, err = readAll(ctx, resp.Body, resp.ContentLength, onProgress)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.maxRetries+1)),
		retry.Delay(f.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn("fetch failed, retrying", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return data, nil
}

// readAll reads r to the end, reporting progress after every chunk. total
// is the expected size, or negative when unknown.
func readAll(ctx context.Context, r io.Reader, total int64, onProgress func(source.Progress)) ([]byte, error) {
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	chunk := make([]byte, 64*1024)
	var loaded int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			loaded += int64(n)
			if onProgress != nil {
				onProgress(source.Progress{Loaded: loaded, Total: total})
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
