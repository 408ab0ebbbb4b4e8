package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/pageview/internal/source"
)

func TestFetch_HTTP(t *testing.T) {
	body := strings.Repeat("x", 200*1024)
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := New(Config{Headers: map[string]string{"Authorization": "Bearer token"}})
	var progress []source.Progress
	data, err := f.Fetch(context.Background(), srv.URL+"/doc.pdf", func(p source.Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != body {
		t.Errorf("Fetch() returned %d bytes, want %d", len(data), len(body))
	}
	if gotAuth := <-auth; gotAuth != "Bearer token" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if len(progress) == 0 {
		t.Fatal("no progress reported")
	}
	last := progress[len(progress)-1]
	if last.Loaded != int64(len(body)) {
		t.Errorf("last progress = %+v, want %d loaded", last, len(body))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i].Loaded < progress[i-1].Loaded {
			t.Fatalf("progress regressed: %+v then %+v", progress[i-1], progress[i])
		}
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{MaxRetries: 3, RetryDelay: time.Millisecond})
	data, err := f.Fetch(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "ok" || calls.Load() != 3 {
		t.Errorf("data = %q after %d calls, want ok after 3", data, calls.Load())
	}
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(Config{MaxRetries: 3, RetryDelay: time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("Fetch() error = %v, want ErrHTTPStatus", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(Config{MaxRetries: 1, RetryDelay: time.Millisecond})
	if _, err := f.Fetch(context.Background(), srv.URL, nil); !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("Fetch() error = %v, want ErrHTTPStatus", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f := New(Config{})
	for _, loc := range []string{path, "file://" + path} {
		var last source.Progress
		data, err := f.Fetch(context.Background(), loc, func(p source.Progress) { last = p })
		if err != nil {
			t.Fatalf("Fetch(%q) error = %v", loc, err)
		}
		if string(data) != "%PDF-1.7" {
			t.Errorf("Fetch(%q) = %q", loc, data)
		}
		if last.Total != 8 || last.Loaded != 8 {
			t.Errorf("progress = %+v, want 8/8", last)
		}
	}

	if _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Fetch(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	os.WriteFile(path, []byte("data"), 0o644)

	if _, err := New(Config{}).Fetch(ctx, path, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.pdf", true},
		{"HTTP://example.com/a.pdf", true},
		{"file:///tmp/a.pdf", false},
		{"docs/a.pdf", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.in); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
