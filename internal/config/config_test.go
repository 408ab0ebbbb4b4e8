package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/pageview/internal/zoom"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	st, err := cfg.ViewerSettings()
	if err != nil {
		t.Fatalf("ViewerSettings() error = %v", err)
	}
	if st.InitialScale != zoom.FitWidth {
		t.Errorf("InitialScale = %v, want fit width", st.InitialScale)
	}
	if st.EvictDistance != 5 || !st.Prefetch || !st.TextLayer {
		t.Errorf("ViewerSettings() = %+v", st)
	}
	if c := cfg.Container(); c.Width != 1024 || c.Height != 768 {
		t.Errorf("Container() = %+v, want 1024x768", c)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_TOKEN", "secret123")

		result := ResolveEnvVars("Bearer ${TEST_TOKEN}")
		if result != "Bearer secret123" {
			t.Errorf("expected Bearer secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_FetchConfig(t *testing.T) {
	t.Setenv("TEST_FETCH_TOKEN", "abc")

	cfg := DefaultConfig()
	cfg.Fetch.Headers = map[string]string{"authorization": "Bearer ${TEST_FETCH_TOKEN}"}
	cfg.Fetch.RetryDelayMS = 250

	fc := cfg.FetchConfig(nil)
	if fc.Headers["authorization"] != "Bearer abc" {
		t.Errorf("Headers = %v, want resolved token", fc.Headers)
	}
	if fc.Timeout != 60*time.Second || fc.RetryDelay != 250*time.Millisecond || fc.MaxRetries != 3 {
		t.Errorf("FetchConfig() = %+v", fc)
	}
	if cfg.Fetch.Headers["authorization"] != "Bearer ${TEST_FETCH_TOKEN}" {
		t.Error("FetchConfig() modified the config headers")
	}
}

func TestConfig_ViewerSettings(t *testing.T) {
	tests := []struct {
		scale   string
		want    zoom.Scale
		wantErr bool
	}{
		{"fit_width", zoom.FitWidth, false},
		{"fit_page", zoom.FitPage, false},
		{"1.5", zoom.Numeric(1.5), false},
		{"", zoom.FitWidth, false},
		{"huge", zoom.FitWidth, true},
	}
	for _, tt := range tests {
		t.Run(tt.scale, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Viewer.InitialScale = tt.scale
			st, err := cfg.ViewerSettings()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ViewerSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if st.InitialScale != tt.want {
				t.Errorf("InitialScale = %v, want %v", st.InitialScale, tt.want)
			}
		})
	}
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := DefaultConfig()
	for in, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"} {
		cfg.Log.Level = in
		if got := cfg.LogLevel().String(); got != want {
			t.Errorf("LogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero evict distance", func(c *Config) { c.Viewer.EvictDistance = 0 }},
		{"negative gap", func(c *Config) { c.Viewer.PageGap = -1 }},
		{"bad scale", func(c *Config) { c.Viewer.InitialScale = "fit_height" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero container", func(c *Config) { c.Viewer.ContainerWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
viewer:
  initial_scale: "1.25"
  page_gap: 4
fetch:
  headers:
    x-token: "abc"
`)
		mgr, err := NewManager(configFile, "", nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Viewer.InitialScale != "1.25" || cfg.Viewer.PageGap != 4 {
			t.Errorf("viewer = %+v", cfg.Viewer)
		}
		if cfg.Fetch.Headers["x-token"] != "abc" {
			t.Errorf("headers = %v", cfg.Fetch.Headers)
		}
		// Unset keys keep their defaults.
		if cfg.Viewer.EvictDistance != 5 || cfg.Fetch.MaxRetries != 3 || cfg.Log.Format != "text" {
			t.Errorf("defaults not applied: %+v", cfg)
		}
		if mgr.File() != configFile {
			t.Errorf("File() = %q, want %q", mgr.File(), configFile)
		}
	})

	t.Run("defaults without a file", func(t *testing.T) {
		dir := t.TempDir()
		wd, _ := os.Getwd()
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Chdir(wd) })

		mgr, err := NewManager("", filepath.Join(dir, "home"), nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.File() != "" {
			t.Errorf("File() = %q, want none", mgr.File())
		}
		if mgr.Get().Viewer.InitialScale != "fit_width" {
			t.Errorf("InitialScale = %q", mgr.Get().Viewer.InitialScale)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PAGEVIEW_VIEWER_PAGE_GAP", "7")
		mgr, err := NewManager(writeConfig(t, "viewer:\n  page_gap: 4\n"), "", nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Viewer.PageGap; got != 7 {
			t.Errorf("PageGap = %v, want 7", got)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := NewManager(writeConfig(t, "viewer:\n  evict_distance: 0\n"), "", nil)
		if err == nil {
			t.Fatal("NewManager() expected validation error")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: debug\n"), "", nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: debug\n"), "", nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Log.Level
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "viewer:\n  page_gap: 4\n")

	mgr, err := NewManager(configFile, "", nil)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Viewer.PageGap; got != 4 {
		t.Errorf("initial value mismatch: expected 4, got %v", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Viewer.PageGap)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("viewer:\n  page_gap: 12\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Viewer.PageGap; got != 12 {
		t.Errorf("config not updated: expected 12, got %v", got)
	}
	if v := lastValue.Load(); v != 12.0 {
		t.Errorf("callback received wrong value: expected 12, got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# pageview configuration") {
		t.Error("WriteDefault() missing header comment")
	}

	mgr, err := NewManager(path, "", nil)
	if err != nil {
		t.Fatalf("NewManager() on written defaults error = %v", err)
	}
	if got := mgr.Get(); got.Viewer.FitMargin != 20 || got.Fetch.TimeoutSeconds != 60 {
		t.Errorf("round trip config = %+v", got)
	}
}
