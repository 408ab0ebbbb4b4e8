package zoom

import (
	"errors"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Scale
		wantErr bool
	}{
		{"fit_width", FitWidth, false},
		{"FIT_PAGE", FitPage, false},
		{" 1.5 ", Numeric(1.5), false},
		{"150%", Numeric(1.5), false},
		{"abc", Scale{}, true},
		{"", Scale{}, true},
		{"0", Scale{}, true},
		{"-2", Scale{}, true},
		{"NaN", Scale{}, true},
		{"+Inf", Scale{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidScale) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidScale", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolve_FitWidth(t *testing.T) {
	pages := []Size{{100, 200}, {150, 200}, {120, 200}}
	got, err := Resolve(FitWidth, Size{Width: 300, Height: 500}, pages)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != 2.0 {
		t.Errorf("fit width = %v, want 2.0", got)
	}
}

func TestResolve_FitPage(t *testing.T) {
	pages := []Size{{100, 200}, {400, 400}}

	t.Run("landscape container fits height", func(t *testing.T) {
		got, err := Resolve(FitPage, Size{Width: 800, Height: 400}, pages)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != 2.0 {
			t.Errorf("fit page = %v, want 2.0", got)
		}
	})

	t.Run("portrait container fits width", func(t *testing.T) {
		got, err := Resolve(FitPage, Size{Width: 300, Height: 900}, pages)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != 3.0 {
			t.Errorf("fit page = %v, want 3.0", got)
		}
	})
}

func TestResolve_Numeric(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		for _, s := range []float64{0.1, 0.5, 1, 1.25, 3, 7.5} {
			got, err := Resolve(Numeric(s), Size{}, nil)
			if err != nil {
				t.Fatalf("Resolve(%v) error = %v", s, err)
			}
			if got != s {
				t.Errorf("Resolve(%v) = %v", s, got)
			}
		}
	})

	t.Run("order preserved", func(t *testing.T) {
		a, _ := Resolve(Numeric(0.75), Size{}, nil)
		b, _ := Resolve(Numeric(0.8), Size{}, nil)
		if !(a < b) {
			t.Errorf("Resolve(0.75)=%v not below Resolve(0.8)=%v", a, b)
		}
	})

	t.Run("invalid falls back to 1.0", func(t *testing.T) {
		for _, s := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			got, err := Resolve(Numeric(s), Size{}, nil)
			if !errors.Is(err, ErrInvalidScale) {
				t.Errorf("Resolve(%v) error = %v, want ErrInvalidScale", s, err)
			}
			if got != 1.0 {
				t.Errorf("Resolve(%v) = %v, want 1.0", s, got)
			}
		}
	})

	t.Run("fit without pages", func(t *testing.T) {
		got, err := Resolve(FitWidth, Size{Width: 100}, nil)
		if !errors.Is(err, ErrInvalidScale) || got != 1.0 {
			t.Errorf("Resolve(fit_width, no pages) = %v, %v", got, err)
		}
	})
}

func TestNextZoomIn(t *testing.T) {
	t.Run("plain ladder step", func(t *testing.T) {
		got := NextZoomIn(0.95, 1.2, 10)
		if got.Value != 1.0 || got.Label != "100%" {
			t.Errorf("NextZoomIn(0.95) = %+v, want {1 100%%}", got)
		}
	})

	t.Run("fit width reached after the next level", func(t *testing.T) {
		got := NextZoomIn(1.0, 1.2, 10)
		if got.Value != 1.1 || got.Label != "110%" {
			t.Errorf("NextZoomIn(1.0) = %+v, want {1.1 110%%}", got)
		}
		got = NextZoomIn(1.1, 1.2, 10)
		if got.Value != 1.2 || got.Label != FitWidthLabel {
			t.Errorf("NextZoomIn(1.1) = %+v, want fit width 1.2", got)
		}
	})

	t.Run("fit page intercepts step", func(t *testing.T) {
		got := NextZoomIn(1.5, 0.1, 1.6)
		if got.Value != 1.6 || got.Label != FitPageLabel {
			t.Errorf("NextZoomIn(1.5) = %+v, want fit page 1.6", got)
		}
	})

	t.Run("nearer breakpoint wins", func(t *testing.T) {
		got := NextZoomIn(1.5, 1.65, 1.55)
		if got.Value != 1.55 || got.Label != FitPageLabel {
			t.Errorf("NextZoomIn(1.5) = %+v, want fit page 1.55", got)
		}
	})

	t.Run("top of ladder", func(t *testing.T) {
		got := NextZoomIn(5.0, 1, 1)
		if got.Value != 5.0 || got.Label != "500%" {
			t.Errorf("NextZoomIn(5.0) = %+v", got)
		}
	})
}

func TestNextZoomOut(t *testing.T) {
	got := NextZoomOut(1.5, 1.2, 0.2)
	if got.Value != 1.3 || got.Label != "130%" {
		t.Errorf("NextZoomOut(1.5) = %+v, want {1.3 130%%}", got)
	}
	got = NextZoomOut(1.3, 1.2, 0.2)
	if got.Value != 1.2 || got.Label != FitWidthLabel {
		t.Errorf("NextZoomOut(1.3) = %+v, want fit width", got)
	}
	got = NextZoomOut(0.3, 1, 1)
	if got.Value != 0.3 {
		t.Errorf("NextZoomOut(0.3) = %+v, want bottom of ladder", got)
	}
}

func TestZoomRoundTrip(t *testing.T) {
	// Breakpoints far outside the ladder so none lies between steps.
	const fw, fp = 100.0, 200.0
	for _, s := range Levels[1:] {
		out := NextZoomOut(s, fw, fp)
		back := NextZoomIn(out.Value, fw, fp)
		if math.Abs(back.Value-s) > 1e-9 {
			t.Errorf("in(out(%v)) = %v", s, back.Value)
		}
	}
}

func TestPercentLabel(t *testing.T) {
	tests := map[float64]string{1.5: "150%", 0.3: "30%", 1.234: "123%", 2.0: "200%"}
	for v, want := range tests {
		if got := PercentLabel(v); got != want {
			t.Errorf("PercentLabel(%v) = %q, want %q", v, got, want)
		}
	}
}
