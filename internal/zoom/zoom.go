// Package zoom maps scale descriptors to concrete zoom factors and walks the
// discrete zoom ladder used by zoom in/out controls.
package zoom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidScale is returned for malformed or non-positive scale values.
// Callers recover by using 1.0.
var ErrInvalidScale = errors.New("invalid scale")

// Kind identifies the variant held by a Scale.
type Kind int

const (
	KindNumeric Kind = iota
	KindFitWidth
	KindFitPage
)

// Descriptor names accepted by Parse.
const (
	FitWidthName = "fit_width"
	FitPageName  = "fit_page"
)

// Scale is a requested zoom: an explicit factor, or one of the fit modes
// that resolve against the container and page geometry.
type Scale struct {
	kind  Kind
	value float64
}

// Numeric returns an explicit zoom factor.
func Numeric(v float64) Scale {
	return Scale{kind: KindNumeric, value: v}
}

var (
	FitWidth = Scale{kind: KindFitWidth}
	FitPage  = Scale{kind: KindFitPage}
)

// Kind returns the variant of s.
func (s Scale) Kind() Kind { return s.kind }

// Value returns the explicit factor of a numeric scale, 0 otherwise.
func (s Scale) Value() float64 { return s.value }

// IsFit reports whether s depends on container geometry.
func (s Scale) IsFit() bool { return s.kind != KindNumeric }

func (s Scale) String() string {
	switch s.kind {
	case KindFitWidth:
		return FitWidthName
	case KindFitPage:
		return FitPageName
	default:
		return strconv.FormatFloat(s.value, 'f', -1, 64)
	}
}

// Parse converts a descriptor string ("fit_width", "fit_page" or a number)
// into a Scale.
func Parse(desc string) (Scale, error) {
	d := strings.TrimSpace(desc)
	switch strings.ToLower(d) {
	case FitWidthName:
		return FitWidth, nil
	case FitPageName:
		return FitPage, nil
	}
	d = strings.TrimSuffix(d, "%")
	v, err := strconv.ParseFloat(d, 64)
	if err != nil {
		return Scale{}, fmt.Errorf("%w: %q", ErrInvalidScale, desc)
	}
	if strings.HasSuffix(strings.TrimSpace(desc), "%") {
		v /= 100
	}
	if !validFactor(v) {
		return Scale{}, fmt.Errorf("%w: %q", ErrInvalidScale, desc)
	}
	return Numeric(v), nil
}

// Size is a width/height pair, used for both containers and page geometry.
type Size struct {
	Width  float64
	Height float64
}

// Resolve returns the concrete factor for s. Numeric scales are returned
// verbatim. When the result cannot be computed it returns 1.0 together with
// ErrInvalidScale so the caller can log and carry on.
func Resolve(s Scale, container Size, pages []Size) (float64, error) {
	switch s.kind {
	case KindFitWidth:
		if len(pages) == 0 {
			return 1.0, fmt.Errorf("%w: fit width without pages", ErrInvalidScale)
		}
		maxWidth := pages[0].Width
		for _, p := range pages[1:] {
			maxWidth = math.Max(maxWidth, p.Width)
		}
		return checked(container.Width / maxWidth)
	case KindFitPage:
		if len(pages) == 0 {
			return 1.0, fmt.Errorf("%w: fit page without pages", ErrInvalidScale)
		}
		first := pages[0]
		if container.Height < container.Width {
			return checked(container.Height / first.Height)
		}
		return checked(container.Width / first.Width)
	default:
		return checked(s.value)
	}
}

func checked(v float64) (float64, error) {
	if !validFactor(v) {
		return 1.0, fmt.Errorf("%w: %v", ErrInvalidScale, v)
	}
	return v, nil
}

func validFactor(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
