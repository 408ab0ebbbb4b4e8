package zoom

import (
	"fmt"
	"math"
)

// Levels is the ascending zoom ladder walked by NextZoomIn and NextZoomOut.
var Levels = []float64{
	0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9,
	1.0, 1.1, 1.3, 1.5, 1.7, 1.9,
	2.0, 2.2, 2.4, 2.6, 2.8,
	3.0, 3.3, 3.6, 3.9,
	4.0, 4.5,
	5.0,
}

// Labels used for fit breakpoints.
const (
	FitWidthLabel = "Fit width"
	FitPageLabel  = "Fit page"
)

// Step is one position on the zoom ladder.
type Step struct {
	Value float64 `json:"value" yaml:"value"`
	Label string  `json:"label" yaml:"label"`
}

// PercentLabel formats a factor as a rounded percentage, e.g. "150%".
func PercentLabel(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// NextZoomIn returns the smallest ladder level above current. A fit scale
// lying strictly between current and that level is returned instead, so
// stepping through the ladder always lands on the fit breakpoints.
func NextZoomIn(current, fitWidth, fitPage float64) Step {
	next := current
	for _, l := range Levels {
		if l > current {
			next = l
			break
		}
	}

	best := Step{Value: next, Label: PercentLabel(next)}
	if current < fitWidth && fitWidth < next {
		best = Step{Value: fitWidth, Label: FitWidthLabel}
	}
	if current < fitPage && fitPage < best.Value {
		best = Step{Value: fitPage, Label: FitPageLabel}
	}
	return best
}

// NextZoomOut is the descending counterpart of NextZoomIn.
func NextZoomOut(current, fitWidth, fitPage float64) Step {
	next := current
	for i := len(Levels) - 1; i >= 0; i-- {
		if Levels[i] < current {
			next = Levels[i]
			break
		}
	}

	best := Step{Value: next, Label: PercentLabel(next)}
	if current > fitWidth && fitWidth > next {
		best = Step{Value: fitWidth, Label: FitWidthLabel}
	}
	if current > fitPage && fitPage > best.Value {
		best = Step{Value: fitPage, Label: FitPageLabel}
	}
	return best
}
