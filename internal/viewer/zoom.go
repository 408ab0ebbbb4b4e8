package viewer

import (
	"context"
	"math"

	"github.com/jackzampolin/pageview/internal/zoom"
)

// ZoomTo applies a zoom descriptor. Fit descriptors are remembered and
// re-resolved whenever the container is resized.
func (v *Viewer) ZoomTo(ctx context.Context, s zoom.Scale) error {
	return v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		v.requested = s
		v.applyScale(v.resolve(s))
		return nil
	})
}

// NextZoomInScale returns the step ZoomIn would apply, without applying it.
func (v *Viewer) NextZoomInScale(ctx context.Context) (zoom.Step, error) {
	var step zoom.Step
	err := v.call(ctx, func() { step = zoom.NextZoomIn(v.scale, v.fitWidth, v.fitPage) })
	return step, err
}

// NextZoomOutScale returns the step ZoomOut would apply, without applying it.
func (v *Viewer) NextZoomOutScale(ctx context.Context) (zoom.Step, error) {
	var step zoom.Step
	err := v.call(ctx, func() { step = zoom.NextZoomOut(v.scale, v.fitWidth, v.fitPage) })
	return step, err
}

// ZoomIn computes and applies the next larger step.
func (v *Viewer) ZoomIn(ctx context.Context) (zoom.Step, error) {
	return v.zoomStep(ctx, zoom.NextZoomIn)
}

// ZoomOut computes and applies the next smaller step.
func (v *Viewer) ZoomOut(ctx context.Context) (zoom.Step, error) {
	return v.zoomStep(ctx, zoom.NextZoomOut)
}

func (v *Viewer) zoomStep(ctx context.Context, next func(current, fitWidth, fitPage float64) zoom.Step) (zoom.Step, error) {
	var step zoom.Step
	err := v.callErr(ctx, func() error {
		if v.doc == nil {
			return ErrNoDocument
		}
		step = next(v.scale, v.fitWidth, v.fitPage)
		v.requested = stepScale(step)
		v.applyScale(v.resolve(v.requested))
		return nil
	})
	return step, err
}

// stepScale maps a ladder step back to the descriptor it came from.
func stepScale(st zoom.Step) zoom.Scale {
	switch st.Label {
	case zoom.FitWidthLabel:
		return zoom.FitWidth
	case zoom.FitPageLabel:
		return zoom.FitPage
	default:
		return zoom.Numeric(st.Value)
	}
}

// Level describes the current zoom.
type Level struct {
	Scale     float64 `json:"scale" yaml:"scale"`
	Label     string  `json:"label" yaml:"label"`
	Requested string  `json:"requested" yaml:"requested"`
	FitWidth  float64 `json:"fit_width" yaml:"fit_width"`
	FitPage   float64 `json:"fit_page" yaml:"fit_page"`
}

// ZoomLevel returns the current zoom.
func (v *Viewer) ZoomLevel(ctx context.Context) (Level, error) {
	var lvl Level
	err := v.call(ctx, func() { lvl = v.level() })
	return lvl, err
}

func (v *Viewer) level() Level {
	label := zoom.PercentLabel(v.scale)
	switch v.requested.Kind() {
	case zoom.KindFitWidth:
		label = zoom.FitWidthLabel
	case zoom.KindFitPage:
		label = zoom.FitPageLabel
	}
	return Level{
		Scale:     v.scale,
		Label:     label,
		Requested: v.requested.String(),
		FitWidth:  v.fitWidth,
		FitPage:   v.fitPage,
	}
}

// fitContainer is the container size fit scales are computed against.
func (v *Viewer) fitContainer() zoom.Size {
	m := v.settings.FitMargin
	return zoom.Size{
		Width:  math.Max(v.container.Width-m, 0),
		Height: math.Max(v.container.Height-m, 0),
	}
}

// updateFitScales recomputes the fit scales from the unit page sizes.
func (v *Viewer) updateFitScales() {
	if len(v.pages) == 0 {
		v.fitWidth, v.fitPage = 1.0, 1.0
		return
	}
	sizes := make([]zoom.Size, len(v.pages))
	for i, p := range v.pages {
		u := p.UnitGeometry()
		sizes[i] = zoom.Size{Width: u.Width, Height: u.Height}
	}
	c := v.fitContainer()

	var err error
	if v.fitWidth, err = zoom.Resolve(zoom.FitWidth, c, sizes); err != nil {
		v.logger.Warn("cannot compute fit width scale, using 1.0", "container", c, "error", err)
	}
	if v.fitPage, err = zoom.Resolve(zoom.FitPage, c, sizes); err != nil {
		v.logger.Warn("cannot compute fit page scale, using 1.0", "container", c, "error", err)
	}
}

// resolve turns a descriptor into a factor, using the cached fit scales.
func (v *Viewer) resolve(s zoom.Scale) float64 {
	switch s.Kind() {
	case zoom.KindFitWidth:
		return v.fitWidth
	case zoom.KindFitPage:
		return v.fitPage
	}
	f, err := zoom.Resolve(s, v.fitContainer(), nil)
	if err != nil {
		v.logger.Warn("invalid scale, using 1.0", "scale", s.Value(), "error", err)
	}
	return f
}

// applyScale rescales every page, keeping the viewport anchored and the
// active search highlight in place.
func (v *Viewer) applyScale(f float64) {
	v.logger.Debug("applying scale", "scale", f, "requested", v.requested.String())
	target := v.session.Target()
	v.scale = f
	v.sched.SetScale(f, func() { v.session.Reapply(target) })
}
