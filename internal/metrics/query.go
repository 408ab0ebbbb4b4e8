package metrics

import (
	"context"
	"errors"
	"time"
)

// Filter specifies query filters. Zero fields match everything.
type Filter struct {
	DocID   string
	Op      Op
	Page    int
	After   time.Time
	Before  time.Time
	Outcome Outcome
}

func (f Filter) matches(m Metric) bool {
	if f.DocID != "" && m.DocID != f.DocID {
		return false
	}
	if f.Op != "" && m.Op != f.Op {
		return false
	}
	if f.Page != 0 && m.Page != f.Page {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !m.CreatedAt.Before(f.Before) {
		return false
	}
	if f.Outcome != "" && m.Outcome != f.Outcome {
		return false
	}
	return true
}

// List returns metrics matching the filter, oldest first. A limit of 0
// returns all of them; otherwise the most recent limit matches.
func (r *Recorder) List(f Filter, limit int) []Metric {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Metric
	for _, m := range r.metrics {
		if f.matches(m) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
