package metrics

import (
	"sort"
	"time"
)

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int           `json:"count" yaml:"count"`
	SuccessCount   int           `json:"success_count" yaml:"success_count"`
	FailureCount   int           `json:"failure_count" yaml:"failure_count"`
	CancelledCount int           `json:"cancelled_count" yaml:"cancelled_count"`
	TotalTime      time.Duration `json:"total_time" yaml:"total_time"`
	TotalSeconds   float64       `json:"total_seconds" yaml:"total_seconds"`
	AvgTimeSeconds float64       `json:"avg_time_seconds" yaml:"avg_time_seconds"`
	MaxTimeSeconds float64       `json:"max_time_seconds" yaml:"max_time_seconds"`
	TotalBytes     int64         `json:"total_bytes,omitempty" yaml:"total_bytes,omitempty"`
}

// Summary returns a summary of metrics matching the filter.
func (r *Recorder) Summary(f Filter) Summary {
	return summarize(r.List(f, 0))
}

func summarize(metrics []Metric) Summary {
	s := Summary{Count: len(metrics)}
	for _, m := range metrics {
		s.TotalSeconds += m.Seconds
		s.TotalBytes += m.Bytes
		if m.Seconds > s.MaxTimeSeconds {
			s.MaxTimeSeconds = m.Seconds
		}
		switch m.Outcome {
		case Success:
			s.SuccessCount++
		case Cancelled:
			s.CancelledCount++
		default:
			s.FailureCount++
		}
	}
	s.TotalTime = time.Duration(s.TotalSeconds * float64(time.Second))
	if s.Count > 0 {
		s.AvgTimeSeconds = s.TotalSeconds / float64(s.Count)
	}
	return s
}

// Breakdown returns one summary per operation for metrics matching f.
func (r *Recorder) Breakdown(f Filter) map[Op]Summary {
	byOp := make(map[Op][]Metric)
	for _, m := range r.List(f, 0) {
		byOp[m.Op] = append(byOp[m.Op], m)
	}
	out := make(map[Op]Summary, len(byOp))
	for op, ms := range byOp {
		out[op] = summarize(ms)
	}
	return out
}

// SlowestPages returns up to n successful page renders, slowest first.
func (r *Recorder) SlowestPages(f Filter, n int) []Metric {
	f.Op = OpRender
	f.Outcome = Success
	ms := r.List(f, 0)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Seconds > ms[j].Seconds })
	if n > 0 && len(ms) > n {
		ms = ms[:n]
	}
	return ms
}
