package metrics

import (
	"errors"
	"sync"
	"time"
)

// DefaultLimit is the number of metrics a recorder keeps when none is given.
const DefaultLimit = 10000

// Recorder keeps the most recent metrics in memory. It is safe for
// concurrent use; a nil *Recorder discards everything.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	metrics []Metric
	dropped int
}

// NewRecorder creates a recorder holding at most limit metrics. Older
// metrics are dropped first.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Recorder{limit: limit}
}

// RecordOpts provides context for a metric recording.
type RecordOpts struct {
	DocID string
	Page  int
	Scale float64
	Bytes int64
}

// Record stores a single metric.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.metrics) >= r.limit {
		n := len(r.metrics) - r.limit + 1
		r.metrics = append(r.metrics[:0], r.metrics[n:]...)
		r.dropped += n
	}
	r.metrics = append(r.metrics, m)
}

// RecordOp records op with the given outcome and duration.
func (r *Recorder) RecordOp(op Op, opts RecordOpts, outcome Outcome, d time.Duration) {
	r.Record(Metric{
		DocID:   opts.DocID,
		Op:      op,
		Page:    opts.Page,
		Scale:   opts.Scale,
		Bytes:   opts.Bytes,
		Seconds: d.Seconds(),
		Outcome: outcome,
	})
}

// RecordError records a failed operation. Context errors are recorded as
// cancellations.
func (r *Recorder) RecordError(op Op, opts RecordOpts, err error, d time.Duration) {
	m := Metric{
		DocID:   opts.DocID,
		Op:      op,
		Page:    opts.Page,
		Scale:   opts.Scale,
		Bytes:   opts.Bytes,
		Seconds: d.Seconds(),
		Outcome: Failure,
	}
	switch {
	case err == nil:
		m.Outcome = Success
	case isCancellation(err):
		m.Outcome = Cancelled
	default:
		m.ErrorType = errorType(err)
	}
	r.Record(m)
}

// Dropped returns how many metrics were discarded to honor the limit.
func (r *Recorder) Dropped() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// errorType is the innermost error's message with wrapping context removed.
func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
