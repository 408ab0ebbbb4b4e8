// Package metrics records timing and outcome of viewer operations.
package metrics

import "time"

// Op names an instrumented operation.
type Op string

const (
	OpRender Op = "render"
	OpText   Op = "text"
	OpFetch  Op = "fetch"
	OpOpen   Op = "open"
)

// Outcome of an operation.
type Outcome string

const (
	Success   Outcome = "success"
	Failure   Outcome = "failure"
	Cancelled Outcome = "cancelled"
)

// Metric is a single recorded operation.
type Metric struct {
	// Attribution (for filtering/aggregation)
	DocID string `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	Op    Op     `json:"op" yaml:"op"`
	Page  int    `json:"page,omitempty" yaml:"page,omitempty"` // 1-based, 0 for document-level ops

	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Bytes int64   `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// Timing
	Seconds float64 `json:"seconds" yaml:"seconds"`

	// Status
	Outcome   Outcome `json:"outcome" yaml:"outcome"`
	ErrorType string  `json:"error_type,omitempty" yaml:"error_type,omitempty"`

	// Metadata
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Duration returns Seconds as a time.Duration.
func (m Metric) Duration() time.Duration {
	return time.Duration(m.Seconds * float64(time.Second))
}
