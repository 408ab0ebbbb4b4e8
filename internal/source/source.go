// Package source defines the contract between the viewer core and a document
// backend: page geometry, cancellable rendering and text extraction.
package source

import (
	"context"
	"errors"
	"image/draw"
)

// Document errors
var (
	// ErrDocumentOpenFailed indicates the source could not be read or decoded.
	ErrDocumentOpenFailed = errors.New("document open failed")

	// ErrPasswordRequired indicates a protected document and no password
	// (or an empty one) was supplied. Terminal for the load attempt.
	ErrPasswordRequired = errors.New("password required")

	// ErrNoTextContent indicates the backend cannot extract text for a page.
	ErrNoTextContent = errors.New("text content not available")
)

// Geometry is a page size in points at some scale.
type Geometry struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Scaled returns g multiplied by scale.
func (g Geometry) Scaled(scale float64) Geometry {
	return Geometry{Width: g.Width * scale, Height: g.Height * scale}
}

// TextItem is one run of extracted text. Position and size are at scale 1.0
// with the origin at the top-left corner of the page.
type TextItem struct {
	Text   string  `json:"text" yaml:"text"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// OutcomeStatus tags how a render operation settled.
type OutcomeStatus int

const (
	OutcomeSucceeded OutcomeStatus = iota
	OutcomeFailed
	OutcomeCancelled
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the settled result of a render operation.
type Outcome struct {
	Status OutcomeStatus
	Err    error // set when Status is OutcomeFailed
}

// Succeeded returns a successful outcome.
func Succeeded() Outcome { return Outcome{Status: OutcomeSucceeded} }

// Failed returns a failed outcome carrying err.
func Failed(err error) Outcome { return Outcome{Status: OutcomeFailed, Err: err} }

// Cancelled returns the outcome of an operation stopped by its token.
func Cancelled() Outcome { return Outcome{Status: OutcomeCancelled} }

// OutcomeFromContext returns Cancelled if ctx is done and ok=false otherwise.
// Backends call it between units of work.
func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	if ctx.Err() != nil {
		return Cancelled(), true
	}
	return Outcome{}, false
}

// Page is one page of an opened document.
type Page interface {
	// Index returns the 0-based page index.
	Index() int

	// Geometry returns the page size at scale.
	Geometry(ctx context.Context, scale float64) (Geometry, error)

	// Render paints the page into dst at scale. It must always return an
	// outcome, and must return a Cancelled outcome once ctx is done.
	Render(ctx context.Context, dst draw.Image, scale float64) Outcome

	// TextContent returns the page's text runs in reading order, or
	// ErrNoTextContent.
	TextContent(ctx context.Context) ([]TextItem, error)

	// Ref returns an identifier for cross-page link resolution.
	Ref() string
}

// Document is an opened document.
type Document interface {
	NumPages() int
	Page(ctx context.Context, index int) (Page, error)
	Close() error
}

// PasswordReason tells the password challenge why it is being asked.
type PasswordReason int

const (
	NeedPassword PasswordReason = iota
	IncorrectPassword
)

func (r PasswordReason) String() string {
	if r == IncorrectPassword {
		return "incorrect password"
	}
	return "password needed"
}

// PasswordFunc answers a password challenge. Returning "" aborts the load
// with ErrPasswordRequired.
type PasswordFunc func(reason PasswordReason) string

// OpenOptions configures Opener.Open.
type OpenOptions struct {
	Password PasswordFunc
}

// Opener decodes document bytes into a Document.
type Opener interface {
	Open(ctx context.Context, data []byte, opts OpenOptions) (Document, error)
}
