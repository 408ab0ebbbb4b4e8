package page

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jackzampolin/pageview/internal/source"
)

// Rect is an axis-aligned rectangle in page-local pixels.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Segment is a contiguous piece of a text item's string.
type Segment struct {
	Text        string
	Highlighted bool
}

// LayerItem is one indexable text item placed on the page.
type LayerItem struct {
	Text     string // trimmed text
	Raw      int    // index into the page's raw text items
	Bounds   Rect
	Segments []Segment

	lead int // bytes trimmed from the front of the raw string
	raw  string
}

// TextLayer holds the positioned text of a rendered page. Only items whose
// text is non-empty after trimming are present, so indexes match the ones
// produced by the search index.
type TextLayer struct {
	Scale float64
	Items []LayerItem
}

// Indexable returns the trimmed text of every non-empty item, in order,
// together with the raw index each one came from.
func Indexable(items []source.TextItem) (texts []string, raw []int) {
	for i, it := range items {
		t := strings.TrimSpace(it.Text)
		if t == "" {
			continue
		}
		texts = append(texts, t)
		raw = append(raw, i)
	}
	return texts, raw
}

// NewTextLayer places items at scale.
func NewTextLayer(items []source.TextItem, scale float64) *TextLayer {
	texts, raw := Indexable(items)
	layer := &TextLayer{Scale: scale, Items: make([]LayerItem, len(texts))}
	for i, t := range texts {
		it := items[raw[i]]
		layer.Items[i] = LayerItem{
			Text: t,
			Raw:  raw[i],
			Bounds: Rect{
				X:      it.X * scale,
				Y:      it.Y * scale,
				Width:  it.Width * scale,
				Height: it.Height * scale,
			},
			Segments: []Segment{{Text: t}},
			lead:     len(it.Text) - len(strings.TrimLeftFunc(it.Text, unicode.IsSpace)),
			raw:      it.Text,
		}
	}
	return layer
}

// Highlight splits item i into before/match/after segments and returns the
// bounds of the match. offset and length are byte positions in the trimmed
// string.
func (l *TextLayer) Highlight(i, offset, length int) (Rect, error) {
	if i < 0 || i >= len(l.Items) {
		return Rect{}, fmt.Errorf("%w: item %d of %d", ErrItemOutOfRange, i, len(l.Items))
	}
	item := &l.Items[i]
	if offset < 0 || length <= 0 || offset+length > len(item.Text) {
		return Rect{}, fmt.Errorf("%w: range %d+%d in %q", ErrItemOutOfRange, offset, length, item.Text)
	}

	before, match, after := item.Text[:offset], item.Text[offset:offset+length], item.Text[offset+length:]
	item.Segments = item.Segments[:0]
	if before != "" {
		item.Segments = append(item.Segments, Segment{Text: before})
	}
	item.Segments = append(item.Segments, Segment{Text: match, Highlighted: true})
	if after != "" {
		item.Segments = append(item.Segments, Segment{Text: after})
	}

	return item.span(offset, length), nil
}

// ClearHighlight restores item i to a single segment.
func (l *TextLayer) ClearHighlight(i int) {
	if i < 0 || i >= len(l.Items) {
		return
	}
	item := &l.Items[i]
	item.Segments = []Segment{{Text: item.Text}}
}

// span approximates the bounds of a byte range by the share of runes that
// precede and cover it in the raw string.
func (it *LayerItem) span(offset, length int) Rect {
	total := utf8.RuneCountInString(it.raw)
	if total == 0 {
		return it.Bounds
	}
	start := utf8.RuneCountInString(it.raw[:it.lead+offset])
	n := utf8.RuneCountInString(it.raw[it.lead+offset : it.lead+offset+length])
	per := it.Bounds.Width / float64(total)
	return Rect{
		X:      it.Bounds.X + per*float64(start),
		Y:      it.Bounds.Y,
		Width:  per * float64(n),
		Height: it.Bounds.Height,
	}
}
