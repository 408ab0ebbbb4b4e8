// Package search builds an ordered index of text matches over the pages of a
// document and navigates the highlight between them.
package search

import (
	"regexp"

	"github.com/jackzampolin/pageview/internal/page"
)

// Match locates one occurrence of the search term.
type Match struct {
	PageID    int `json:"page" yaml:"page"`
	ItemIndex int `json:"item" yaml:"item"`     // index among the page's non-empty trimmed items
	Offset    int `json:"offset" yaml:"offset"` // byte offset in the trimmed item text
	Length    int `json:"length" yaml:"length"` // byte length of the matched text
}

// Less orders matches in reading order.
func (m Match) Less(o Match) bool {
	if m.PageID != o.PageID {
		return m.PageID < o.PageID
	}
	if m.ItemIndex != o.ItemIndex {
		return m.ItemIndex < o.ItemIndex
	}
	return m.Offset < o.Offset
}

// Pattern compiles a search term. The term is used as a case-insensitive
// regular expression; terms that are not valid expressions are matched as
// literal text. literal reports which of the two was used.
func Pattern(term string) (re *regexp.Regexp, literal bool) {
	re, err := regexp.Compile("(?i)" + term)
	if err == nil {
		return re, false
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term)), true
}

// BuildIndex returns every occurrence of term across pages, in reading
// order. Pages without text content contribute nothing.
func BuildIndex(term string, pages []*page.Page) []Match {
	if term == "" {
		return nil
	}
	re, _ := Pattern(term)

	var matches []Match
	for _, p := range pages {
		if !p.HasText() {
			continue
		}
		texts, _ := page.Indexable(p.TextItems())
		matches = appendItemMatches(matches, re, p.ID(), texts)
	}
	return matches
}

// IndexTexts runs the matcher over already trimmed item texts of a single
// page.
func IndexTexts(term string, pageID int, texts []string) []Match {
	if term == "" {
		return nil
	}
	re, _ := Pattern(term)
	return appendItemMatches(nil, re, pageID, texts)
}

func appendItemMatches(dst []Match, re *regexp.Regexp, pageID int, texts []string) []Match {
	for item, text := range texts {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[1] == loc[0] {
				continue
			}
			dst = append(dst, Match{
				PageID:    pageID,
				ItemIndex: item,
				Offset:    loc[0],
				Length:    loc[1] - loc[0],
			})
		}
	}
	return dst
}
