package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageview/internal/output"
	"github.com/jackzampolin/pageview/internal/search"
)

// matchResult is one search hit with the text it was found in.
type matchResult struct {
	search.Match `yaml:",inline"`
	Text         string `json:"text" yaml:"text"`
}

// searchResult is printed by the search command.
type searchResult struct {
	Term    string        `json:"term" yaml:"term"`
	Total   int           `json:"total" yaml:"total"`
	Matches []matchResult `json:"matches" yaml:"matches"`
}

var searchCmd = &cobra.Command{
	Use:   "search <file|url> <term>",
	Short: "List the matches of a term",
	Long: `Search the document text. The term is a case-insensitive regular
expression; terms that do not compile are matched literally.

Examples:
  pageview search report.pdf revenue
  pageview search report.pdf 'net (income|loss)'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		s, err := startSession(ctx, env.config.Get(), env.logger, sessionOptions{password: flagPassword(password)})
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.viewer.Open(ctx, args[0]); err != nil {
			return err
		}
		res, err := runSearch(ctx, s, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return output.Write(res)
	},
}

// runSearch searches term and resolves each match to its text item.
func runSearch(ctx context.Context, s *session, term string) (searchResult, error) {
	s.drainSearches()
	if err := s.viewer.Search(ctx, term); err != nil {
		return searchResult{}, err
	}
	if _, err := s.waitSearch(ctx, term); err != nil {
		return searchResult{}, err
	}
	matches, err := s.viewer.Matches(ctx)
	if err != nil {
		return searchResult{}, err
	}

	res := searchResult{Term: term, Total: len(matches), Matches: make([]matchResult, 0, len(matches))}
	texts := make(map[int][]string)
	for _, m := range matches {
		t, ok := texts[m.PageID]
		if !ok {
			if t, err = s.viewer.PageText(ctx, m.PageID); err != nil {
				return searchResult{}, err
			}
			texts[m.PageID] = t
		}
		res.Matches = append(res.Matches, matchResult{Match: m, Text: itemText(t, m)})
	}
	return res, nil
}

func itemText(texts []string, m search.Match) string {
	if m.ItemIndex < 0 || m.ItemIndex >= len(texts) {
		return ""
	}
	return texts[m.ItemIndex]
}
