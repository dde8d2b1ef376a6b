package tools

import (
	"context"

	"search-agent/internal/search"
)

// SearchToolName is the name the model sees for the web search capability.
const SearchToolName = "tavily_search"

const searchToolDescription = "Searches the web with Tavily and returns the raw search response, " +
	"including a short answer and ranked results. Use it for current events, weather " +
	"and anything that needs up-to-date information."

// Searcher is the part of search.Client the search tool depends on.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Result, error)
	DefaultQuery() string
}

// SearchTool exposes a Searcher as a Tool.
type SearchTool struct {
	searcher Searcher
}

// NewSearchTool creates the web search capability.
func NewSearchTool(s Searcher) *SearchTool {
	return &SearchTool{searcher: s}
}

func (t *SearchTool) Name() string {
	return SearchToolName
}

func (t *SearchTool) Description() string {
	return searchToolDescription
}

func (t *SearchTool) DefaultQuery() string {
	return t.searcher.DefaultQuery()
}

// Invoke performs one search. Provider errors come back inside the result;
// transport faults come back as the error.
func (t *SearchTool) Invoke(ctx context.Context, query string) (Result, error) {
	res, err := t.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return res, nil
}
