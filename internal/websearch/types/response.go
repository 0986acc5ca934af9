package types

import (
	"fmt"
	"strings"
)

// NoResults is the formatted block for an empty result list
const NoResults = "No results"

// SearchResponse represents a search response
type SearchResponse struct {
	Query    string          `json:"query"`
	Results  []*SearchResult `json:"results"`
	Took     int64           `json:"took"` // milliseconds
	Provider ProviderID      `json:"provider"`
}

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"` // snippet
}

// Format renders the results as a numbered block suitable for a model prompt.
func Format(results []*SearchResult) string {
	if len(results) == 0 {
		return NoResults
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] Title: %s\nURL: %s\nContent: %s", i+1, r.Title, r.URL, r.Content))
	}
	return strings.Join(blocks, "\n\n")
}
