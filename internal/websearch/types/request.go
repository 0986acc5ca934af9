package types

// MaxResults caps every provider's result list
const MaxResults = 5

// SearchRequest represents a search request
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Limit returns the effective result cap for the request
func (r *SearchRequest) Limit() int {
	if r.MaxResults <= 0 || r.MaxResults > MaxResults {
		return MaxResults
	}
	return r.MaxResults
}
