package models

// SearchResponse is the reply to a search request. Exactly one of Results
// or Error is meaningful: a reply carrying Error describes a failure the
// backend itself reported, while a reply without it carries the ranked
// results (possibly empty).
type SearchResponse struct {
	Query     string    `json:"query,omitempty"`
	Results   ResultSet `json:"results"`
	Total     int       `json:"total"`
	QueryTime int64     `json:"query_time_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
}
