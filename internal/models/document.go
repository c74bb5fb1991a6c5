// Package models defines core data structures shared by the client, the
// session, and the reference backend: documents, result sets, and the
// wire types of the search API.
package models

// Document is a single searchable document as returned by the backend:
// an opaque identifier, a display name, a backend-assigned relevance
// score, and the full body text. Documents are immutable snapshots once
// received; nothing in the client mutates them.
type Document struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score,omitempty"`
	Text  string  `json:"text"`
}

// ResultSet is an ordered sequence of documents exactly as the backend
// returned them. The ordering is backend-determined (descending by score)
// and is preserved verbatim on the client side.
type ResultSet []Document

// DocumentInput is the body for submitting a document over the API.
type DocumentInput struct {
	Name string `json:"name"`
	Text string `json:"text"`
}
