package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/terasu/internal/highlight"
	"github.com/hyperjump/terasu/internal/models"
	"github.com/hyperjump/terasu/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one tab-separated result per line, for piping.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

const snippetLength = 200

// WriteSearchResults writes search results to w in the given format.
// matcher highlights query terms in text output; it is ignored for JSON.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat, renderer *Renderer, matcher *highlight.Matcher) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response, renderer, matcher)
		return nil
	}
}

// writeSearchResultsCompact writes rank, id, name, and a short snippet per
// line so results feed cleanly into fzf and cut.
func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for i, doc := range response.Results {
		snippet := utils.Truncate(utils.CollapseSpace(doc.Text), 80)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, doc.ID, doc.Name, snippet)
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse, renderer *Renderer, matcher *highlight.Matcher) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, doc := range response.Results {
		writeOneResult(w, i+1, doc, renderer, matcher)
	}
}

func writeOneResult(w io.Writer, rank int, doc models.Document, renderer *Renderer, matcher *highlight.Matcher) {
	fmt.Fprintf(w, "%2d. %s  %s\n", rank, renderer.Header(doc.Name), renderer.Muted(fmt.Sprintf("(score %.4f)", doc.Score)))
	fmt.Fprintf(w, "    %s\n", renderer.Muted(doc.ID))
	snippet := utils.Truncate(utils.CollapseSpace(doc.Text), snippetLength)
	fmt.Fprintf(w, "    %s\n\n", renderer.RenderSegments(matcher.Segment(snippet)))
}

// WriteDocument writes a full document with query terms highlighted.
func WriteDocument(w io.Writer, doc *models.Document, renderer *Renderer, matcher *highlight.Matcher) {
	fmt.Fprintf(w, "%s\n", renderer.Header(doc.Name))
	fmt.Fprintf(w, "%s\n", renderer.Muted(doc.ID))
	if doc.Score > 0 {
		fmt.Fprintf(w, "%s\n", renderer.Muted(fmt.Sprintf("score %.4f", doc.Score)))
	}
	fmt.Fprintf(w, "\n%s\n", renderer.RenderSegments(matcher.Segment(doc.Text)))
}
