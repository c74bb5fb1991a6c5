// Package highlight partitions document text into matched and plain spans
// for a set of literal query terms.
package highlight

import (
	"regexp"
	"sort"
	"strings"
)

// Span is one contiguous piece of a document's text, tagged as matched
// (covered by a query term) or plain.
type Span struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
}

// Segmentation is an ordered sequence of spans whose concatenation
// reconstructs the original text exactly: no gaps, no overlaps, every
// character covered once.
type Segmentation []Span

// Text reassembles the original document text from the spans.
func (s Segmentation) Text() string {
	var b strings.Builder
	for _, span := range s {
		b.WriteString(span.Text)
	}
	return b.String()
}

// MatchCount returns the number of matched spans.
func (s Segmentation) MatchCount() int {
	n := 0
	for _, span := range s {
		if span.Matched {
			n++
		}
	}
	return n
}

// Matcher matches a fixed set of literal terms against arbitrary text.
// Matching is case-insensitive and anchored to word boundaries, and every
// pattern metacharacter in a term is matched literally, so free user text
// can never reach the engine as control syntax. A Matcher is immutable
// and safe for concurrent use; compile once per query and reuse it across
// documents.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles a matcher for the given terms. Empty terms are
// discarded and duplicates (case-insensitive) collapsed; if nothing
// remains the matcher matches nothing and Segment becomes a no-op.
//
// All terms are combined into a single alternation rather than matched
// one at a time: independent per-term passes could produce overlapping
// highlights, which the Segmentation invariant forbids. Terms are ordered
// longest first so that when two terms match at the same position the
// longer match wins.
func NewMatcher(terms []string) *Matcher {
	distinct := dedupe(terms)
	if len(distinct) == 0 {
		return &Matcher{}
	}
	sort.SliceStable(distinct, func(i, j int) bool {
		return len(distinct[i]) > len(distinct[j])
	})
	patterns := make([]string, len(distinct))
	for i, term := range distinct {
		patterns[i] = termPattern(term)
	}
	return &Matcher{re: regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))}
}

// Segment scans text left to right and partitions it into spans: every
// matched run becomes a matched span, every uncovered run a plain span.
// With no terms to match, the result is a single plain span covering all
// of text. Segment never fails, for any text.
func (m *Matcher) Segment(text string) Segmentation {
	if m == nil || m.re == nil {
		return Segmentation{{Text: text}}
	}
	locs := m.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Segmentation{{Text: text}}
	}
	spans := make(Segmentation, 0, 2*len(locs)+1)
	pos := 0
	for _, loc := range locs {
		if loc[0] > pos {
			spans = append(spans, Span{Text: text[pos:loc[0]]})
		}
		spans = append(spans, Span{Text: text[loc[0]:loc[1]], Matched: true})
		pos = loc[1]
	}
	if pos < len(text) {
		spans = append(spans, Span{Text: text[pos:]})
	}
	return spans
}

// Segment partitions text into matched and plain spans for terms.
// Shorthand for NewMatcher(terms).Segment(text).
func Segment(text string, terms []string) Segmentation {
	return NewMatcher(terms).Segment(text)
}

// termPattern escapes term for literal matching and anchors it to word
// boundaries. An anchor is attached only where the term's edge is a word
// character: `\b` can never succeed next to punctuation, so anchoring a
// term like "a.b*c" on both sides would make it unmatchable.
func termPattern(term string) string {
	p := regexp.QuoteMeta(term)
	if isWordByte(term[0]) {
		p = `\b` + p
	}
	if isWordByte(term[len(term)-1]) {
		p += `\b`
	}
	return p
}

// isWordByte mirrors the regexp engine's ASCII word class for `\b`.
func isWordByte(b byte) bool {
	return b == '_' ||
		('0' <= b && b <= '9') ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z')
}

// dedupe drops empty terms and case-insensitive duplicates, keeping the
// first appearance. Empty terms would compile to zero-width matches;
// duplicates add nothing to the alternation.
func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}
