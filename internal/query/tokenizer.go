// Package query turns raw user input into literal search terms.
package query

import "strings"

// Tokenize splits raw input on runs of whitespace into non-empty terms.
// Leading, trailing, and repeated whitespace produce no empty terms.
// Terms keep their original casing and order; case-insensitivity is the
// matcher's concern, not the tokenizer's. Blank input yields an empty
// sequence; rejecting an empty query belongs to the caller.
func Tokenize(raw string) []string {
	return strings.Fields(raw)
}

// IsBlank reports whether raw contains no searchable content at all.
func IsBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
