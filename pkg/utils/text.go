// Package utils provides shared utilities for text and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// CollapseSpace replaces every run of whitespace in s with a single space
// and trims the ends. Used to render multi-line document text as a
// one-line snippet.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
