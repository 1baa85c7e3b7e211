// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides string and formatting helpers shared by the views.
package util

import (
	"strconv"

	"github.com/mattn/go-runewidth"
)

// Snippet lengths for retrieved document fragments.
const (
	// ChatSnippetLen bounds citation snippets shown under an answer.
	ChatSnippetLen = 100
	// SearchSnippetLen bounds snippets in direct search results.
	SearchSnippetLen = 120
)

// TruncateRunes truncates a string to a maximum number of runes, appending
// "..." when anything was cut. Rune-based so multi-byte characters are
// never split mid-sequence.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateWidth truncates a string to a maximum display width, with CJK
// characters counted as two columns. Search snippets use this so a
// Chinese fragment never overflows its line.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// FormatScore renders a relevance score with three decimals. Missing and
// zero scores both render as "N/A": the backend uses zero as its own
// not-available marker.
func FormatScore(score *float64) string {
	if score == nil || *score == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(*score, 'f', 3, 64)
}

// FormatBytes renders a byte count in human-readable form (B, KB, MB, GB).
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + [3]string{"KB", "MB", "GB"}[exp]
}
