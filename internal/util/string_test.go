// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short unchanged", "hello", 10, "hello"},
		{"exact unchanged", "hello", 5, "hello"},
		{"cut with ellipsis", "hello world", 5, "hello..."},
		{"cjk not split", "中文内容测试", 3, "中文内..."},
		{"zero", "hello", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.in, tt.max); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateWidthCountsCJKAsTwo(t *testing.T) {
	got := TruncateWidth("中文内容", 5)
	if runewidth.StringWidth(got) > 5 {
		t.Errorf("TruncateWidth result %q wider than 5 columns", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("TruncateWidth(%q) = %q, want ellipsis", "中文内容", got)
	}
}

func TestSearchSnippetBoundIsDisplayCells(t *testing.T) {
	// A long all-CJK fragment occupies two cells per rune; the snippet
	// bound is in cells, not runes.
	in := strings.Repeat("政", 130)
	got := TruncateWidth(in, SearchSnippetLen)
	if w := runewidth.StringWidth(got); w > SearchSnippetLen {
		t.Errorf("snippet width = %d cells, want at most %d", w, SearchSnippetLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated snippet missing ellipsis")
	}
}

func TestFormatScore(t *testing.T) {
	score := 0.876
	if got := FormatScore(&score); got != "0.876" {
		t.Errorf("FormatScore = %q, want three decimals", got)
	}
	if got := FormatScore(nil); got != "N/A" {
		t.Errorf("FormatScore(nil) = %q, want N/A", got)
	}
	zero := 0.0
	if got := FormatScore(&zero); got != "N/A" {
		t.Errorf("FormatScore(0) = %q, want N/A", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
