// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"strings"
	"testing"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
)

func newTestModel() Model {
	m := New(styles.NewTheme(), nil, "tester", 6)
	m.SetSize(200, 40)
	return m
}

func TestRenderResultsTruncatesByDisplayWidth(t *testing.T) {
	m := newTestModel()
	m.query = "政策"
	score := 0.842
	m.matches = []api.SourceMatch{
		{SourceFileName: "政策.docx", TextContent: strings.Repeat("政", 130), RelevanceScore: &score},
	}

	out := m.renderResults()
	if !strings.Contains(out, "政策.docx") {
		t.Error("source file name not rendered")
	}
	if !strings.Contains(out, "0.842") {
		t.Error("relevance score not rendered")
	}
	// 130 all-CJK runes are 260 cells; the snippet bound is 120 cells, so
	// at most about 58 runes survive ahead of the ellipsis.
	if strings.Contains(out, strings.Repeat("政", 60)) {
		t.Error("snippet not truncated by display width")
	}
	if !strings.Contains(out, "...") {
		t.Error("truncated snippet missing ellipsis")
	}
}

func TestRenderResultsEmptyAndUnnamed(t *testing.T) {
	m := newTestModel()
	m.query = "政策"

	if out := m.renderResults(); !strings.Contains(out, "没有找到相关内容") {
		t.Errorf("empty result message missing: %q", out)
	}

	m.matches = []api.SourceMatch{{TextContent: "片段"}}
	if out := m.renderResults(); !strings.Contains(out, "未知来源") {
		t.Error("unnamed source placeholder missing")
	}
}
