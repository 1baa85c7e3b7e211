// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	session "github.com/buaa-rag/ragchat-tui/internal/chat"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
)

func newTestModel() Model {
	theme := styles.NewTheme()
	buffer := NewDeltaBuffer()
	m := New(theme, nil, nil, buffer)
	m.SetSize(80, 24)
	return m
}

func TestDeltaBufferBatchesByTurn(t *testing.T) {
	b := NewDeltaBuffer()
	b.Write("t1", "第一")
	b.Write("t1", "部分")

	turnID, content, ok := b.Flush()
	if !ok || turnID != "t1" || content != "第一部分" {
		t.Errorf("Flush = (%q, %q, %v)", turnID, content, ok)
	}
	if _, _, ok := b.Flush(); ok {
		t.Error("second flush returned content")
	}

	// A fragment for a new turn drops the stale remainder.
	b.Write("t1", "旧")
	b.Write("t2", "新")
	turnID, content, _ = b.Flush()
	if turnID != "t2" || content != "新" {
		t.Errorf("stale turn content survived: (%q, %q)", turnID, content)
	}
}

func TestStreamingLifecycle(t *testing.T) {
	m := newTestModel()

	m, _ = m.Update(UserTurnMsg{Text: "什么是社保"})
	m, _ = m.Update(BeginTurnMsg{TurnID: "t1"})
	if m.streamingTurn != "t1" {
		t.Fatalf("streamingTurn = %q", m.streamingTurn)
	}

	m.buffer.Write("t1", "社保是")
	m, _ = m.Update(FlushTickMsg{})
	m.buffer.Write("t1", "社会保险")
	m, _ = m.Update(FinishTurnMsg{TurnID: "t1"})

	turn := m.conversation.Get("t1")
	if turn == nil {
		t.Fatal("assistant turn missing")
	}
	if turn.IsStreaming {
		t.Error("turn still streaming after finish")
	}
	if got := turn.Content; got != "社保是社会保险" {
		t.Errorf("answer = %q, want buffered remainder drained on finish", got)
	}
	if m.streamingTurn != "" {
		t.Error("streamingTurn not cleared")
	}
}

func TestSourcesRendering(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(BeginTurnMsg{TurnID: "t1"})
	score := 0.912
	m, _ = m.Update(SourcesMsg{TurnID: "t1", Sources: []api.SourceMatch{
		{SourceFileName: "政策.docx", TextContent: strings.Repeat("条", 150), RelevanceScore: &score},
	}})

	out := m.renderConversation()
	if !strings.Contains(out, "政策.docx") {
		t.Error("source file name not rendered")
	}
	if !strings.Contains(out, "0.912") {
		t.Error("relevance score not rendered")
	}
	if strings.Contains(out, strings.Repeat("条", 120)) {
		t.Error("snippet not truncated")
	}
}

func TestSourcesMissingPlaceholder(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(BeginTurnMsg{TurnID: "t1"})
	m, _ = m.Update(SourcesMissingMsg{TurnID: "t1", Reason: session.NoSourcesText})

	if !strings.Contains(m.renderConversation(), session.NoSourcesText) {
		t.Error("placeholder not rendered")
	}
}

func TestFeedbackBinding(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(BeginTurnMsg{TurnID: "t1"})
	m, _ = m.Update(FeedbackReadyMsg{TurnID: "t1", MessageID: 7})

	turn := m.conversation.Get("t1")
	if !turn.CanFeedback() {
		t.Error("feedback not enabled after binding")
	}
	if *turn.MessageID != 7 {
		t.Errorf("MessageID = %d", *turn.MessageID)
	}
}

func TestSystemNoticeEntersTranscript(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(SystemNoticeMsg{Text: "配置已更新，重启后生效"})

	if m.conversation.Len() != 1 {
		t.Fatalf("conversation has %d turns, want the notice", m.conversation.Len())
	}
	if !strings.Contains(m.renderConversation(), "配置已更新") {
		t.Error("notice text not rendered")
	}
}

func TestMessagesForUnknownTurnsIgnored(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(ReplaceAnswerMsg{TurnID: "ghost", Text: "无"})
	m, _ = m.Update(SourcesMsg{TurnID: "ghost"})
	m, _ = m.Update(FinishTurnMsg{TurnID: "ghost"})
	if m.conversation.Len() != 0 {
		t.Error("unknown turn created conversation entries")
	}
}
