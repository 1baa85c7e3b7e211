// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/buaa-rag/ragchat-tui/internal/model"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "加载中..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	return b.String()
}

// statusLine renders the status bar with the spinner while streaming.
func (m Model) statusLine() string {
	status := m.status
	if status == "" {
		status = "就绪"
	}
	if m.streamingTurn != "" {
		status = m.spin.View() + " " + status
	}
	hints := m.theme.ShortcutKey.Render("^G") + m.theme.ShortcutDesc.Render(" 有用 ") +
		m.theme.ShortcutKey.Render("^B") + m.theme.ShortcutDesc.Render(" 无用 ") +
		m.theme.ShortcutKey.Render("^Y") + m.theme.ShortcutDesc.Render(" 复制")
	gap := m.width - lipgloss.Width(status) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(status + strings.Repeat(" ", gap) + hints)
}

// renderConversation renders every turn with its citations.
func (m Model) renderConversation() string {
	if m.conversation.Len() == 0 {
		return m.theme.SourceMissing.Render("输入问题开始对话。回答依据已上传的文档生成。")
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var parts []string
	for _, turn := range m.conversation.Turns {
		parts = append(parts, m.renderTurn(turn, width))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderTurn(turn *model.Turn, width int) string {
	var b strings.Builder

	switch turn.Role {
	case model.RoleUser:
		b.WriteString(m.theme.RoleLabel.Render("你"))
		b.WriteString("\n")
		b.WriteString(m.theme.UserBubble.MaxWidth(width).Render(turn.Content))

	case model.RoleAssistant:
		label := "助手"
		if turn.FeedbackScore == 5 {
			label += " " + m.theme.FeedbackDone.Render("👍")
		} else if turn.FeedbackScore == 1 {
			label += " " + m.theme.FeedbackDone.Render("👎")
		}
		b.WriteString(m.theme.RoleLabel.Render(label))
		b.WriteString("\n")

		content := turn.DisplayContent()
		if content == "" && turn.IsStreaming {
			content = "..."
		}
		b.WriteString(m.theme.AssistantBubble.MaxWidth(width).Render(content))

		if cites := m.renderSources(turn, width); cites != "" {
			b.WriteString("\n")
			b.WriteString(cites)
		}

	default:
		b.WriteString(m.theme.SystemBubble.MaxWidth(width).Render(turn.Content))
	}

	b.WriteString("\n")
	return b.String()
}

// renderSources renders the citation cards under an answer.
func (m Model) renderSources(turn *model.Turn, width int) string {
	if turn.SourcesMissing != "" {
		return m.theme.SourceMissing.Render(turn.SourcesMissing)
	}
	if len(turn.Sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.SourceTitle.Render("参考来源"))
	for _, src := range turn.Sources {
		name := src.SourceFileName
		if name == "" {
			name = "未知来源"
		}
		snippet := util.TruncateRunes(src.TextContent, util.ChatSnippetLen)
		score := m.theme.SourceScore.Render("相关度 " + util.FormatScore(src.RelevanceScore))
		card := name + "  " + score + "\n" + m.theme.SourceSnippet.Render(snippet)
		b.WriteString("\n")
		b.WriteString(m.theme.SourceCard.MaxWidth(width).Render(card))
	}
	return b.String()
}
