// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides the direct document search view for the TUI.
// Searching the corpus shows what the assistant would retrieve for a query
// without generating an answer.
package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// Searcher is the backend half of the view, satisfied by *api.Client.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, userID string) ([]api.SourceMatch, error)
}

// resultsMsg delivers a completed search.
type resultsMsg struct {
	query   string
	matches []api.SourceMatch
	err     error
}

// Model is the search tab.
type Model struct {
	theme    *styles.Theme
	searcher Searcher
	userID   string
	topK     int

	input    textinput.Model
	viewport viewport.Model

	query     string
	matches   []api.SourceMatch
	err       error
	searching bool

	width  int
	height int
	ready  bool
}

// New creates the search tab model.
func New(theme *styles.Theme, searcher Searcher, userID string, topK int) Model {
	input := textinput.New()
	input.Placeholder = "检索文档内容，回车搜索"
	input.Prompt = "🔍 "
	input.CharLimit = 500
	input.Focus()

	return Model{
		theme:    theme,
		searcher: searcher,
		userID:   userID,
		topK:     topK,
		input:    input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize resizes the tab to the given area.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	vpHeight := height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	m.refresh()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.searching {
				return m, nil
			}
			m.searching = true
			m.query = query
			return m, m.searchCmd(query)
		}

	case resultsMsg:
		if msg.query != m.query {
			// A newer query superseded this one.
			return m, nil
		}
		m.searching = false
		m.matches = msg.matches
		m.err = msg.err
		m.refresh()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// searchCmd runs the search off the UI loop.
func (m Model) searchCmd(query string) tea.Cmd {
	searcher, userID, topK := m.searcher, m.userID, m.topK
	return func() tea.Msg {
		matches, err := searcher.Search(context.Background(), query, topK, userID)
		return resultsMsg{query: query, matches: matches, err: err}
	}
}

func (m *Model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderResults())
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return ""
	}
	status := "回车搜索"
	if m.searching {
		status = "搜索中..."
	} else if m.query != "" {
		status = "共 " + strconv.Itoa(len(m.matches)) + " 条结果"
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.StatusBar.Width(m.width).Render(status))
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	return b.String()
}

// renderResults renders the match list.
func (m Model) renderResults() string {
	if m.err != nil {
		if api.IsUnavailable(m.err) {
			return m.theme.ErrorText.Render("服务不可用")
		}
		if msg := api.ServerMessage(m.err); msg != "" {
			return m.theme.ErrorText.Render(msg)
		}
		return m.theme.ErrorText.Render("搜索失败")
	}
	if m.query == "" {
		return m.theme.SourceMissing.Render("直接检索文档库，不生成回答。")
	}
	if len(m.matches) == 0 {
		return m.theme.SourceMissing.Render("没有找到相关内容")
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for i, match := range m.matches {
		name := match.SourceFileName
		if name == "" {
			name = "未知来源"
		}
		title := m.theme.SourceTitle.Render(strconv.Itoa(i+1)+". "+name) + "  " +
			m.theme.SourceScore.Render("相关度 "+util.FormatScore(match.RelevanceScore))
		snippet := m.theme.SourceSnippet.Render(util.TruncateWidth(match.TextContent, util.SearchSnippetLen))
		b.WriteString(m.theme.SourceCard.MaxWidth(width).Render(title + "\n" + snippet))
		b.WriteString("\n")
	}
	return b.String()
}
