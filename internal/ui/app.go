// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui contains the root Bubble Tea model: the tab bar and the four
// views (chat, search, documents, upload).
package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	uichat "github.com/buaa-rag/ragchat-tui/internal/ui/chat"
	uidocs "github.com/buaa-rag/ragchat-tui/internal/ui/docs"
	uisearch "github.com/buaa-rag/ragchat-tui/internal/ui/search"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	uiupload "github.com/buaa-rag/ragchat-tui/internal/ui/upload"
	"github.com/buaa-rag/ragchat-tui/internal/upload"
)

// Tab identifies one of the top-level views.
type Tab int

const (
	TabChat Tab = iota
	TabSearch
	TabDocs
	TabUpload
)

var tabTitles = []string{"对话", "检索", "文档", "上传"}

// App is the root model.
type App struct {
	theme *styles.Theme

	active Tab
	chat   uichat.Model
	search uisearch.Model
	docs   uidocs.Model
	upload uiupload.Model

	watcher *upload.Watcher

	width  int
	height int
}

// NewApp assembles the root model. watcher may be nil when no drop
// directory is configured.
func NewApp(theme *styles.Theme, chat uichat.Model, search uisearch.Model, docs uidocs.Model, up uiupload.Model, watcher *upload.Watcher) App {
	return App{
		theme:  theme,
		chat:   chat,
		search: search,
		docs:   docs,
		upload: up,
	}.withWatcher(watcher)
}

func (a App) withWatcher(w *upload.Watcher) App {
	a.watcher = w
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.chat.Init(),
		a.search.Init(),
		a.docs.Init(),
		a.upload.Init(),
	}
	if a.watcher != nil {
		cmds = append(cmds, waitForWatcher(a.watcher))
	}
	return tea.Batch(cmds...)
}

// waitForWatcher forwards the next drop-directory outcome as a message.
func waitForWatcher(w *upload.Watcher) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-w.Results()
		if !ok {
			return nil
		}
		return uiupload.WatcherResultMsg{Result: res}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.theme.SetSize(msg.Width, msg.Height)
		// Header takes 2 rows.
		inner := msg.Height - 2
		a.chat.SetSize(msg.Width, inner)
		a.search.SetSize(msg.Width, inner)
		a.docs.SetSize(msg.Width, inner)
		a.upload.SetSize(msg.Width, inner)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "tab":
			a.active = (a.active + 1) % 4
			return a, nil
		case "shift+tab":
			a.active = (a.active + 3) % 4
			return a, nil
		}
		return a.updateActive(msg)

	// Session events always go to the chat view, whichever tab is active:
	// an answer keeps streaming while the user browses documents.
	case uichat.UserTurnMsg, uichat.BeginTurnMsg, uichat.ReplaceAnswerMsg,
		uichat.FinishTurnMsg, uichat.StatusMsg, uichat.SourcesMsg,
		uichat.SourcesMissingMsg, uichat.FeedbackReadyMsg, uichat.FlushTickMsg,
		uichat.SystemNoticeMsg:
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case uiupload.WatcherResultMsg:
		var cmd tea.Cmd
		a.upload, cmd = a.upload.Update(msg)
		if a.watcher != nil {
			return a, tea.Batch(cmd, waitForWatcher(a.watcher))
		}
		return a, cmd
	}

	return a.updateAll(msg)
}

// updateActive routes a message to the focused tab only.
func (a App) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.active {
	case TabChat:
		a.chat, cmd = a.chat.Update(msg)
	case TabSearch:
		a.search, cmd = a.search.Update(msg)
	case TabDocs:
		a.docs, cmd = a.docs.Update(msg)
	case TabUpload:
		a.upload, cmd = a.upload.Update(msg)
	}
	return a, cmd
}

// updateAll fans a message out to every tab (spinner ticks, blink, async
// results carrying their own message types).
func (a App) updateAll(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	cmds = append(cmds, cmd)
	a.search, cmd = a.search.Update(msg)
	cmds = append(cmds, cmd)
	a.docs, cmd = a.docs.Update(msg)
	cmds = append(cmds, cmd)
	a.upload, cmd = a.upload.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// View implements tea.Model.
func (a App) View() string {
	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString("\n")
	switch a.active {
	case TabChat:
		b.WriteString(a.chat.View())
	case TabSearch:
		b.WriteString(a.search.View())
	case TabDocs:
		b.WriteString(a.docs.View())
	case TabUpload:
		b.WriteString(a.upload.View())
	}
	return b.String()
}

func (a App) header() string {
	var tabs []string
	for i, title := range tabTitles {
		if Tab(i) == a.active {
			tabs = append(tabs, a.theme.TabActive.Render(title))
		} else {
			tabs = append(tabs, a.theme.Tab.Render(title))
		}
	}
	title := a.theme.HeaderTitle.Render("政策文档智能问答")
	return title + "  " + strings.Join(tabs, "") + "\n"
}
