// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload provides the document upload view for the TUI. Files can
// be uploaded by path, and outcomes from the drop-directory watcher are
// surfaced here as they happen.
package upload

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	"github.com/buaa-rag/ragchat-tui/internal/upload"
)

// maxLog is the number of recent outcomes kept on screen.
const maxLog = 12

// entry is one displayed upload outcome.
type entry struct {
	fileName string
	message  string
	failed   bool
}

// doneMsg reports a completed manual upload.
type doneMsg struct {
	path string
	data *api.UploadData
	err  error
}

// WatcherResultMsg carries a drop-directory outcome into the program.
// The app model forwards these from the watcher's results channel.
type WatcherResultMsg struct {
	Result upload.Result
}

// Model is the upload tab.
type Model struct {
	theme    *styles.Theme
	uploader upload.Uploader
	userID   string
	meta     api.UploadMeta
	dropDir  string

	input     textinput.Model
	log       []entry
	uploading bool

	width  int
	height int
}

// New creates the upload tab model.
func New(theme *styles.Theme, uploader upload.Uploader, userID string, meta api.UploadMeta, dropDir string) Model {
	input := textinput.New()
	input.Placeholder = "输入文件路径，回车上传"
	input.Prompt = "📄 "
	input.CharLimit = 500
	input.Focus()

	return Model{
		theme:    theme,
		uploader: uploader,
		userID:   userID,
		meta:     meta,
		dropDir:  dropDir,
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
	m.input.Width = width - 6
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			path := strings.TrimSpace(m.input.Value())
			if path == "" || m.uploading {
				return m, nil
			}
			if !upload.Accepted(path) {
				m.push(entry{fileName: filepath.Base(path), message: "不支持的文件类型", failed: true})
				return m, nil
			}
			m.input.Reset()
			m.uploading = true
			return m, m.uploadCmd(path)
		}

	case doneMsg:
		m.uploading = false
		m.push(resultEntry(msg.path, msg.data, msg.err))
		return m, nil

	case WatcherResultMsg:
		m.push(resultEntry(msg.Result.Path, msg.Result.Data, msg.Result.Err))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resultEntry maps an upload outcome to a display entry. Timeouts are
// reported distinctly from other failures.
func resultEntry(path string, data *api.UploadData, err error) entry {
	name := filepath.Base(path)
	switch {
	case err == nil:
		message := "上传成功"
		if data != nil && data.Message != "" {
			message = data.Message
		}
		return entry{fileName: name, message: message}
	case api.IsTimeout(err):
		return entry{fileName: name, message: "上传超时，请重试", failed: true}
	default:
		if msg := api.ServerMessage(err); msg != "" {
			return entry{fileName: name, message: msg, failed: true}
		}
		return entry{fileName: name, message: "上传失败", failed: true}
	}
}

func (m *Model) push(e entry) {
	m.log = append(m.log, e)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	uploader, userID, meta := m.uploader, m.userID, m.meta
	return func() tea.Msg {
		data, err := uploader.Upload(context.Background(), path, userID, meta)
		return doneMsg{path: path, data: data, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	if m.dropDir != "" {
		b.WriteString(m.theme.SourceMissing.Render("拖放目录: " + m.dropDir + "（放入文件即自动上传）"))
		b.WriteString("\n\n")
	}

	if len(m.log) == 0 {
		b.WriteString(m.theme.SourceMissing.Render("暂无上传记录"))
		b.WriteString("\n")
	}
	for _, e := range m.log {
		line := e.fileName + "  " + e.message
		if e.failed {
			b.WriteString(m.theme.ErrorText.Render("✗ " + line))
		} else {
			b.WriteString(m.theme.Success.Render("✓ " + line))
		}
		b.WriteString("\n")
	}

	status := "支持 pdf / doc / xls / ppt / txt / md"
	if m.uploading {
		status = "上传中，最长等待 60 秒..."
	}

	b.WriteString("\n")
	b.WriteString(m.theme.StatusBar.Width(m.width).Render(status))
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	return b.String()
}
