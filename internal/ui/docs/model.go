// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docs provides the document management view for the TUI: the list
// of uploaded documents with client-side filtering and deletion.
package docs

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	"github.com/buaa-rag/ragchat-tui/internal/docs"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// Manager is the backend half of the view, satisfied by *api.Client.
type Manager interface {
	Documents(ctx context.Context, userID string) ([]api.DocumentRecord, error)
	DeleteDocument(ctx context.Context, md5Hash, userID string) error
}

// loadedMsg delivers a fetched document list.
type loadedMsg struct {
	records []api.DocumentRecord
	err     error
}

// deletedMsg reports the outcome of a deletion.
type deletedMsg struct {
	md5Hash string
	err     error
}

// extCycle is the rotation order for the extension filter key.
var extCycle = []string{"", "doc", "xls", "ppt", "pdf", "txt"}

// visCycle is the rotation order for the visibility filter key.
var visCycle = []string{"", api.VisibilityPrivate, api.VisibilityPublic}

// Model is the documents tab.
type Model struct {
	theme   *styles.Theme
	manager Manager
	userID  string

	table     table.Model
	nameInput textinput.Model
	filtering bool

	records []api.DocumentRecord
	shown   []api.DocumentRecord
	filter  docs.Filter
	extIdx  int
	visIdx  int

	// confirmHash arms a pending deletion; a second d on the same record
	// confirms, anything else disarms.
	confirmHash string

	status  string
	loading bool

	width  int
	height int
}

// New creates the documents tab model.
func New(theme *styles.Theme, manager Manager, userID string) Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "按文件名过滤"
	nameInput.Prompt = "/ "
	nameInput.CharLimit = 100

	t := table.New(
		table.WithColumns(columns(76)),
		table.WithFocused(true),
	)
	st := table.DefaultStyles()
	st.Header = theme.TableHeader
	st.Selected = theme.TableSelected
	t.SetStyles(st)

	return Model{
		theme:     theme,
		manager:   manager,
		userID:    userID,
		table:     t,
		nameInput: nameInput,
		status:    "r 刷新  / 过滤  v 可见性  e 类型  d 删除",
	}
}

func columns(width int) []table.Column {
	nameW := width - 34
	if nameW < 16 {
		nameW = 16
	}
	return []table.Column{
		{Title: "文件名", Width: nameW},
		{Title: "大小", Width: 9},
		{Title: "可见性", Width: 8},
		{Title: "上传时间", Width: 17},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

// SetSize resizes the tab to the given area.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width - 4))
	tableHeight := height - 4
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetHeight(tableHeight)
	m.nameInput.Width = width - 6
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.nameInput.Blur()
				m.filter.Name = strings.TrimSpace(m.nameInput.Value())
				m.applyFilter()
				return m, nil
			}
			var cmd tea.Cmd
			m.nameInput, cmd = m.nameInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "r":
			m.confirmHash = ""
			if !m.loading {
				m.loading = true
				m.status = "加载中..."
				return m, m.loadCmd()
			}
			return m, nil
		case "/":
			m.confirmHash = ""
			m.filtering = true
			m.nameInput.Focus()
			return m, textinput.Blink
		case "v":
			m.confirmHash = ""
			m.visIdx = (m.visIdx + 1) % len(visCycle)
			m.filter.Visibility = visCycle[m.visIdx]
			m.applyFilter()
			return m, nil
		case "e":
			m.confirmHash = ""
			m.extIdx = (m.extIdx + 1) % len(extCycle)
			m.filter.Ext = extCycle[m.extIdx]
			m.applyFilter()
			return m, nil
		case "d":
			rec, ok := m.selected()
			if !ok {
				return m, nil
			}
			if m.confirmHash != rec.MD5Hash {
				m.confirmHash = rec.MD5Hash
				m.status = m.theme.StatusError.Render("再按一次 d 确认删除: " + rec.OriginalFileName)
				return m, nil
			}
			m.confirmHash = ""
			m.status = "删除中: " + rec.OriginalFileName
			return m, m.deleteCmd(rec.MD5Hash)
		default:
			m.confirmHash = ""
		}

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = m.theme.ErrorText.Render(loadErrorText(msg.err))
			return m, nil
		}
		m.records = msg.records
		m.applyFilter()
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.status = m.theme.ErrorText.Render("删除失败")
			return m, nil
		}
		m.status = m.theme.Success.Render("已删除")
		// Drop the record locally; no refetch needed.
		kept := m.records[:0]
		for _, rec := range m.records {
			if rec.MD5Hash != msg.md5Hash {
				kept = append(kept, rec)
			}
		}
		m.records = kept
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func loadErrorText(err error) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	return "文档列表加载失败"
}

// selected returns the record under the cursor.
func (m *Model) selected() (api.DocumentRecord, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.shown) {
		return api.DocumentRecord{}, false
	}
	return m.shown[idx], true
}

// applyFilter refreshes the table rows from records and the active filter.
func (m *Model) applyFilter() {
	m.shown = m.filter.Apply(m.records)
	rows := make([]table.Row, len(m.shown))
	for i, rec := range m.shown {
		rows[i] = table.Row{
			rec.OriginalFileName,
			util.FormatBytes(rec.FileSizeBytes),
			rec.Visibility,
			rec.UploadedAt,
		}
	}
	m.table.SetRows(rows)
	m.status = "共 " + strconv.Itoa(len(m.shown)) + " / " + strconv.Itoa(len(m.records)) + " 个文档" + m.filterSummary()
}

func (m *Model) filterSummary() string {
	var parts []string
	if m.filter.Name != "" {
		parts = append(parts, "名称:"+m.filter.Name)
	}
	if m.filter.Visibility != "" {
		parts = append(parts, "可见性:"+m.filter.Visibility)
	}
	if m.filter.Ext != "" {
		parts = append(parts, "类型:"+m.filter.Ext)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, " ") + "]"
}

func (m Model) loadCmd() tea.Cmd {
	manager, userID := m.manager, m.userID
	return func() tea.Msg {
		records, err := manager.Documents(context.Background(), userID)
		return loadedMsg{records: records, err: err}
	}
}

func (m Model) deleteCmd(md5Hash string) tea.Cmd {
	manager, userID := m.manager, m.userID
	return func() tea.Msg {
		return deletedMsg{md5Hash: md5Hash, err: manager.DeleteDocument(context.Background(), md5Hash, userID)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.theme.StatusBar.Width(m.width).Render(m.status))
	if m.filtering {
		b.WriteString("\n")
		b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.nameInput.View()))
	}
	return b.String()
}
