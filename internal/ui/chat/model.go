// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	session "github.com/buaa-rag/ragchat-tui/internal/chat"
	"github.com/buaa-rag/ragchat-tui/internal/model"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat tab: conversation viewport, status line, question input.
type Model struct {
	theme *styles.Theme

	conversation *model.Conversation
	viewport     viewport.Model
	input        textinput.Model
	spin         spinner.Model

	controller *session.Controller
	feedback   *session.FeedbackSubmitter
	buffer     *DeltaBuffer

	status        string
	streamingTurn string
	lastAssistant string

	width  int
	height int
	ready  bool
}

// New creates the chat tab model.
func New(theme *styles.Theme, controller *session.Controller, feedback *session.FeedbackSubmitter, buffer *DeltaBuffer) Model {
	input := textinput.New()
	input.Placeholder = "输入问题，回车发送"
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return Model{
		theme:        theme,
		conversation: model.NewConversation(),
		input:        input,
		spin:         spin,
		controller:   controller,
		feedback:     feedback,
		buffer:       buffer,
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
	// Input takes 3 rows, status takes 1.
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
	m.refreshViewport(false)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.input.Reset()
				// Submit is non-blocking: it opens the stream and returns.
				m.controller.Submit(context.Background(), text)
			}
			return m, nil
		case "ctrl+y":
			m.copyLastAnswer()
			return m, nil
		case "ctrl+g":
			m.submitFeedback(true)
			return m, nil
		case "ctrl+b":
			m.submitFeedback(false)
			return m, nil
		}

	case UserTurnMsg:
		m.conversation.Add(model.NewUserTurn(msg.Text))
		m.refreshViewport(true)
		return m, nil

	case BeginTurnMsg:
		m.conversation.Add(model.NewAssistantTurn(msg.TurnID))
		m.streamingTurn = msg.TurnID
		m.lastAssistant = msg.TurnID
		m.refreshViewport(true)
		return m, tea.Batch(m.spin.Tick, flushTickCmd())

	case FlushTickMsg:
		if turnID, content, ok := m.buffer.Flush(); ok {
			if turn := m.conversation.Get(turnID); turn != nil {
				turn.AppendDelta(content)
				m.refreshViewport(true)
			}
		}
		if m.streamingTurn != "" {
			return m, flushTickCmd()
		}
		return m, nil

	case ReplaceAnswerMsg:
		if turn := m.conversation.Get(msg.TurnID); turn != nil {
			turn.Replace(msg.Text)
			m.refreshViewport(true)
		}
		return m, nil

	case FinishTurnMsg:
		// Drain fragments still in the buffer before finalizing.
		if turnID, content, ok := m.buffer.Flush(); ok && turnID == msg.TurnID {
			if turn := m.conversation.Get(turnID); turn != nil {
				turn.AppendDelta(content)
			}
		}
		if turn := m.conversation.Get(msg.TurnID); turn != nil {
			turn.Finalize()
		}
		if m.streamingTurn == msg.TurnID {
			m.streamingTurn = ""
		}
		m.refreshViewport(true)
		return m, nil

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case SystemNoticeMsg:
		m.conversation.Add(model.NewSystemTurn(msg.Text))
		m.refreshViewport(true)
		return m, nil

	case SourcesMsg:
		if turn := m.conversation.Get(msg.TurnID); turn != nil {
			turn.Sources = msg.Sources
			turn.SourcesMissing = ""
			m.refreshViewport(true)
		}
		return m, nil

	case SourcesMissingMsg:
		if turn := m.conversation.Get(msg.TurnID); turn != nil {
			turn.Sources = nil
			turn.SourcesMissing = msg.Reason
			m.refreshViewport(true)
		}
		return m, nil

	case FeedbackReadyMsg:
		if turn := m.conversation.Get(msg.TurnID); turn != nil {
			turn.BindMessageID(msg.MessageID)
			m.refreshViewport(false)
		}
		return m, nil

	case spinner.TickMsg:
		if m.streamingTurn != "" {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// copyLastAnswer puts the newest completed answer on the system clipboard.
func (m *Model) copyLastAnswer() {
	turn := m.conversation.Get(m.lastAssistant)
	if turn == nil || turn.IsEmpty() {
		return
	}
	if err := clipboard.WriteAll(turn.DisplayContent()); err == nil {
		m.status = "已复制回答"
	}
}

// submitFeedback sends a judgment for the newest answer. The two marks are
// mutually exclusive; switching simply resends with the other score.
func (m *Model) submitFeedback(positive bool) {
	turn := m.conversation.Get(m.lastAssistant)
	if turn == nil || !turn.CanFeedback() {
		return
	}
	if positive {
		turn.FeedbackScore = 5
		m.status = "感谢您的反馈 👍"
	} else {
		turn.FeedbackScore = 1
		m.status = "感谢您的反馈 👎"
	}
	go m.feedback.SubmitID(context.Background(), *turn.MessageID, positive)
	m.refreshViewport(false)
}

// refreshViewport re-renders the conversation into the viewport.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}
