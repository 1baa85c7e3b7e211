// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// Session events cross from the controller goroutine into the Bubble Tea
// loop as messages. Each carries the turn ID it belongs to; the model drops
// messages for turns it no longer tracks.

// UserTurnMsg echoes a submitted question.
type UserTurnMsg struct {
	Text string
}

// BeginTurnMsg starts a new assistant turn in streaming state.
type BeginTurnMsg struct {
	TurnID string
}

// ReplaceAnswerMsg replaces the turn's full answer text (fallback path).
type ReplaceAnswerMsg struct {
	TurnID string
	Text   string
}

// FinishTurnMsg marks the turn no longer streaming.
type FinishTurnMsg struct {
	TurnID string
}

// StatusMsg replaces the status line.
type StatusMsg struct {
	Text string
}

// SourcesMsg delivers the citation set for a turn.
type SourcesMsg struct {
	TurnID  string
	Sources []api.SourceMatch
}

// SourcesMissingMsg delivers the citation placeholder for a turn.
type SourcesMissingMsg struct {
	TurnID string
	Reason string
}

// FeedbackReadyMsg enables the feedback controls for a turn.
type FeedbackReadyMsg struct {
	TurnID    string
	MessageID int64
}

// SystemNoticeMsg inserts a system turn into the transcript, used for
// out-of-band notices such as a config reload.
type SystemNoticeMsg struct {
	Text string
}

// FlushTickMsg drives delta-buffer flushes while an answer is streaming.
type FlushTickMsg struct {
	Time time.Time
}

// =============================================================================
// PROGRAM RENDERER
// =============================================================================

// ProgramRenderer bridges session controller callbacks onto a Bubble Tea
// program. Content deltas go through the shared DeltaBuffer; everything else
// is sent as a message. Satisfies the controller's Renderer interface.
type ProgramRenderer struct {
	send   func(msg interface{})
	buffer *DeltaBuffer
}

// NewProgramRenderer creates a renderer that delivers into send, which is
// normally (*tea.Program).Send wrapped in a closure.
func NewProgramRenderer(send func(msg interface{}), buffer *DeltaBuffer) *ProgramRenderer {
	return &ProgramRenderer{send: send, buffer: buffer}
}

func (r *ProgramRenderer) UserTurn(text string) {
	r.send(UserTurnMsg{Text: text})
}

func (r *ProgramRenderer) BeginAssistantTurn(turnID string) {
	r.buffer.Reset()
	r.send(BeginTurnMsg{TurnID: turnID})
}

func (r *ProgramRenderer) AppendAnswer(turnID, text string) {
	// Buffered, not sent: FlushTickMsg pulls accumulated deltas into the
	// view at a capped frame rate.
	r.buffer.Write(turnID, text)
}

func (r *ProgramRenderer) ReplaceAnswer(turnID, text string) {
	r.buffer.Reset()
	r.send(ReplaceAnswerMsg{TurnID: turnID, Text: text})
}

func (r *ProgramRenderer) FinishAssistantTurn(turnID string) {
	r.send(FinishTurnMsg{TurnID: turnID})
}

func (r *ProgramRenderer) SetStatus(text string) {
	r.send(StatusMsg{Text: text})
}

func (r *ProgramRenderer) ShowSources(turnID string, sources []api.SourceMatch) {
	r.send(SourcesMsg{TurnID: turnID, Sources: sources})
}

func (r *ProgramRenderer) SourcesUnavailable(turnID, reason string) {
	r.send(SourcesMissingMsg{TurnID: turnID, Reason: reason})
}

func (r *ProgramRenderer) EnableFeedback(turnID string, messageID int64) {
	r.send(FeedbackReadyMsg{TurnID: turnID, MessageID: messageID})
}
