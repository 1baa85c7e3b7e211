// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single turn in a conversation. Assistant turns start in
// streaming state and accumulate deltas until finalized.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	Content string `json:"content"`

	// Streaming state (not persisted). strings.Builder avoids quadratic
	// allocations while deltas arrive.
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Answer evidence, assistant turns only.
	Sources        []api.SourceMatch `json:"sources,omitempty"`
	SourcesMissing string            `json:"-"`

	// MessageID is the server-issued identifier that makes feedback
	// possible. Nil until the server sends one.
	MessageID *int64 `json:"messageId,omitempty"`

	// FeedbackScore is the judgment already submitted for this turn,
	// zero when none.
	FeedbackScore int `json:"-"`
}

// NewUserTurn creates a user turn with a generated ID.
func NewUserTurn(content string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantTurn creates an assistant turn in streaming state. The caller
// supplies the ID so the session controller and the view agree on identity.
func NewAssistantTurn(id string) *Turn {
	return &Turn{
		ID:          id,
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemTurn creates a system notice turn.
func NewSystemTurn(content string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// TURN METHODS
// =============================================================================

// AppendDelta appends a content fragment to a streaming turn.
func (t *Turn) AppendDelta(delta string) {
	if t.IsStreaming {
		t.streamContent.WriteString(delta)
	}
}

// Replace discards any streamed content and sets the full text. Used by the
// fallback path, which receives the answer whole.
func (t *Turn) Replace(content string) {
	t.streamContent.Reset()
	t.Content = content
}

// Finalize completes streaming, merging accumulated deltas into Content.
func (t *Turn) Finalize() {
	if !t.IsStreaming {
		return
	}
	if t.streamContent.Len() > 0 {
		t.Content = t.streamContent.String()
	}
	t.streamContent.Reset()
	t.IsStreaming = false
}

// DisplayContent returns the content to display (streaming or final).
func (t *Turn) DisplayContent() string {
	if t.IsStreaming && t.streamContent.Len() > 0 {
		return t.streamContent.String()
	}
	return t.Content
}

// IsEmpty returns true if the turn has no content.
func (t *Turn) IsEmpty() bool {
	return len(t.Content) == 0 && t.streamContent.Len() == 0
}

// BindMessageID records the server-issued identifier, first value wins.
func (t *Turn) BindMessageID(id int64) {
	if t.MessageID == nil {
		t.MessageID = &id
	}
}

// CanFeedback reports whether a judgment can be submitted for this turn.
func (t *Turn) CanFeedback() bool {
	return t.Role == RoleAssistant && t.MessageID != nil
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered list of turns with lookup by turn ID.
type Conversation struct {
	Turns []*Turn
	index map[string]*Turn
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{index: make(map[string]*Turn)}
}

// Add appends a turn.
func (c *Conversation) Add(t *Turn) {
	c.Turns = append(c.Turns, t)
	c.index[t.ID] = t
}

// Get returns the turn with the given ID, or nil.
func (c *Conversation) Get(id string) *Turn {
	return c.index[id]
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.Turns)
}
