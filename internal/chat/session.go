// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the streaming chat session controller.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// =============================================================================
// STATUS STRINGS
// =============================================================================

// User-visible status strings. The backend and its corpus are Chinese, so
// the client keeps the server's language for the status line.
const (
	StatusGenerating  = "生成中..."
	StatusComplete    = "回答完成"
	StatusInterrupted = "连接中断"
	StatusSwitching   = "切换模式..."
	StatusServerError = "服务异常"
	StatusUnavailable = "服务不可用"
	StatusTimeout     = "回答超时，请稍后重试"

	// NoAnswerText fills the assistant bubble when the fallback response
	// carries no answer field.
	NoAnswerText = "无回答"

	// NoSourcesText and SourcesFailedText are citation-panel placeholders
	// for the streaming path. A fallback answer that carries no sources uses
	// the shorter FallbackNoSourcesText, matching the backend's own wording
	// for that case.
	NoSourcesText         = "暂无来源"
	SourcesFailedText     = "来源失败"
	FallbackNoSourcesText = "无来源"
)

// MaxSources is the maximum number of citations rendered per answer.
const MaxSources = 5

// DefaultFallbackTimeout bounds the non-streaming fallback call.
const DefaultFallbackTimeout = 60 * time.Second

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Transport is a live answer stream. At most one is open per controller.
type Transport interface {
	Events() <-chan api.Event
	Close()
}

// Backend combines the two ways of obtaining an answer: the event-routed
// push stream and the whole-result fallback call.
type Backend interface {
	OpenStream(ctx context.Context, message, userID string) Transport
	Chat(ctx context.Context, message, userID string) (*api.ChatData, error)
}

// Renderer owns the visual turn: the user bubble, the assistant bubble,
// the citation list, and the status line. It carries no session logic.
// All calls for one session arrive from a single goroutine.
type Renderer interface {
	// UserTurn echoes the submitted question immediately.
	UserTurn(text string)

	// BeginAssistantTurn creates a new assistant turn in streaming state.
	BeginAssistantTurn(turnID string)
	// AppendAnswer appends a content delta verbatim and keeps the view
	// scrolled to the newest content.
	AppendAnswer(turnID, text string)
	// ReplaceAnswer replaces the assistant turn's full text (fallback path).
	ReplaceAnswer(turnID, text string)
	// FinishAssistantTurn marks the turn no longer streaming.
	FinishAssistantTurn(turnID string)

	// SetStatus replaces the visible status line.
	SetStatus(text string)

	// ShowSources renders the citation list (already capped by the caller).
	ShowSources(turnID string, sources []api.SourceMatch)
	// SourcesUnavailable shows the empty/failed citation placeholder.
	SourcesUnavailable(turnID, reason string)

	// EnableFeedback makes the feedback controls usable for the turn.
	EnableFeedback(turnID string, messageID int64)
}

// backendAdapter lets *api.Client satisfy Backend (OpenStream returns the
// concrete *api.Stream type).
type backendAdapter struct {
	client *api.Client
}

func (b backendAdapter) OpenStream(ctx context.Context, message, userID string) Transport {
	return b.client.OpenStream(ctx, message, userID)
}

func (b backendAdapter) Chat(ctx context.Context, message, userID string) (*api.ChatData, error) {
	return b.client.Chat(ctx, message, userID)
}

// NewBackend wraps an api.Client as a controller Backend.
func NewBackend(client *api.Client) Backend {
	return backendAdapter{client: client}
}

// =============================================================================
// SESSION
// =============================================================================

// Session tracks one outstanding question. It accumulates the flags that
// disambiguate "stream failed" from "stream ended" and owns the single
// live transport handle.
type Session struct {
	// ID identifies the assistant turn this session renders into.
	ID string
	// Question is the submitted text.
	Question string

	transport Transport

	hasContent bool
	hasNotice  bool
	messageID  *int64
}

// MessageID returns the bound message identifier, or nil before binding.
func (s *Session) MessageID() *int64 {
	return s.messageID
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates streaming chat sessions against a Backend,
// rendering through a Renderer. Submitting a new question supersedes the
// previous session: its transport is closed before the new stream opens,
// so no two streams are ever live for the same widget.
type Controller struct {
	backend         Backend
	renderer        Renderer
	userID          string
	fallbackTimeout time.Duration

	mu     sync.Mutex
	active *Session
	// serial makes sessions observable in tests and lets callers wait for
	// the previous session's routing to drain.
	done chan struct{}
}

// NewController creates a controller for one chat widget.
func NewController(backend Backend, renderer Renderer, userID string) *Controller {
	return &Controller{
		backend:         backend,
		renderer:        renderer,
		userID:          userID,
		fallbackTimeout: DefaultFallbackTimeout,
	}
}

// SetFallbackTimeout overrides the fallback deadline (tests use a short one).
func (c *Controller) SetFallbackTimeout(d time.Duration) {
	if d > 0 {
		c.fallbackTimeout = d
	}
}

// Submit starts a new question-to-answer cycle. Empty or whitespace-only
// input is a silent no-op. The previous session, if still live, is closed
// synchronously before the new stream is opened.
func (c *Controller) Submit(ctx context.Context, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}

	// Optimistic echo: the user turn appears without server confirmation.
	c.renderer.UserTurn(question)

	sess := &Session{
		ID:       uuid.NewString(),
		Question: question,
	}

	c.mu.Lock()
	if c.active != nil && c.active.transport != nil {
		// Supersession: only the newest session's events matter. Closing
		// here guarantees the old handle routes nothing after this point.
		c.active.transport.Close()
	}
	c.active = sess
	done := make(chan struct{})
	c.done = done

	c.renderer.BeginAssistantTurn(sess.ID)
	c.renderer.SetStatus(StatusGenerating)

	sess.transport = c.backend.OpenStream(ctx, question, c.userID)
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.route(ctx, sess)
	}()
}

// Wait blocks until the most recently submitted session finishes routing.
// Intended for the plain REPL and for tests; the TUI never calls it.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Active returns the session currently owning the widget, or nil.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// isActive reports whether sess still owns the widget. Superseded sessions
// must not mutate UI state, even if the transport fires a late event.
func (c *Controller) isActive(sess *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active == sess
}

// clearActive releases the widget if sess still owns it.
func (c *Controller) clearActive(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == sess {
		c.active = nil
	}
}

// =============================================================================
// EVENT ROUTING
// =============================================================================

// route consumes stream events until a terminal event, then finalizes the
// turn or invokes the fallback path.
func (c *Controller) route(ctx context.Context, sess *Session) {
	for ev := range sess.transport.Events() {
		if !c.isActive(sess) {
			// Stale handle: a newer submission owns the widget.
			return
		}

		switch ev.Type {
		case api.EventContent:
			sess.hasContent = true
			c.renderer.AppendAnswer(sess.ID, ev.Text)

		case api.EventNotice:
			sess.hasNotice = true
			if ev.Text != "" {
				c.renderer.SetStatus(ev.Text)
			}

		case api.EventSources:
			c.showSources(sess, ev)

		case api.EventMessageID:
			c.bindMessageID(sess, ev.MessageID)

		case api.EventDone:
			c.renderer.FinishAssistantTurn(sess.ID)
			c.renderer.SetStatus(StatusComplete)
			sess.transport.Close()
			c.clearActive(sess)
			return

		case api.EventError:
			sess.transport.Close()
			if !sess.hasContent && !sess.hasNotice {
				// The stream never started meaningfully; retry without
				// streaming. The session stays active so a superseding
				// submission can still silence it.
				c.fallback(ctx, sess)
			} else {
				// Content-bearing stream interrupted mid-flight. Terminal;
				// no retry.
				c.renderer.FinishAssistantTurn(sess.ID)
				c.renderer.SetStatus(StatusInterrupted)
			}
			c.clearActive(sess)
			return
		}
	}
}

// showSources routes a citation event: malformed payloads and empty sets
// degrade to placeholders, valid sets render at most MaxSources items.
func (c *Controller) showSources(sess *Session, ev api.Event) {
	if ev.Err != nil {
		c.renderer.SourcesUnavailable(sess.ID, SourcesFailedText)
		return
	}
	if len(ev.Sources) == 0 {
		c.renderer.SourcesUnavailable(sess.ID, NoSourcesText)
		return
	}
	sources := ev.Sources
	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	c.renderer.ShowSources(sess.ID, sources)
}

// bindMessageID binds the identifier at most once per session. Receiving it
// again leaves feedback enabled and does not error.
func (c *Controller) bindMessageID(sess *Session, id int64) {
	if sess.messageID != nil {
		return
	}
	sess.messageID = &id
	c.renderer.EnableFeedback(sess.ID, id)
}

// =============================================================================
// FALLBACK PATH
// =============================================================================

// fallback issues the single non-streaming retry. Only reached when the
// stream produced zero observable output. The assistant turn is marked
// non-streaming on every exit path.
func (c *Controller) fallback(ctx context.Context, sess *Session) {
	defer func() {
		if c.isActive(sess) {
			c.renderer.FinishAssistantTurn(sess.ID)
		}
	}()

	if !c.isActive(sess) {
		return
	}
	c.renderer.SetStatus(StatusSwitching)

	callCtx, cancel := context.WithTimeout(ctx, c.fallbackTimeout)
	defer cancel()

	data, err := c.backend.Chat(callCtx, sess.Question, c.userID)
	if !c.isActive(sess) {
		// Superseded while the call was in flight; drop the result.
		return
	}

	switch {
	case err == nil:
		answer := data.Response
		if answer == "" {
			answer = NoAnswerText
		}
		c.renderer.ReplaceAnswer(sess.ID, answer)
		if len(data.Sources) == 0 {
			c.renderer.SourcesUnavailable(sess.ID, FallbackNoSourcesText)
		} else {
			c.showSources(sess, api.Event{Type: api.EventSources, Sources: data.Sources})
		}
		if data.MessageID != nil {
			c.bindMessageID(sess, *data.MessageID)
		}
		c.renderer.SetStatus(StatusComplete)

	case api.IsTimeout(err):
		// Timeout is reported distinctly from generic unavailability.
		c.renderer.ReplaceAnswer(sess.ID, StatusTimeout)
		c.renderer.SetStatus(StatusTimeout)

	case api.IsServerError(err):
		msg := api.ServerMessage(err)
		if msg == "" {
			msg = StatusServerError
		}
		c.renderer.ReplaceAnswer(sess.ID, msg)
		c.renderer.SetStatus(StatusServerError)

	default:
		c.renderer.ReplaceAnswer(sess.ID, StatusUnavailable)
		c.renderer.SetStatus(StatusUnavailable)
	}
}
