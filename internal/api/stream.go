// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the RAG assistant backend.
//
// This file implements the server-sent-event transport for streaming chat.
// The decoder handles the SSE framing subset the backend emits: named
// events (notice, sources, messageId, done), default "message" events for
// content deltas, comment lines, and multi-line data fields.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// =============================================================================
// STREAM
// =============================================================================

// Stream is one live answer stream. Events are delivered in server order on
// the Events channel, which is closed after the terminal event (EventDone or
// EventError) or after Close.
//
// Close is idempotent and stops delivery promptly: once the stream's
// context is cancelled no further event is handed out. A receive already
// in flight when Close is called may still complete, so consumers that
// supersede a stream also gate on session identity.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the event channel for this stream.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close terminates event delivery. Safe to call multiple times.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
}

// OpenStream opens a long-lived connection to the streaming chat endpoint.
// The question and user identity are percent-encoded as query parameters.
//
// Connection failures are not returned here: like EventSource, they surface
// as an EventError on the stream, so the caller has a single error path.
func (c *Client) OpenStream(ctx context.Context, message, userID string) *Stream {
	params := url.Values{}
	params.Set("message", message)
	params.Set("userId", userID)
	target := c.config.BaseURL + "/api/chat/stream?" + params.Encode()

	streamCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event),
		cancel: cancel,
	}

	go s.run(streamCtx, target)
	return s
}

// run connects and pumps decoded events until a terminal event or Close.
func (s *Stream) run(ctx context.Context, target string) {
	defer close(s.events)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.deliver(ctx, Event{Type: EventError, Err: err})
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No client timeout: the stream is long-lived by design. Lifetime is
	// governed by the context, which Close cancels.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		s.deliver(ctx, Event{Type: EventError, Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.deliver(ctx, Event{Type: EventError, Err: errors.New("stream request failed: " + resp.Status)})
		return
	}

	dec := newEventDecoder(resp.Body)
	for {
		ev, err := dec.next()
		if err != nil {
			// Ordinary closure (EOF) and genuine failure are indistinguishable
			// here; both map to EventError and the consumer disambiguates.
			s.deliver(ctx, Event{Type: EventError, Err: err})
			return
		}
		if ev == nil {
			continue
		}
		if !s.deliver(ctx, *ev) {
			return
		}
		if ev.Type == EventDone {
			return
		}
	}
}

// deliver hands an event to the consumer unless the stream was closed.
// Returns false once delivery is no longer possible.
func (s *Stream) deliver(ctx context.Context, ev Event) bool {
	// Checked first: when the consumer is ready and the context is already
	// cancelled, select would pick either case at random.
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// =============================================================================
// SSE DECODER
// =============================================================================

// eventDecoder parses the text/event-stream framing into Events.
type eventDecoder struct {
	scanner *bufio.Scanner

	// Accumulated fields for the event being parsed.
	name string
	data []string
}

func newEventDecoder(r io.Reader) *eventDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventDecoder{scanner: sc}
}

// next returns the next decoded event, (nil, nil) for frames that carry
// nothing for the consumer, or an error when the connection ends.
func (d *eventDecoder) next() (*Event, error) {
	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		// Blank line dispatches the accumulated event.
		if line == "" {
			ev := d.dispatch()
			if ev != nil {
				return ev, nil
			}
			continue
		}

		// Comment lines keep the connection alive and carry no data.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			d.name = value
		case "data":
			d.data = append(d.data, value)
		case "id", "retry":
			// Not used by this backend.
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	// EOF: flush a final unterminated frame if the server omitted the
	// trailing blank line, then report closure.
	if ev := d.dispatch(); ev != nil {
		return ev, nil
	}
	return nil, errStreamClosed
}

var errStreamClosed = errors.New("stream closed")

// dispatch converts the accumulated frame into an Event and resets state.
// Returns nil for frames the consumer never sees (empty, unknown names,
// unparseable message ids).
func (d *eventDecoder) dispatch() *Event {
	name := d.name
	hasData := len(d.data) > 0
	payload := strings.Join(d.data, "\n")
	d.name = ""
	d.data = nil

	switch name {
	case "", "message":
		if !hasData {
			return nil
		}
		return &Event{Type: EventContent, Text: payload}
	case "notice":
		if !hasData || payload == "" {
			return nil
		}
		return &Event{Type: EventNotice, Text: payload}
	case "sources":
		var sources []SourceMatch
		if err := json.Unmarshal([]byte(payload), &sources); err != nil {
			// Malformed citations degrade to a placeholder downstream; the
			// session must not abort over a bad payload.
			return &Event{Type: EventSources, Err: err}
		}
		return &Event{Type: EventSources, Sources: sources}
	case "messageId":
		id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
		if err != nil {
			return nil
		}
		return &Event{Type: EventMessageID, MessageID: id}
	case "done":
		return &Event{Type: EventDone}
	default:
		return nil
	}
}

// splitField splits an SSE line into field name and value, stripping the
// single optional space after the colon.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return field, value
}
