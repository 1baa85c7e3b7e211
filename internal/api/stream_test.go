// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer streams the given raw SSE body and then closes the connection.
func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

func collect(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
			if ev.Type == EventDone || ev.Type == EventError {
				return events
			}
		case <-timeout:
			t.Fatal("stream never terminated")
		}
	}
}

func TestStreamDecodesNamedEvents(t *testing.T) {
	srv := sseServer(t, ""+
		"data: 养老\n\n"+
		"event: message\ndata: 保险政策\n\n"+
		"event: notice\ndata: 正在检索\n\n"+
		"event: sources\ndata: [{\"sourceFileName\":\"政策.docx\",\"textContent\":\"条款\",\"relevanceScore\":0.9}]\n\n"+
		"event: messageId\ndata: 42\n\n"+
		"event: done\ndata: \n\n")
	defer srv.Close()

	client := newTestClient(srv.URL)
	s := client.OpenStream(context.Background(), "问题", "user_1")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 6)

	assert.Equal(t, EventContent, events[0].Type)
	assert.Equal(t, "养老", events[0].Text)
	assert.Equal(t, EventContent, events[1].Type)
	assert.Equal(t, "保险政策", events[1].Text)

	assert.Equal(t, EventNotice, events[2].Type)
	assert.Equal(t, "正在检索", events[2].Text)

	require.Equal(t, EventSources, events[3].Type)
	require.Len(t, events[3].Sources, 1)
	assert.Equal(t, "政策.docx", events[3].Sources[0].SourceFileName)

	assert.Equal(t, EventMessageID, events[4].Type)
	assert.Equal(t, int64(42), events[4].MessageID)

	assert.Equal(t, EventDone, events[5].Type)
}

func TestStreamCommentsAndUnknownEventsSkipped(t *testing.T) {
	srv := sseServer(t, ""+
		": keepalive\n\n"+
		"event: heartbeat\ndata: x\n\n"+
		"data: 内容\n\n"+
		"event: done\n\n")
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, EventContent, events[0].Type)
	assert.Equal(t, "内容", events[0].Text)
	assert.Equal(t, EventDone, events[1].Type)
}

func TestStreamMultiLineData(t *testing.T) {
	srv := sseServer(t, "data: 第一行\ndata: 第二行\n\nevent: done\n\n")
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, "第一行\n第二行", events[0].Text)
}

func TestStreamUnparseableMessageIDSkipped(t *testing.T) {
	srv := sseServer(t, "event: messageId\ndata: not-a-number\n\nevent: done\n\n")
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}

func TestStreamMalformedSourcesCarriesError(t *testing.T) {
	srv := sseServer(t, "event: sources\ndata: {not json\n\nevent: done\n\n")
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, EventSources, events[0].Type)
	assert.Error(t, events[0].Err)
	assert.Empty(t, events[0].Sources)
}

func TestStreamClosureSurfacesAsError(t *testing.T) {
	// Connection ends after content without a done event; the decoder cannot
	// tell closure from failure, so the consumer sees EventError.
	srv := sseServer(t, "data: 部分\n\n")
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, EventContent, events[0].Type)
	assert.Equal(t, EventError, events[1].Type)
	assert.Error(t, events[1].Err)
}

func TestStreamConnectionRefusedSurfacesAsError(t *testing.T) {
	s := newTestClient("http://127.0.0.1:1").OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestStreamNon200SurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")
	defer s.Close()

	events := collect(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestStreamCloseStopsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		w.Write([]byte("data: 首条\n\n"))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "q", "u")

	select {
	case ev := <-s.Events():
		require.Equal(t, EventContent, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("first event never arrived")
	}

	s.Close()
	s.Close() // idempotent

	// The channel must close without further deliverable events.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed after Close")
		}
	}
}

func TestDeliverRefusesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A ready receiver (buffered channel) must not win over an already
	// cancelled context.
	s := &Stream{events: make(chan Event, 1), cancel: cancel}
	require.False(t, s.deliver(ctx, Event{Type: EventContent, Text: "晚到"}))

	select {
	case ev := <-s.events:
		t.Fatalf("event %v handed out after cancellation", ev.Type)
	default:
	}
}

func TestStreamQueryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "社保&医保 政策?", q.Get("message"))
		assert.Equal(t, "user_1", q.Get("userId"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: done\n\n"))
	}))
	defer srv.Close()

	s := newTestClient(srv.URL).OpenStream(context.Background(), "社保&医保 政策?", "user_1")
	defer s.Close()
	collect(t, s)
}
