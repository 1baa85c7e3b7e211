// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// DELTA BUFFER
// =============================================================================

// DeltaBuffer batches answer fragments for flicker-free rendering. Fragments
// accumulate in the buffer and are flushed into the view at a capped frame
// rate instead of once per fragment.
//
// Thread-safety: writes happen on the session goroutine while flushes happen
// on the Bubble Tea loop, so all operations take the mutex.
type DeltaBuffer struct {
	mu        sync.Mutex
	buffer    strings.Builder
	turnID    string
	lastFlush time.Time
}

// NewDeltaBuffer creates an empty buffer.
func NewDeltaBuffer() *DeltaBuffer {
	return &DeltaBuffer{lastFlush: time.Now()}
}

// Write adds a fragment for the given turn. A fragment for a different turn
// than the buffered one drops the stale content first.
func (b *DeltaBuffer) Write(turnID, delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.turnID != turnID {
		b.buffer.Reset()
		b.turnID = turnID
	}
	b.buffer.WriteString(delta)
}

// Flush returns and clears the accumulated content.
func (b *DeltaBuffer) Flush() (turnID, content string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffer.Len() == 0 {
		return "", "", false
	}
	content = b.buffer.String()
	turnID = b.turnID
	b.buffer.Reset()
	b.lastFlush = time.Now()
	return turnID, content, true
}

// Reset discards buffered content. Used when a new question supersedes the
// turn being streamed.
func (b *DeltaBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.Reset()
	b.turnID = ""
}

// flushTickCmd drives buffer flushes at roughly 30fps while streaming.
func flushTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return FlushTickMsg{Time: t}
	})
}
