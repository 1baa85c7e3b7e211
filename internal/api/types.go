// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the RAG assistant backend.
package api

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// Envelope is the response wrapper used by every unary endpoint.
// Code 200 signals application-level success regardless of HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// SourceMatch is one retrieved document fragment offered as evidence for an
// answer. Received from the server and never mutated.
type SourceMatch struct {
	SourceFileName string   `json:"sourceFileName"`
	TextContent    string   `json:"textContent"`
	ChunkID        *int64   `json:"chunkId"`
	RelevanceScore *float64 `json:"relevanceScore"`
}

// ChatData is the payload of a successful non-streaming chat response.
type ChatData struct {
	Response  string        `json:"response"`
	Sources   []SourceMatch `json:"sources,omitempty"`
	MessageID *int64        `json:"messageId,omitempty"`
}

// UploadData is the payload of a successful upload response.
type UploadData struct {
	FileName string `json:"fileName"`
	Message  string `json:"message"`
}

// DocumentRecord describes one uploaded document as listed by the server.
type DocumentRecord struct {
	OriginalFileName string `json:"originalFileName"`
	FileSizeBytes    int64  `json:"fileSizeBytes"`
	UploadedAt       string `json:"uploadedAt"`
	Visibility       string `json:"visibility"`
	MD5Hash          string `json:"md5Hash"`
}

// Document visibility values.
const (
	VisibilityPrivate = "PRIVATE"
	VisibilityPublic  = "PUBLIC"
)

// Feedback scores. The backend stores a discrete judgment per message.
const (
	ScorePositive = 5
	ScoreNegative = 1
)

// UploadMeta carries the optional metadata form fields for an upload.
// Empty fields are omitted from the multipart body.
type UploadMeta struct {
	Visibility string
	Department string
	DocType    string
	PolicyYear string
	Tags       string
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType tags the variant of a stream Event.
type EventType int

const (
	// EventContent delivers a verbatim answer fragment (default SSE event).
	EventContent EventType = iota
	// EventNotice replaces the visible status line.
	EventNotice
	// EventSources delivers the citation set for the answer.
	EventSources
	// EventMessageID binds the server-issued message identifier.
	EventMessageID
	// EventDone signals successful stream completion.
	EventDone
	// EventError signals transport failure OR ordinary closure; the two are
	// indistinguishable at this level.
	EventError
)

// Event is one discrete unit pushed by the server during answer generation.
// Only the fields relevant to the Type are populated. For EventSources a
// non-nil Err means the citation payload was malformed; the session should
// degrade to a placeholder, not abort.
type Event struct {
	Type      EventType
	Text      string
	Sources   []SourceMatch
	MessageID int64
	Err       error
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base address (default: http://localhost:8000).
	BaseURL string

	// Timeout for ordinary unary requests (default: 30s).
	Timeout time.Duration

	// UploadTimeout bounds document uploads; the request is aborted when it
	// elapses and reported as a timeout, not a generic failure (default: 60s).
	UploadTimeout time.Duration

	// FallbackTimeout bounds the non-streaming chat fallback (default: 60s).
	FallbackTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         "http://localhost:8000",
		Timeout:         30 * time.Second,
		UploadTimeout:   60 * time.Second,
		FallbackTimeout: 60 * time.Second,
	}
}
