// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the RAG assistant backend.
//
// Two transports share the "obtain an answer" capability:
//
//   - Stream: a long-lived server-sent-event connection to
//     GET /api/chat/stream, decoded into typed Events.
//   - Client: single-shot request/response calls for the non-streaming
//     chat fallback, search, feedback, upload, and document management.
//
// The SSE transport deliberately does not distinguish ordinary stream
// closure from transport failure: both surface as a final EventError,
// mirroring the EventSource contract the backend was built against.
// Callers disambiguate using what they observed before the error.
package api
