// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the streaming chat session controller.
//
// The controller orchestrates one question-to-answer cycle: it opens a
// stream, routes typed events to a Renderer, decides whether a stream
// failed or merely completed, falls back to the non-streaming endpoint
// when a stream produced no observable output, and binds the
// server-issued message identifier that makes feedback possible.
//
// The package is UI-framework-free: the Renderer and Backend interfaces
// are satisfied by the Bubble Tea views, the plain REPL, and the fakes
// used in tests.
package chat
