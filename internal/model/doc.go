// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// This package defines the core domain types used throughout the application
// for representing a question-and-answer conversation.
//
// # Key Types
//
//   - Conversation: Ordered list of turns with lookup by turn ID
//   - Turn: Single conversation turn with role, content, citations, and
//     streaming state
//   - Role: Turn role enumeration (user, assistant, system)
//
// Assistant turns begin in streaming state, accumulate content deltas as
// they arrive, and are finalized when the answer completes or fails.
package model
