// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The view renders the conversation, the citation cards under each answer,
// the status line, and the question input. Session events arrive as Bubble
// Tea messages through ProgramRenderer, which bridges the session
// controller's renderer callbacks onto the program's message loop.
package chat
