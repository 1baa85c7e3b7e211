// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal REPL, used when stdout is not a
// TTY capable of running the full-screen interface or when --plain is given.
// Questions stream to stdout as they generate; slash commands cover search,
// document management, upload, and feedback.
package cli
