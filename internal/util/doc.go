// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across the application.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation, CJK counted as two columns
//
// Formatting:
//   - FormatScore: relevance score display with N/A handling
//   - FormatBytes: human-readable file sizes
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
