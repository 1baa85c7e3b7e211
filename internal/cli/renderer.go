// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	session "github.com/buaa-rag/ragchat-tui/internal/chat"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	sourceStyle = lipgloss.NewStyle().
			Foreground(styles.SourceCardFg)
)

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// TerminalRenderer writes session events straight to stdout. Answer deltas
// print as they arrive; statuses and citations print as dim trailing lines.
// Satisfies the session controller's Renderer interface.
type TerminalRenderer struct {
	mu            sync.Mutex
	lastMessageID int64
	hasMessageID  bool
	printedHint   bool
}

func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{}
}

// LastMessageID returns the feedback target of the newest answer.
func (r *TerminalRenderer) LastMessageID() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMessageID, r.hasMessageID
}

func (r *TerminalRenderer) UserTurn(string) {
	// The question is already on screen; liner echoed it.
}

func (r *TerminalRenderer) BeginAssistantTurn(string) {
	r.mu.Lock()
	r.hasMessageID = false
	r.mu.Unlock()
	fmt.Println()
}

func (r *TerminalRenderer) AppendAnswer(_, text string) {
	fmt.Print(text)
}

func (r *TerminalRenderer) ReplaceAnswer(_, text string) {
	fmt.Print(text)
}

func (r *TerminalRenderer) FinishAssistantTurn(string) {
	fmt.Println()
}

func (r *TerminalRenderer) SetStatus(text string) {
	switch text {
	case session.StatusGenerating, session.StatusSwitching:
		// Transient; a scrolling terminal has nowhere to put these.
	case session.StatusComplete:
		fmt.Println(infoStyle.Render(text))
	default:
		fmt.Fprintln(os.Stderr, warningStyle.Render(text))
	}
}

func (r *TerminalRenderer) ShowSources(_ string, sources []api.SourceMatch) {
	fmt.Println(sourceStyle.Bold(true).Render("参考来源:"))
	for i, match := range sources {
		name := match.SourceFileName
		if name == "" {
			name = "未知来源"
		}
		fmt.Printf("  %d. %s  %s\n", i+1,
			sourceStyle.Render(name),
			infoStyle.Render("相关度 "+util.FormatScore(match.RelevanceScore)))
		fmt.Println("     " + infoStyle.Render(util.TruncateRunes(match.TextContent, util.ChatSnippetLen)))
	}
}

func (r *TerminalRenderer) SourcesUnavailable(_, reason string) {
	fmt.Println(infoStyle.Render(reason))
}

func (r *TerminalRenderer) EnableFeedback(_ string, messageID int64) {
	r.mu.Lock()
	r.lastMessageID = messageID
	r.hasMessageID = true
	first := !r.printedHint
	r.printedHint = true
	r.mu.Unlock()
	if first {
		fmt.Println(infoStyle.Render("(/good 有用  /bad 无用)"))
	}
}
