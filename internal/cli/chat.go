// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive REPL for the plain-terminal mode.
//
// Interactive commands:
//   /help, /h           Show available commands
//   /search QUERY       Search the document corpus directly
//   /docs               List uploaded documents
//   /delete N           Delete document N from the last /docs listing
//   /upload PATH        Upload a document
//   /good, /bad         Rate the newest answer
//   /quit, /q           Exit
//   Ctrl+D              Exit
//
// Anything else is sent as a question and the answer streams to stdout.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	session "github.com/buaa-rag/ragchat-tui/internal/chat"
	"github.com/buaa-rag/ragchat-tui/internal/config"
	"github.com/buaa-rag/ragchat-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// Repl is the plain-terminal session.
type Repl struct {
	cfg      *config.Config
	client   *api.Client
	renderer *TerminalRenderer

	controller *session.Controller
	feedback   *session.FeedbackSubmitter

	input    *ChatCLI
	lastDocs []api.DocumentRecord
}

// NewRepl wires a REPL over the given backend client.
func NewRepl(cfg *config.Config, client *api.Client) *Repl {
	renderer := NewTerminalRenderer()
	controller := session.NewController(session.NewBackend(client), renderer, cfg.User.ID)
	controller.SetFallbackTimeout(cfg.ClientConfig().FallbackTimeout)

	return &Repl{
		cfg:        cfg,
		client:     client,
		renderer:   renderer,
		controller: controller,
		feedback:   session.NewFeedbackSubmitter(client, cfg.User.ID),
		input:      NewChatCLI(),
	}
}

// Run drives the read-eval loop until /quit or Ctrl+D.
func (r *Repl) Run() error {
	defer r.input.Close()
	r.printWelcome()

	for {
		input, err := r.input.ReadInput(promptStyle.Render("❯ "))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(input); quit {
				return nil
			}
			continue
		}

		r.controller.Submit(context.Background(), input)
		// Block until the answer finishes; deltas print as they arrive.
		r.controller.Wait()
	}
}

func (r *Repl) printWelcome() {
	fmt.Println(welcomeStyle.Render("政策文档智能问答"))
	fmt.Println(infoStyle.Render("直接输入问题，回车发送。/help 查看命令。"))
	fmt.Println()
}

// handleCommand dispatches a slash command. Returns true to exit.
func (r *Repl) handleCommand(input string) bool {
	cmd, arg := input, ""
	if i := strings.IndexByte(input, ' '); i > 0 {
		cmd, arg = input[:i], strings.TrimSpace(input[i+1:])
	}

	switch cmd {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h":
		r.printHelp()
	case "/search":
		r.runSearch(arg)
	case "/docs":
		r.listDocs()
	case "/delete":
		r.deleteDoc(arg)
	case "/upload":
		r.uploadDoc(arg)
	case "/good":
		r.sendFeedback(true)
	case "/bad":
		r.sendFeedback(false)
	default:
		fmt.Println(warningStyle.Render("未知命令: " + cmd + "（/help 查看命令）"))
	}
	return false
}

func (r *Repl) printHelp() {
	rows := [][2]string{
		{"/search QUERY", "直接检索文档内容"},
		{"/docs", "列出已上传的文档"},
		{"/delete N", "删除 /docs 列表中的第 N 个文档"},
		{"/upload PATH", "上传文档"},
		{"/good /bad", "评价最近一条回答"},
		{"/quit", "退出"},
	}
	for _, row := range rows {
		fmt.Printf("  %-18s %s\n", commandStyle.Render(row[0]), row[1])
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func (r *Repl) runSearch(query string) {
	if query == "" {
		fmt.Println(warningStyle.Render("用法: /search 检索内容"))
		return
	}
	matches, err := r.client.Search(context.Background(), query, r.cfg.Search.TopK, r.cfg.User.ID)
	if err != nil {
		fmt.Println(errorStyle.Render(requestErrorText(err, "搜索失败")))
		return
	}
	if len(matches) == 0 {
		fmt.Println(infoStyle.Render("没有找到相关内容"))
		return
	}
	for i, match := range matches {
		name := match.SourceFileName
		if name == "" {
			name = "未知来源"
		}
		fmt.Printf("%d. %s  %s\n", i+1,
			sourceStyle.Render(name),
			infoStyle.Render("相关度 "+util.FormatScore(match.RelevanceScore)))
		fmt.Println("   " + infoStyle.Render(util.TruncateWidth(match.TextContent, util.SearchSnippetLen)))
	}
}

func (r *Repl) listDocs() {
	records, err := r.client.Documents(context.Background(), r.cfg.User.ID)
	if err != nil {
		fmt.Println(errorStyle.Render(requestErrorText(err, "文档列表加载失败")))
		return
	}
	r.lastDocs = records
	if len(records) == 0 {
		fmt.Println(infoStyle.Render("暂无文档"))
		return
	}
	for i, rec := range records {
		fmt.Printf("%2d. %s  %s  %s  %s\n", i+1,
			rec.OriginalFileName,
			infoStyle.Render(util.FormatBytes(rec.FileSizeBytes)),
			infoStyle.Render(rec.Visibility),
			infoStyle.Render(rec.UploadedAt))
	}
}

func (r *Repl) deleteDoc(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.lastDocs) {
		fmt.Println(warningStyle.Render("用法: /delete N（先运行 /docs）"))
		return
	}
	rec := r.lastDocs[n-1]
	if err := r.client.DeleteDocument(context.Background(), rec.MD5Hash, r.cfg.User.ID); err != nil {
		fmt.Println(errorStyle.Render(requestErrorText(err, "删除失败")))
		return
	}
	r.lastDocs = append(r.lastDocs[:n-1], r.lastDocs[n:]...)
	fmt.Println(commandStyle.Render("已删除: " + rec.OriginalFileName))
}

func (r *Repl) uploadDoc(path string) {
	if path == "" {
		fmt.Println(warningStyle.Render("用法: /upload 文件路径"))
		return
	}
	data, err := r.client.Upload(context.Background(), path, r.cfg.User.ID, r.cfg.UploadMeta())
	switch {
	case err == nil:
		message := "上传成功"
		if data != nil && data.Message != "" {
			message = data.Message
		}
		fmt.Println(commandStyle.Render("✓ " + message))
	case api.IsTimeout(err):
		fmt.Println(errorStyle.Render("上传超时，请重试"))
	default:
		fmt.Println(errorStyle.Render(requestErrorText(err, "上传失败")))
	}
}

func (r *Repl) sendFeedback(positive bool) {
	messageID, ok := r.renderer.LastMessageID()
	if !ok {
		fmt.Println(warningStyle.Render("当前没有可评价的回答"))
		return
	}
	r.feedback.SubmitID(context.Background(), messageID, positive)
	if positive {
		fmt.Println(infoStyle.Render("感谢您的反馈 👍"))
	} else {
		fmt.Println(infoStyle.Render("感谢您的反馈 👎"))
	}
}

// requestErrorText prefers the backend's own message when one exists.
func requestErrorText(err error, fallback string) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	if api.IsUnavailable(err) {
		return "服务不可用"
	}
	return fallback
}
