// ragchat TUI - A terminal client for document-grounded Q&A.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/buaa-rag/ragchat-tui/internal/api"
	session "github.com/buaa-rag/ragchat-tui/internal/chat"
	"github.com/buaa-rag/ragchat-tui/internal/cli"
	"github.com/buaa-rag/ragchat-tui/internal/config"
	"github.com/buaa-rag/ragchat-tui/internal/ui"
	uichat "github.com/buaa-rag/ragchat-tui/internal/ui/chat"
	uidocs "github.com/buaa-rag/ragchat-tui/internal/ui/docs"
	uisearch "github.com/buaa-rag/ragchat-tui/internal/ui/search"
	"github.com/buaa-rag/ragchat-tui/internal/ui/styles"
	uiupload "github.com/buaa-rag/ragchat-tui/internal/ui/upload"
	"github.com/buaa-rag/ragchat-tui/internal/upload"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	plain := flag.Bool("plain", false, "run the line-mode REPL instead of the full-screen interface")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ragchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Persist a freshly generated user ID so the identity stays stable
	// across runs. Best effort; the session works either way.
	if path, pathErr := config.ConfigPath(); pathErr == nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			_ = config.SaveToPath(cfg, path)
		}
	}

	client := api.NewClientWithConfig(cfg.ClientConfig())

	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := cli.NewRepl(cfg, client).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(cfg, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI assembles and runs the full-screen interface.
func runTUI(cfg *config.Config, client *api.Client) error {
	theme := styles.NewTheme()
	buffer := uichat.NewDeltaBuffer()

	// The renderer needs the program to deliver messages, and the program
	// needs the model graph the renderer feeds. Bind through a pointer that
	// is set before Run starts pumping events.
	var program *tea.Program
	renderer := uichat.NewProgramRenderer(func(msg interface{}) {
		program.Send(msg)
	}, buffer)

	controller := session.NewController(session.NewBackend(client), renderer, cfg.User.ID)
	controller.SetFallbackTimeout(cfg.ClientConfig().FallbackTimeout)
	feedback := session.NewFeedbackSubmitter(client, cfg.User.ID)

	var watcher *upload.Watcher
	if cfg.Upload.DropDir != "" {
		w, err := upload.NewWatcher(client, cfg.Upload.DropDir, cfg.User.ID, cfg.UploadMeta())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: drop directory unavailable: %v\n", err)
		} else {
			watcher = w
			defer watcher.Close()
		}
	}

	app := ui.NewApp(theme,
		uichat.New(theme, controller, feedback, buffer),
		uisearch.New(theme, client, cfg.User.ID, cfg.Search.TopK),
		uidocs.New(theme, client, cfg.User.ID),
		uiupload.New(theme, client, cfg.User.ID, cfg.UploadMeta(), cfg.Upload.DropDir),
		watcher,
	)

	program = tea.NewProgram(app, tea.WithAltScreen())

	// Config edits take effect on restart; surface them in the transcript
	// so the notice survives the next status change.
	if path, err := config.ConfigPath(); err == nil {
		cw, err := config.Watch(path, func(*config.Config) {
			program.Send(uichat.SystemNoticeMsg{Text: "配置已更新，重启后生效"})
		}, func(error) {})
		if err == nil {
			defer cw.Close()
		}
	}

	_, err := program.Run()
	return err
}
