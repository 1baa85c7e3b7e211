// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload implements the drop-directory watcher: files placed in a
// configured directory are uploaded to the backend automatically.
package upload

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// acceptedExts are the document types the backend can ingest.
var acceptedExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".txt":  true,
	".md":   true,
}

// Accepted reports whether the file's extension is an ingestible type.
func Accepted(path string) bool {
	return acceptedExts[strings.ToLower(filepath.Ext(path))]
}

// Uploader is the backend half of the watcher, satisfied by *api.Client.
type Uploader interface {
	Upload(ctx context.Context, path, userID string, meta api.UploadMeta) (*api.UploadData, error)
}

// Result reports the outcome of one automatic upload.
type Result struct {
	Path string
	Data *api.UploadData
	Err  error
}

// Watcher watches a drop directory and uploads new files. Writes are
// debounced so a file still being copied in is not uploaded half-written.
type Watcher struct {
	uploader Uploader
	userID   string
	meta     api.UploadMeta
	debounce time.Duration

	fs      *fsnotify.Watcher
	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher for the given drop directory.
func NewWatcher(uploader Uploader, dir, userID string, meta api.UploadMeta) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		uploader: uploader,
		userID:   userID,
		meta:     meta,
		debounce: 500 * time.Millisecond,
		fs:       fs,
		results:  make(chan Result, 16),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]time.Time),
	}

	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Results returns the channel of upload outcomes.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// processEvents queues accepted files as they appear or change.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !Accepted(ev.Name) {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = time.Now()
			w.mu.Unlock()

		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

// processPending uploads files once they have been quiet for the debounce
// window, so partially copied files are left alone until complete.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				w.upload(path)
			}
		}
	}
}

func (w *Watcher) upload(path string) {
	data, err := w.uploader.Upload(w.ctx, path, w.userID, w.meta)
	select {
	case w.results <- Result{Path: path, Data: data, Err: err}:
	case <-w.ctx.Done():
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.fs.Close()
}
