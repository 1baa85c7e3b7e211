// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *fakeUploader) Upload(ctx context.Context, path, userID string, meta api.UploadMeta) (*api.UploadData, error) {
	u.mu.Lock()
	u.paths = append(u.paths, path)
	u.mu.Unlock()
	return &api.UploadData{FileName: filepath.Base(path)}, nil
}

func TestAccepted(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"report.pdf", true},
		{"report.DOCX", true},
		{"slides.pptx", true},
		{"notes.md", true},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Accepted(tt.path); got != tt.want {
			t.Errorf("Accepted(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherUploadsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	w, err := NewWatcher(uploader, dir, "tester", api.UploadMeta{Visibility: api.VisibilityPrivate})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "policy.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-w.Results():
		if res.Err != nil {
			t.Fatalf("upload failed: %v", res.Err)
		}
		if res.Path != path {
			t.Errorf("uploaded %q, want %q", res.Path, path)
		}
		if res.Data == nil || res.Data.FileName != "policy.pdf" {
			t.Errorf("result data = %+v", res.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dropped file never uploaded")
	}
}

func TestWatcherIgnoresUnacceptedFiles(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	w, err := NewWatcher(uploader, dir, "tester", api.UploadMeta{})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "archive.zip"), []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-w.Results():
		t.Fatalf("unaccepted file uploaded: %+v", res)
	case <-time.After(1200 * time.Millisecond):
	}
}
