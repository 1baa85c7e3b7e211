// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docs implements client-side filtering of the uploaded document
// list. Filtering happens locally on the already-fetched list, so narrowing
// results costs no round trips.
package docs

import (
	"path/filepath"
	"strings"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// Filter narrows a document list. Zero value matches everything.
type Filter struct {
	// Name matches documents whose file name contains the substring,
	// case-insensitively.
	Name string
	// Visibility matches PRIVATE or PUBLIC exactly; empty matches both.
	Visibility string
	// Ext matches by extension group: "doc" covers .doc and .docx, "xls"
	// covers .xls and .xlsx, "ppt" covers .ppt and .pptx. Other values
	// match the extension literally (e.g. "pdf", "txt").
	Ext string
}

// extGroups maps a filter value to the set of extensions it covers.
var extGroups = map[string][]string{
	"doc": {".doc", ".docx"},
	"xls": {".xls", ".xlsx"},
	"ppt": {".ppt", ".pptx"},
}

// Apply returns the documents matching every set criterion, in input order.
func (f Filter) Apply(records []api.DocumentRecord) []api.DocumentRecord {
	if f.Name == "" && f.Visibility == "" && f.Ext == "" {
		return records
	}
	name := strings.ToLower(f.Name)
	var out []api.DocumentRecord
	for _, rec := range records {
		if name != "" && !strings.Contains(strings.ToLower(rec.OriginalFileName), name) {
			continue
		}
		if f.Visibility != "" && rec.Visibility != f.Visibility {
			continue
		}
		if f.Ext != "" && !matchesExt(rec.OriginalFileName, f.Ext) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// matchesExt reports whether the file name's extension falls in the group.
func matchesExt(fileName, group string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	if exts, ok := extGroups[strings.ToLower(group)]; ok {
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
	want := strings.ToLower(group)
	if !strings.HasPrefix(want, ".") {
		want = "." + want
	}
	return ext == want
}
