// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: baseURL})
}

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, "http://backend:9000", ResolveBaseURL("http://backend:9000/"))

	t.Setenv("RAGCHAT_BASE_URL", "http://env:8000/")
	assert.Equal(t, "http://env:8000", ResolveBaseURL(""))
	assert.Equal(t, "http://explicit:1234", ResolveBaseURL("http://explicit:1234"),
		"explicit value wins over environment")

	t.Setenv("RAGCHAT_BASE_URL", "")
	assert.Equal(t, "http://localhost:8000", ResolveBaseURL(""))
}

func TestChatSuccess(t *testing.T) {
	id := int64(321)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req struct {
			Message string `json:"message"`
			UserID  string `json:"userId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "什么是养老保险", req.Message)
		assert.Equal(t, "user_1", req.UserID)

		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{
				"response":  "养老保险是...",
				"sources":   []map[string]any{{"sourceFileName": "政策.docx", "textContent": "条款"}},
				"messageId": id,
			},
		})
	}))
	defer srv.Close()

	data, err := newTestClient(srv.URL).Chat(context.Background(), "什么是养老保险", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "养老保险是...", data.Response)
	require.Len(t, data.Sources, 1)
	assert.Equal(t, "政策.docx", data.Sources[0].SourceFileName)
	require.NotNil(t, data.MessageID)
	assert.Equal(t, id, *data.MessageID)
}

func TestChatServerErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 500, "message": "模型服务繁忙"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), "q", "u")
	require.Error(t, err)
	assert.True(t, IsServerError(err))
	assert.Equal(t, "模型服务繁忙", ServerMessage(err))
	assert.False(t, IsTimeout(err))
}

func TestChatTimeoutMapsToErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(srv.URL).Chat(ctx, "q", "u")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsUnavailable(err))
}

func TestChatUnreachable(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Chat(context.Background(), "q", "u")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFeedback(t *testing.T) {
	var got struct {
		MessageID int64  `json:"messageId"`
		UserID    string `json:"userId"`
		Score     int    `json:"score"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"code": 200})
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Feedback(context.Background(), 99, "user_1", ScorePositive)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.MessageID)
	assert.Equal(t, "user_1", got.UserID)
	assert.Equal(t, ScorePositive, got.Score)
}

func TestSearchBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "社保 缴费&比例", q.Get("query"), "query survives percent-encoding")
		assert.Equal(t, "6", q.Get("topK"))
		assert.Equal(t, "user_1", q.Get("userId"))
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": []map[string]any{{"sourceFileName": "a.pdf", "textContent": "内容", "relevanceScore": 0.91}},
		})
	}))
	defer srv.Close()

	matches, err := newTestClient(srv.URL).Search(context.Background(), "社保 缴费&比例", 6, "user_1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].RelevanceScore)
	assert.InDelta(t, 0.91, *matches[0].RelevanceScore, 1e-9)
}

func TestUploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "user_1", r.FormValue("userId"))
		assert.Equal(t, VisibilityPrivate, r.FormValue("visibility"))
		assert.Equal(t, "人事处", r.FormValue("department"))
		_, ok := r.MultipartForm.Value["docType"]
		assert.False(t, ok, "empty metadata fields omitted")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "policy.txt", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"fileName": "policy.txt", "message": "上传成功"},
		})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("正文"), 0644))

	data, err := newTestClient(srv.URL).Upload(context.Background(), path, "user_1", UploadMeta{
		Visibility: VisibilityPrivate,
		Department: "人事处",
	})
	require.NoError(t, err)
	assert.Equal(t, "policy.txt", data.FileName)
}

func TestUploadNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := newTestClient(srv.URL).Upload(context.Background(), path, "u", UploadMeta{})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "undecodable body reported as unavailability, not a crash")
}

func TestDocumentsAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/documents":
			assert.Equal(t, "user_1", r.URL.Query().Get("userId"))
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": []map[string]any{{
					"originalFileName": "政策.docx",
					"fileSizeBytes":    2048,
					"visibility":       VisibilityPublic,
					"md5Hash":          "abc123",
				}},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/documents/abc123":
			json.NewEncoder(w).Encode(map[string]any{"code": 200})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	records, err := client.Documents(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "政策.docx", records[0].OriginalFileName)
	assert.Equal(t, int64(2048), records[0].FileSizeBytes)

	require.NoError(t, client.DeleteDocument(context.Background(), "abc123", "user_1"))
}
