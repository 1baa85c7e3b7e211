// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the RAG assistant backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeInvalidResponse
	ErrTypeServer
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable = &ClientError{Type: ErrTypeUnavailable, Message: "service is unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// ServerError carries an application-level failure (code != 200). The server
// message, when present, is surfaced to the user verbatim.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "server returned code " + strconv.Itoa(e.Code)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsUnavailable checks if an error indicates the backend could not be
// reached or produced an unreadable response.
func IsUnavailable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnavailable || clientErr.Type == ErrTypeInvalidResponse
	}
	return errors.Is(err, ErrUnavailable)
}

// ServerMessage extracts the server-provided message from an application
// failure, or "" when the error is not a *ServerError or has no message.
func ServerMessage(err error) string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Message
	}
	return ""
}

// IsServerError reports whether err is an application-level failure.
func IsServerError(err error) bool {
	var srvErr *ServerError
	return errors.As(err, &srvErr)
}

// =============================================================================
// BASE URL RESOLUTION
// =============================================================================

// ResolveBaseURL picks the backend base address: an explicit value wins,
// then the RAGCHAT_BASE_URL environment variable, then the local default.
// Trailing slashes are trimmed so path joining stays predictable.
func ResolveBaseURL(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("RAGCHAT_BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8000"
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles the unary endpoints of the backend: non-streaming chat,
// feedback, search, upload, and document management.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = 60 * time.Second
	}
	if config.FallbackTimeout == 0 {
		config.FallbackTimeout = 60 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// CHAT (NON-STREAMING FALLBACK)
// =============================================================================

// Chat sends a non-streaming chat request and returns the complete answer.
// Used by the fallback path when a stream produced no observable output.
// The caller bounds the call with a context deadline; DeadlineExceeded maps
// to ErrTimeout so the timeout can be reported distinctly.
func (c *Client) Chat(ctx context.Context, message, userID string) (*ChatData, error) {
	reqBody := struct {
		Message string `json:"message"`
		UserID  string `json:"userId"`
	}{Message: message, UserID: userID}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	// No per-client timeout here: the caller's context carries the fallback
	// deadline, and the shared client timeout would race it.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	var result struct {
		Envelope
		Data *ChatData `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	if result.Code != 200 {
		return nil, &ServerError{Code: result.Code, Message: result.Message}
	}
	if result.Data == nil {
		result.Data = &ChatData{}
	}
	return result.Data, nil
}

// =============================================================================
// FEEDBACK
// =============================================================================

// Feedback records a user judgment for a generated answer.
func (c *Client) Feedback(ctx context.Context, messageID int64, userID string, score int) error {
	reqBody := struct {
		MessageID int64  `json:"messageId"`
		UserID    string `json:"userId"`
		Score     int    `json:"score"`
	}{MessageID: messageID, UserID: userID, Score: score}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/feedback", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrUnavailable
	}
	defer resp.Body.Close()

	var result Envelope
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Code != 200 {
		return &ServerError{Code: result.Code, Message: result.Message}
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search queries the document corpus directly and returns the top matches.
func (c *Client) Search(ctx context.Context, query string, topK int, userID string) ([]SourceMatch, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("topK", strconv.Itoa(topK))
	params.Set("userId", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	var result struct {
		Envelope
		Data []SourceMatch `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Code != 200 {
		return nil, &ServerError{Code: result.Code, Message: result.Message}
	}
	return result.Data, nil
}

// =============================================================================
// DOCUMENT MANAGEMENT
// =============================================================================

// Upload sends a document with optional metadata as a multipart form.
// The request is bounded by UploadTimeout; exceeding it yields ErrTimeout
// so the UI can report the timeout distinctly from a generic failure.
func (c *Client) Upload(ctx context.Context, path, userID string, meta UploadMeta) (*UploadData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to open file", Cause: err}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to read file", Cause: err}
	}

	fields := map[string]string{
		"userId":     userID,
		"visibility": meta.Visibility,
		"department": meta.Department,
		"docType":    meta.DocType,
		"policyYear": meta.PolicyYear,
		"tags":       meta.Tags,
	}
	for name, value := range fields {
		if name != "userId" && value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build form", Cause: err}
	}

	uploadCtx, cancel := context.WithTimeout(ctx, c.config.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPost, c.config.BaseURL+"/api/upload", &buf)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || uploadCtx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	// The server may answer with an empty or non-JSON body on proxy errors;
	// treat anything undecodable as unavailable rather than crashing the form.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrUnavailable
	}
	var result struct {
		Envelope
		Data *UploadData `json:"data"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &result) != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "upload failed: " + resp.Status}
	}
	if result.Code != 200 {
		return nil, &ServerError{Code: result.Code, Message: result.Message}
	}
	if result.Data == nil {
		result.Data = &UploadData{FileName: filepath.Base(path)}
	}
	return result.Data, nil
}

// Documents lists the documents uploaded by the given user.
func (c *Client) Documents(ctx context.Context, userID string) ([]DocumentRecord, error) {
	params := url.Values{}
	params.Set("userId", userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/documents?"+params.Encode(), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	var result struct {
		Envelope
		Data []DocumentRecord `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Code != 200 {
		return nil, &ServerError{Code: result.Code, Message: result.Message}
	}
	return result.Data, nil
}

// DeleteDocument removes an uploaded document, addressed by its MD5 hash.
func (c *Client) DeleteDocument(ctx context.Context, md5Hash, userID string) error {
	params := url.Values{}
	params.Set("userId", userID)

	target := c.config.BaseURL + "/api/documents/" + url.PathEscape(md5Hash) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrUnavailable
	}
	defer resp.Body.Close()

	var result Envelope
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Code != 200 {
		return &ServerError{Code: result.Code, Message: result.Message}
	}
	return nil
}
