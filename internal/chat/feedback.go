// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

// FeedbackSender is the backend half of feedback submission.
type FeedbackSender interface {
	Feedback(ctx context.Context, messageID int64, userID string, score int) error
}

// FeedbackSubmitter records per-answer judgments. Submission is
// fire-and-forget: failures never disturb the conversation, and a
// limiter absorbs rapid repeated clicks on the same control.
type FeedbackSubmitter struct {
	sender  FeedbackSender
	userID  string
	limiter *rate.Limiter
}

// NewFeedbackSubmitter creates a submitter allowing a small burst of
// judgments and then roughly one per second.
func NewFeedbackSubmitter(sender FeedbackSender, userID string) *FeedbackSubmitter {
	return &FeedbackSubmitter{
		sender:  sender,
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// Submit sends a judgment for the turn's answer. A session that never
// received a message identifier is silently skipped, as are submissions
// over the rate limit.
func (f *FeedbackSubmitter) Submit(ctx context.Context, sess *Session, positive bool) {
	if sess == nil || sess.messageID == nil {
		return
	}
	if !f.limiter.Allow() {
		return
	}
	score := api.ScoreNegative
	if positive {
		score = api.ScorePositive
	}
	// Errors are intentionally dropped; feedback must never interrupt
	// the conversation flow.
	_ = f.sender.Feedback(ctx, *sess.messageID, f.userID, score)
}

// SubmitID sends a judgment for an explicit message identifier. Used by
// views that track the identifier themselves rather than holding the
// session handle.
func (f *FeedbackSubmitter) SubmitID(ctx context.Context, messageID int64, positive bool) {
	if !f.limiter.Allow() {
		return
	}
	score := api.ScoreNegative
	if positive {
		score = api.ScorePositive
	}
	_ = f.sender.Feedback(ctx, messageID, f.userID, score)
}
