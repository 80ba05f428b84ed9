package models

import (
	"time"

	"github.com/google/uuid"
)

// PipelineEvent is the queue payload that starts one video's pipeline run.
// Deduplication key for a run is video_id + target status, enforced by the
// worker's per-video lock.
type PipelineEvent struct {
	VideoID   uuid.UUID    `json:"video_id"`
	CreatorID uuid.UUID    `json:"creator_id"`
	Source    SourceFamily `json:"source_family"`
	Reason    string       `json:"reason,omitempty"`
	Attempt   int          `json:"attempt"`
	QueuedAt  time.Time    `json:"queued_at"`
}

// ReprocessRequest fans out independent pipeline runs, each re-entering
// the state machine at transcribing.
type ReprocessRequest struct {
	VideoIDs []uuid.UUID `json:"video_ids"`
	Reason   string      `json:"reason"`
}

// ReprocessOutcome reports one video's result inside a bulk reprocess.
// Partial failure of the batch is expected; outcomes are never rolled back.
type ReprocessOutcome struct {
	VideoID uuid.UUID `json:"video_id"`
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
}

// CompletionEvent is published on redis pub/sub whenever a video reaches a
// terminal status, for downstream consumers (search indexing, notification).
type CompletionEvent struct {
	VideoID      uuid.UUID `json:"video_id"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CostUSD      float64   `json:"cost_usd"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// API error envelope.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
