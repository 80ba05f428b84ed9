package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceFamily categorizes where a video lives and which transcript
// providers are eligible for it.
type SourceFamily string

const (
	SourceEmbedFree            SourceFamily = "embed_free"
	SourceEmbedOptionalCaption SourceFamily = "embed_optional_caption"
	SourceRawFile              SourceFamily = "raw_file"
)

// Video statuses. Mutated only by the pipeline orchestrator, except the
// initial pending/uploading states set by the import flow.
const (
	StatusPending      = "pending"
	StatusUploading    = "uploading"
	StatusTranscribing = "transcribing"
	StatusProcessing   = "processing"
	StatusEmbedding    = "embedding"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

type Video struct {
	ID              uuid.UUID    `json:"id"`
	CreatorID       uuid.UUID    `json:"creator_id"`
	SourceFamily    SourceFamily `json:"source_family"`
	SourceRef       string       `json:"source_ref"`
	Title           string       `json:"title"`
	DurationSeconds int          `json:"duration_seconds"`
	Status          string       `json:"status"`
	Transcript      *string      `json:"transcript,omitempty"`
	ErrorMessage    *string      `json:"error_message,omitempty"`
	CostUSDAccum    float64      `json:"cost_usd_accum"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TranscriptChunk is an overlapping, sentence-bounded slice of a video's
// transcript. Chunks for a video are replaced atomically as a set;
// sequence indexes are contiguous from 0.
type TranscriptChunk struct {
	ID            uuid.UUID `json:"id"`
	VideoID       uuid.UUID `json:"video_id"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	WordCount     int       `json:"word_count"`
	Embedding     []float32 `json:"embedding,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type RegisterVideoRequest struct {
	CreatorID       uuid.UUID    `json:"creator_id"`
	SourceFamily    SourceFamily `json:"source_family"`
	SourceRef       string       `json:"source_ref"`
	Title           string       `json:"title"`
	DurationSeconds int          `json:"duration_seconds"`
}
