package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vidbase-backend/internal/models"
	"vidbase-backend/internal/pipeline"
	"vidbase-backend/internal/transcript"
)

// maxReprocessBatch bounds one bulk reprocess request.
const maxReprocessBatch = 100

type VideoStore interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
}

type ChunkStore interface {
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]models.TranscriptChunk, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, queue string, event models.PipelineEvent) error
}

type VideoHandler struct {
	videos VideoStore
	chunks ChunkStore
	queue  Enqueuer
}

func NewVideoHandler(videos VideoStore, chunks ChunkStore, queue Enqueuer) *VideoHandler {
	return &VideoHandler{
		videos: videos,
		chunks: chunks,
		queue:  queue,
	}
}

// Register creates a video record in pending status. Processing starts
// only when the caller hits the process endpoint, so uploads can finish
// first.
func (h *VideoHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.CreatorID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "creator_id is required", r))
		return
	}
	if req.SourceRef == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "source_ref is required", r))
		return
	}
	if req.DurationSeconds < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "duration_seconds must not be negative", r))
		return
	}
	if _, err := transcript.CandidateProviders(req.SourceFamily); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown source_family: "+string(req.SourceFamily), r))
		return
	}

	video := &models.Video{
		CreatorID:       req.CreatorID,
		SourceFamily:    req.SourceFamily,
		SourceRef:       req.SourceRef,
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
	}

	if err := h.videos.Create(r.Context(), video); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create video record", r))
		return
	}

	writeJSON(w, http.StatusCreated, video)
}

// Process queues the video for a pipeline run.
func (h *VideoHandler) Process(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	event := models.PipelineEvent{
		VideoID:   video.ID,
		CreatorID: video.CreatorID,
		Source:    video.SourceFamily,
		Reason:    "process",
	}
	if err := h.queue.Enqueue(r.Context(), pipeline.QueueProcess, event); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue video for processing", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"video_id": video.ID,
		"status":   "queued",
	})
}

// Reprocess queues a batch of videos for fresh pipeline runs. Each video
// is handled independently: an unknown ID yields its own outcome and
// never blocks the rest of the batch.
func (h *VideoHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	var req models.ReprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(req.VideoIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "video_ids must not be empty", r))
		return
	}
	if len(req.VideoIDs) > maxReprocessBatch {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Too many videos in one request", r))
		return
	}

	outcomes := make([]models.ReprocessOutcome, 0, len(req.VideoIDs))
	for _, id := range req.VideoIDs {
		outcome := models.ReprocessOutcome{VideoID: id}

		video, err := h.videos.GetByID(r.Context(), id)
		if errors.Is(err, pgx.ErrNoRows) {
			outcome.Status = "not_found"
			outcome.Error = "video does not exist"
			outcomes = append(outcomes, outcome)
			continue
		}
		if err != nil {
			outcome.Status = "error"
			outcome.Error = "failed to load video"
			outcomes = append(outcomes, outcome)
			continue
		}

		event := models.PipelineEvent{
			VideoID:   video.ID,
			CreatorID: video.CreatorID,
			Source:    video.SourceFamily,
			Reason:    req.Reason,
		}
		if err := h.queue.Enqueue(r.Context(), pipeline.QueueReprocess, event); err != nil {
			outcome.Status = "error"
			outcome.Error = "failed to queue video"
		} else {
			outcome.Status = "queued"
		}
		outcomes = append(outcomes, outcome)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"outcomes": outcomes,
	})
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	chunks, err := h.chunks.ListByVideo(r.Context(), video.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load chunks", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": video.ID,
		"status":   video.Status,
		"chunks":   chunks,
	})
}

func (h *VideoHandler) loadVideo(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return nil, false
	}

	video, err := h.videos.GetByID(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load video", r))
		return nil, false
	}

	return video, true
}
