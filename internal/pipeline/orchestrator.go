// Package pipeline drives a video through transcription, chunking and
// embedding, advancing its status with compare-and-set transitions so
// that concurrent runs of the same video cannot both make progress.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"vidbase-backend/internal/chunker"
	"vidbase-backend/internal/embedding"
	"vidbase-backend/internal/models"
	"vidbase-backend/internal/repository"
	"vidbase-backend/internal/transcript"
)

type VideoStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to string, from ...string) error
	SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error
	AddCost(ctx context.Context, id uuid.UUID, amountUSD float64) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type ChunkStore interface {
	ReplaceForVideo(ctx context.Context, videoID uuid.UUID, chunks []models.TranscriptChunk) error
	ListMissingEmbedding(ctx context.Context, videoID uuid.UUID) ([]models.TranscriptChunk, error)
	SetEmbedding(ctx context.Context, chunkID uuid.UUID, vector []float32) error
}

type TranscriptRouter interface {
	Route(ctx context.Context, video *models.Video) (*transcript.Result, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Ledger interface {
	Append(ctx context.Context, e *models.CostLedgerEntry) error
}

// Publisher fans completion and failure events out to subscribers.
type Publisher interface {
	PublishCompletion(ctx context.Context, event models.CompletionEvent)
}

// Orchestrator owns the step sequence for one video. Each step commits
// its output before the status advances, so a crash between steps leaves
// the video resumable by a fresh run from the top.
type Orchestrator struct {
	videos    VideoStore
	chunks    ChunkStore
	router    TranscriptRouter
	embedder  Embedder
	ledger    Ledger
	publisher Publisher

	embedRetries int
	embedBackoff time.Duration
	sleep        func(time.Duration)
}

func NewOrchestrator(videos VideoStore, chunks ChunkStore, router TranscriptRouter, embedder Embedder, ledger Ledger, publisher Publisher) *Orchestrator {
	return &Orchestrator{
		videos:       videos,
		chunks:       chunks,
		router:       router,
		embedder:     embedder,
		ledger:       ledger,
		publisher:    publisher,
		embedRetries: 2,
		embedBackoff: 5 * time.Second,
		sleep:        time.Sleep,
	}
}

// Run executes the full pipeline for one video. It begins by moving the
// video into transcribing; if that compare-and-set loses (another worker
// already holds the video in a mid-pipeline state), Run backs off with
// repository.ErrStatusConflict and does no work.
func (o *Orchestrator) Run(ctx context.Context, videoID uuid.UUID) error {
	return o.run(ctx, videoID, EntryStates(models.StatusTranscribing))
}

// Reclaim runs the pipeline accepting any current status, including the
// mid-pipeline states a crashed worker leaves behind. Reprocess events
// take this path so a stranded video is recoverable; the caller must hold
// the per-video lock so a reclaim never races a live run.
func (o *Orchestrator) Reclaim(ctx context.Context, videoID uuid.UUID) error {
	return o.run(ctx, videoID, ReclaimStates())
}

func (o *Orchestrator) run(ctx context.Context, videoID uuid.UUID, entry []string) error {
	video, err := o.videos.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to load video %s: %w", videoID, err)
	}

	if err := o.videos.TransitionStatus(ctx, videoID, models.StatusTranscribing, entry...); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			log.Printf("Video %s already in flight (status %s), skipping", videoID, video.Status)
		}
		return err
	}

	result, err := o.transcribe(ctx, video)
	if err != nil {
		return o.fail(ctx, video, fmt.Errorf("transcription failed: %w", err))
	}

	if err := o.videos.TransitionStatus(ctx, videoID, models.StatusProcessing, models.StatusTranscribing); err != nil {
		return err
	}

	chunkCount, err := o.chunk(ctx, video, result.Text)
	if err != nil {
		return o.fail(ctx, video, fmt.Errorf("chunking failed: %w", err))
	}
	log.Printf("Video %s chunked into %d pieces via %s", videoID, chunkCount, result.Method)

	if err := o.videos.TransitionStatus(ctx, videoID, models.StatusEmbedding, models.StatusProcessing); err != nil {
		return err
	}

	if err := o.embed(ctx, videoID); err != nil {
		return o.fail(ctx, video, fmt.Errorf("embedding failed: %w", err))
	}

	if err := o.videos.TransitionStatus(ctx, videoID, models.StatusCompleted, models.StatusEmbedding); err != nil {
		return err
	}

	o.publishOutcome(ctx, videoID, video.CreatorID, models.StatusCompleted, nil)
	return nil
}

// transcribe routes the video to the cheapest capable transcript method,
// records the spend, and persists the transcript. Spend is recorded even
// when routing ultimately fails, because paid attempts bill regardless.
func (o *Orchestrator) transcribe(ctx context.Context, video *models.Video) (*transcript.Result, error) {
	result, err := o.router.Route(ctx, video)
	if err != nil {
		var noTranscript *transcript.NoTranscriptError
		if errors.As(err, &noTranscript) && noTranscript.PartialCostUSD > 0 {
			o.recordCost(ctx, video, transcript.ProviderSpeechToText, noTranscript.PartialCostUSD)
		}
		return nil, err
	}

	// Free acquisitions get a zero-cost ledger entry so the efficiency
	// report can count them.
	o.recordCost(ctx, video, result.Method, result.CostUSD)

	if err := o.videos.SetTranscript(ctx, video.ID, result.Text); err != nil {
		return nil, fmt.Errorf("failed to store transcript: %w", err)
	}
	return result, nil
}

func (o *Orchestrator) recordCost(ctx context.Context, video *models.Video, method string, costUSD float64) {
	entry := &models.CostLedgerEntry{
		VideoID:    video.ID,
		CreatorID:  video.CreatorID,
		MethodUsed: method,
		CostUSD:    costUSD,
	}
	if err := o.ledger.Append(ctx, entry); err != nil {
		log.Printf("Failed to append cost ledger entry for video %s: %v", video.ID, err)
	}
	if err := o.videos.AddCost(ctx, video.ID, costUSD); err != nil {
		log.Printf("Failed to accumulate cost on video %s: %v", video.ID, err)
	}
}

// chunk derives the chunk set from the stored transcript and replaces the
// video's chunks wholesale. The split is deterministic, so a retry after
// a crash rebuilds the identical set.
func (o *Orchestrator) chunk(ctx context.Context, video *models.Video, text string) (int, error) {
	pieces := chunker.Chunk(text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("transcript produced no chunks")
	}

	chunks := make([]models.TranscriptChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.TranscriptChunk{
			Text:      piece,
			WordCount: chunker.WordCount(piece),
		}
	}

	if err := o.chunks.ReplaceForVideo(ctx, video.ID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// embed vectorizes every chunk that still lacks an embedding. Vectors
// persist per batch, and each retry re-reads the missing set, so chunks
// embedded before a failure are never resubmitted.
func (o *Orchestrator) embed(ctx context.Context, videoID uuid.UUID) error {
	var lastErr error

	for attempt := 0; attempt <= o.embedRetries; attempt++ {
		if attempt > 0 {
			o.sleep(o.embedBackoff << (attempt - 1))
			log.Printf("Retrying embedding for video %s (attempt %d/%d)", videoID, attempt+1, o.embedRetries+1)
		}

		missing, err := o.chunks.ListMissingEmbedding(ctx, videoID)
		if err != nil {
			lastErr = err
			continue
		}
		if len(missing) == 0 {
			return nil
		}

		lastErr = o.embedBatches(ctx, missing)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func (o *Orchestrator) embedBatches(ctx context.Context, missing []models.TranscriptChunk) error {
	for begin := 0; begin < len(missing); begin += embedding.BatchSize {
		end := begin + embedding.BatchSize
		if end > len(missing) {
			end = len(missing)
		}

		texts := make([]string, end-begin)
		for i, c := range missing[begin:end] {
			texts[i] = c.Text
		}

		vectors, err := o.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}

		for i, vec := range vectors {
			if err := o.chunks.SetEmbedding(ctx, missing[begin+i].ID, vec); err != nil {
				return fmt.Errorf("failed to store embedding for chunk %s: %w", missing[begin+i].ID, err)
			}
		}
	}
	return nil
}

// fail records the step error on the video and emits a failure event.
// Failed videos stay put until a caller requests reprocessing; the
// pipeline never retries a failed video on its own.
func (o *Orchestrator) fail(ctx context.Context, video *models.Video, stepErr error) error {
	log.Printf("Pipeline failed for video %s: %v", video.ID, stepErr)

	if err := o.videos.MarkFailed(ctx, video.ID, stepErr.Error()); err != nil {
		log.Printf("Failed to mark video %s as failed: %v", video.ID, err)
	}

	msg := stepErr.Error()
	o.publishOutcome(ctx, video.ID, video.CreatorID, models.StatusFailed, &msg)
	return stepErr
}

func (o *Orchestrator) publishOutcome(ctx context.Context, videoID, creatorID uuid.UUID, status string, errMsg *string) {
	event := models.CompletionEvent{
		VideoID:      videoID,
		CreatorID:    creatorID,
		Status:       status,
		ErrorMessage: errMsg,
		OccurredAt:   time.Now().UTC(),
	}
	if fresh, err := o.videos.GetByID(ctx, videoID); err == nil {
		event.CostUSD = fresh.CostUSDAccum
	}
	o.publisher.PublishCompletion(ctx, event)
}
