package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vidbase-backend/internal/models"
	"vidbase-backend/internal/pipeline"
)

type fakeVideoStore struct {
	videos map[uuid.UUID]*models.Video
}

func (s *fakeVideoStore) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	v.Status = models.StatusPending
	s.videos[v.ID] = v
	return nil
}

func (s *fakeVideoStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return v, nil
}

type fakeChunkStore struct {
	chunks []models.TranscriptChunk
}

func (s *fakeChunkStore) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]models.TranscriptChunk, error) {
	return s.chunks, nil
}

type queuedEvent struct {
	queue string
	event models.PipelineEvent
}

type fakeQueue struct {
	queued  []queuedEvent
	failing bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, queue string, event models.PipelineEvent) error {
	if q.failing {
		return fmt.Errorf("redis unavailable")
	}
	q.queued = append(q.queued, queuedEvent{queue: queue, event: event})
	return nil
}

func newTestServer(store *fakeVideoStore, queue *fakeQueue) *chi.Mux {
	h := NewVideoHandler(store, &fakeChunkStore{}, queue)

	r := chi.NewRouter()
	r.Post("/videos", h.Register)
	r.Post("/videos/reprocess", h.Reprocess)
	r.Get("/videos/{id}", h.Get)
	r.Post("/videos/{id}/process", h.Process)
	r.Get("/videos/{id}/chunks", h.Chunks)
	return r
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
	}{
		{
			"valid free embed",
			map[string]interface{}{
				"creator_id":       uuid.New().String(),
				"source_family":    "embed_free",
				"source_ref":       "dQw4w9WgXcQ",
				"title":            "A video",
				"duration_seconds": 600,
			},
			http.StatusCreated,
		},
		{
			"unknown source family",
			map[string]interface{}{
				"creator_id":    uuid.New().String(),
				"source_family": "broadcast",
				"source_ref":    "ref",
			},
			http.StatusBadRequest,
		},
		{
			"missing creator",
			map[string]interface{}{
				"source_family": "embed_free",
				"source_ref":    "dQw4w9WgXcQ",
			},
			http.StatusBadRequest,
		},
		{
			"missing source ref",
			map[string]interface{}{
				"creator_id":    uuid.New().String(),
				"source_family": "raw_file",
			},
			http.StatusBadRequest,
		},
		{
			"negative duration",
			map[string]interface{}{
				"creator_id":       uuid.New().String(),
				"source_family":    "raw_file",
				"source_ref":       "uploads/a.mp4",
				"duration_seconds": -5,
			},
			http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(&fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}, &fakeQueue{})

			body, _ := json.Marshal(tc.body)
			req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tc.expectedStatus, rec.Code, rec.Body.String())
			}

			if tc.expectedStatus == http.StatusCreated {
				var video models.Video
				if err := json.Unmarshal(rec.Body.Bytes(), &video); err != nil {
					t.Fatalf("Invalid response body: %v", err)
				}
				if video.ID == uuid.Nil {
					t.Error("Expected assigned video ID")
				}
				if video.Status != models.StatusPending {
					t.Errorf("Expected pending status, got %s", video.Status)
				}
			}
		})
	}
}

func TestProcess_QueuesPipelineEvent(t *testing.T) {
	store := &fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}
	queue := &fakeQueue{}
	server := newTestServer(store, queue)

	video := &models.Video{CreatorID: uuid.New(), SourceFamily: models.SourceEmbedFree, SourceRef: "dQw4w9WgXcQ"}
	store.Create(context.Background(), video)

	req := httptest.NewRequest(http.MethodPost, "/videos/"+video.ID.String()+"/process", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.queued) != 1 {
		t.Fatalf("Expected 1 queued event, got %d", len(queue.queued))
	}
	if queue.queued[0].queue != pipeline.QueueProcess {
		t.Errorf("Expected queue %s, got %s", pipeline.QueueProcess, queue.queued[0].queue)
	}
	if queue.queued[0].event.VideoID != video.ID || queue.queued[0].event.CreatorID != video.CreatorID {
		t.Errorf("Queued event does not match video: %+v", queue.queued[0].event)
	}
}

func TestProcess_UnknownVideo(t *testing.T) {
	server := newTestServer(&fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodPost, "/videos/"+uuid.New().String()+"/process", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestReprocess_MixedOutcomes(t *testing.T) {
	store := &fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}
	queue := &fakeQueue{}
	server := newTestServer(store, queue)

	first := &models.Video{CreatorID: uuid.New(), SourceFamily: models.SourceEmbedFree, SourceRef: "dQw4w9WgXcQ"}
	second := &models.Video{CreatorID: uuid.New(), SourceFamily: models.SourceRawFile, SourceRef: "lectures/intro.mp3"}
	store.Create(context.Background(), first)
	store.Create(context.Background(), second)
	unknown := uuid.New()

	body, _ := json.Marshal(models.ReprocessRequest{
		VideoIDs: []uuid.UUID{first.ID, second.ID, unknown},
		Reason:   "chunker upgrade",
	})
	req := httptest.NewRequest(http.MethodPost, "/videos/reprocess", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Outcomes []models.ReprocessOutcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}

	if len(resp.Outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(resp.Outcomes))
	}
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		if resp.Outcomes[i].VideoID != id || resp.Outcomes[i].Status != "queued" {
			t.Errorf("Expected video %s queued, got %+v", id, resp.Outcomes[i])
		}
	}
	if resp.Outcomes[2].VideoID != unknown || resp.Outcomes[2].Status != "not_found" {
		t.Errorf("Expected unknown video not_found, got %+v", resp.Outcomes[2])
	}

	// Only the known videos reached the queue.
	if len(queue.queued) != 2 {
		t.Fatalf("Expected 2 queued events, got %d", len(queue.queued))
	}
	for _, q := range queue.queued {
		if q.queue != pipeline.QueueReprocess {
			t.Errorf("Expected event on %s, got %s", pipeline.QueueReprocess, q.queue)
		}
		if q.event.Reason != "chunker upgrade" {
			t.Errorf("Expected reason carried onto event, got %q", q.event.Reason)
		}
	}
}

func TestReprocess_EmptyBatch(t *testing.T) {
	server := newTestServer(&fakeVideoStore{videos: map[uuid.UUID]*models.Video{}}, &fakeQueue{})

	body, _ := json.Marshal(models.ReprocessRequest{})
	req := httptest.NewRequest(http.MethodPost, "/videos/reprocess", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
