package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidbase-backend/internal/models"
)

type ChunkRepo struct {
	pool *pgxpool.Pool
}

func NewChunkRepo(pool *pgxpool.Pool) *ChunkRepo {
	return &ChunkRepo{pool: pool}
}

// ReplaceForVideo swaps the video's entire chunk set in one transaction.
// Chunk boundaries derive deterministically from the transcript, so
// delete-then-reinsert is safe under retry.
func (r *ChunkRepo) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, chunks []models.TranscriptChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin chunk replacement: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM transcript_chunks WHERE video_id = $1", videoID); err != nil {
		return fmt.Errorf("failed to delete existing chunks: %w", err)
	}

	for i := range chunks {
		chunks[i].ID = uuid.New()
		chunks[i].VideoID = videoID
		chunks[i].SequenceIndex = i

		_, err := tx.Exec(ctx,
			`INSERT INTO transcript_chunks (id, video_id, sequence_index, text, word_count)
				VALUES ($1, $2, $3, $4, $5)`,
			chunks[i].ID, videoID, i, chunks[i].Text, chunks[i].WordCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// ListMissingEmbedding returns the video's chunks that still need a
// vector, in sequence order. The embedding step re-checks this before
// every retry so already-embedded chunks are never resubmitted.
func (r *ChunkRepo) ListMissingEmbedding(ctx context.Context, videoID uuid.UUID) ([]models.TranscriptChunk, error) {
	return r.list(ctx,
		`SELECT id, video_id, sequence_index, text, word_count, embedding, created_at
			FROM transcript_chunks
			WHERE video_id = $1 AND embedding IS NULL
			ORDER BY sequence_index`, videoID)
}

func (r *ChunkRepo) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]models.TranscriptChunk, error) {
	return r.list(ctx,
		`SELECT id, video_id, sequence_index, text, word_count, embedding, created_at
			FROM transcript_chunks
			WHERE video_id = $1
			ORDER BY sequence_index`, videoID)
}

func (r *ChunkRepo) list(ctx context.Context, query string, videoID uuid.UUID) ([]models.TranscriptChunk, error) {
	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.TranscriptChunk
	for rows.Next() {
		var c models.TranscriptChunk
		if err := rows.Scan(&c.ID, &c.VideoID, &c.SequenceIndex, &c.Text, &c.WordCount, &c.Embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) SetEmbedding(ctx context.Context, chunkID uuid.UUID, vector []float32) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE transcript_chunks SET embedding = $1 WHERE id = $2",
		vector, chunkID,
	)
	return err
}
