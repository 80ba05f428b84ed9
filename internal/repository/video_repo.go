package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidbase-backend/internal/models"
)

// ErrStatusConflict means a compare-and-set status transition lost the
// race: another run already moved the video past the expected state.
var ErrStatusConflict = errors.New("video status changed concurrently")

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) Create(ctx context.Context, v *models.Video) error {
	v.ID = uuid.New()
	v.Status = models.StatusPending

	query := `INSERT INTO videos (id, creator_id, source_family, source_ref, title, duration_seconds, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.CreatorID, v.SourceFamily, v.SourceRef, v.Title, v.DurationSeconds, v.Status,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v := &models.Video{}
	query := `SELECT id, creator_id, source_family, source_ref, title, duration_seconds, status,
			transcript, error_message, cost_usd_accum, created_at, updated_at
		FROM videos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.CreatorID, &v.SourceFamily, &v.SourceRef, &v.Title, &v.DurationSeconds,
		&v.Status, &v.Transcript, &v.ErrorMessage, &v.CostUSDAccum, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// TransitionStatus is a compare-and-set: the update applies only while the
// video is still in one of the expected states. Every pipeline step
// advances status through here, which is what keeps two runs from
// progressing the same video concurrently.
func (r *VideoRepo) TransitionStatus(ctx context.Context, id uuid.UUID, to string, from ...string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2 AND status = ANY($3)",
		to, id, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SetTranscript overwrites the transcript wholesale and clears any stale
// error from a previous failed run.
func (r *VideoRepo) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET transcript = $1, error_message = NULL, updated_at = NOW() WHERE id = $2",
		transcript, id,
	)
	return err
}

// AddCost accumulates spend on the video row. The column only ever grows.
func (r *VideoRepo) AddCost(ctx context.Context, id uuid.UUID, amountUSD float64) error {
	if amountUSD <= 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET cost_usd_accum = cost_usd_accum + $1, updated_at = NOW() WHERE id = $2",
		amountUSD, id,
	)
	return err
}

func (r *VideoRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.StatusFailed, errMsg, id,
	)
	return err
}
