package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidbase-backend/internal/models"
	"vidbase-backend/internal/transcript"
)

// CostLedgerRepo is append-only on the write side. There is deliberately
// no update or delete: corrections are compensating entries.
type CostLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewCostLedgerRepo(pool *pgxpool.Pool) *CostLedgerRepo {
	return &CostLedgerRepo{pool: pool}
}

func (r *CostLedgerRepo) Append(ctx context.Context, e *models.CostLedgerEntry) error {
	e.ID = uuid.New()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO cost_ledger (id, video_id, creator_id, method_used, cost_usd, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.VideoID, e.CreatorID, e.MethodUsed, e.CostUSD, e.OccurredAt,
	)
	return err
}

func (r *CostLedgerRepo) ListForVideo(ctx context.Context, videoID uuid.UUID) ([]models.CostLedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, video_id, creator_id, method_used, cost_usd, occurred_at
			FROM cost_ledger WHERE video_id = $1 ORDER BY occurred_at`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CostLedgerEntry
	for rows.Next() {
		var e models.CostLedgerEntry
		if err := rows.Scan(&e.ID, &e.VideoID, &e.CreatorID, &e.MethodUsed, &e.CostUSD, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *CostLedgerRepo) TotalForVideo(ctx context.Context, videoID uuid.UUID) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(cost_usd), 0) FROM cost_ledger WHERE video_id = $1", videoID,
	).Scan(&total)
	return total, err
}

// SummaryForCreator aggregates spend per method over a date range.
func (r *CostLedgerRepo) SummaryForCreator(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (*models.CostSummary, error) {
	summary := &models.CostSummary{CreatorID: creatorID, From: from, To: to}

	rows, err := r.pool.Query(ctx, `
		SELECT method_used, SUM(cost_usd), COUNT(DISTINCT video_id)
		FROM cost_ledger
		WHERE creator_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY method_used
		ORDER BY method_used`, creatorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var mc models.MethodCost
		if err := rows.Scan(&mc.Method, &mc.CostUSD, &mc.VideoCount); err != nil {
			return nil, err
		}
		summary.ByMethod = append(summary.ByMethod, mc)
		summary.TotalCostUSD += mc.CostUSD
	}
	return summary, rows.Err()
}

// EfficiencyForCreator reports the free-vs-paid split and estimated
// savings against an all-paid baseline priced at the speech-to-text rate.
// Each video is attributed to its most recent acquisition method: a video
// transcribed free and later reprocessed through paid transcription counts
// as paid, never as both.
func (r *CostLedgerRepo) EfficiencyForCreator(ctx context.Context, creatorID uuid.UUID) (*models.EfficiencyReport, error) {
	report := &models.EfficiencyReport{CreatorID: creatorID}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (video_id) method_used
		FROM cost_ledger
		WHERE creator_id = $1
		ORDER BY video_id, occurred_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []string
	for rows.Next() {
		var method string
		if err := rows.Scan(&method); err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	tallyTranscripts(report, methods)

	err = r.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(cost_usd), 0) FROM cost_ledger WHERE creator_id = $1", creatorID,
	).Scan(&report.ActualCostUSD)
	if err != nil {
		return nil, err
	}

	var totalDurationSec int
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(v.duration_seconds), 0)
		FROM videos v
		WHERE v.id IN (SELECT DISTINCT video_id FROM cost_ledger WHERE creator_id = $1)`, creatorID,
	).Scan(&totalDurationSec)
	if err != nil {
		return nil, err
	}

	report.AllPaidBaselineUSD = float64(totalDurationSec) / 60.0 * transcript.PerMinuteRateUSD
	report.EstimatedSavedUSD = report.AllPaidBaselineUSD - report.ActualCostUSD
	if report.EstimatedSavedUSD < 0 {
		report.EstimatedSavedUSD = 0
	}

	return report, nil
}

// tallyTranscripts classifies one method per video, so the free and paid
// counts partition the total.
func tallyTranscripts(report *models.EfficiencyReport, methods []string) {
	for _, method := range methods {
		report.TotalTranscripts++
		if method == transcript.ProviderSpeechToText {
			report.PaidTranscripts++
		} else {
			report.FreeTranscripts++
		}
	}
	if report.TotalTranscripts > 0 {
		report.FreeFraction = float64(report.FreeTranscripts) / float64(report.TotalTranscripts)
	}
}

// UpsertDailyRollups materializes one day's per-creator, per-method spend
// into cost_daily_rollups. Re-running a day overwrites that day's rows
// with freshly derived values; the ledger itself is never touched.
func (r *CostLedgerRepo) UpsertDailyRollups(ctx context.Context, day time.Time) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO cost_daily_rollups (rollup_date, creator_id, method_used, total_cost_usd, video_count)
		SELECT $1::date, creator_id, method_used, SUM(cost_usd), COUNT(DISTINCT video_id)
		FROM cost_ledger
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY creator_id, method_used
		ON CONFLICT (rollup_date, creator_id, method_used)
		DO UPDATE SET total_cost_usd = EXCLUDED.total_cost_usd, video_count = EXCLUDED.video_count`,
		dayStart, dayEnd)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
