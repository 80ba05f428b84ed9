package models

import (
	"time"

	"github.com/google/uuid"
)

// CostLedgerEntry is an append-only record of transcript-acquisition spend.
// Entries are never mutated or deleted; corrections are compensating
// entries.
type CostLedgerEntry struct {
	ID         uuid.UUID `json:"id"`
	VideoID    uuid.UUID `json:"video_id"`
	CreatorID  uuid.UUID `json:"creator_id"`
	MethodUsed string    `json:"method_used"`
	CostUSD    float64   `json:"cost_usd"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MethodCost is one row of a per-method spend breakdown.
type MethodCost struct {
	Method     string  `json:"method"`
	CostUSD    float64 `json:"cost_usd"`
	VideoCount int     `json:"video_count"`
}

// CostSummary aggregates a creator's ledger over a date range.
type CostSummary struct {
	CreatorID    uuid.UUID    `json:"creator_id"`
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	TotalCostUSD float64      `json:"total_cost_usd"`
	ByMethod     []MethodCost `json:"by_method"`
}

// EfficiencyReport compares actual spend against an all-paid baseline.
type EfficiencyReport struct {
	CreatorID          uuid.UUID `json:"creator_id"`
	TotalTranscripts   int       `json:"total_transcripts"`
	FreeTranscripts    int       `json:"free_transcripts"`
	PaidTranscripts    int       `json:"paid_transcripts"`
	FreeFraction       float64   `json:"free_fraction"`
	ActualCostUSD      float64   `json:"actual_cost_usd"`
	AllPaidBaselineUSD float64   `json:"all_paid_baseline_usd"`
	EstimatedSavedUSD  float64   `json:"estimated_saved_usd"`
}

// DailyRollup is one day's aggregated spend for a creator and method,
// produced by the scheduled rollup job.
type DailyRollup struct {
	RollupDate   time.Time `json:"rollup_date"`
	CreatorID    uuid.UUID `json:"creator_id"`
	MethodUsed   string    `json:"method_used"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	VideoCount   int       `json:"video_count"`
}
