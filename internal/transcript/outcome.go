package transcript

import (
	"context"

	"github.com/google/uuid"

	"vidbase-backend/internal/models"
)

// OutcomeKind is the closed set of results a provider extraction can have.
type OutcomeKind int

const (
	// KindSuccess carries a transcript.
	KindSuccess OutcomeKind = iota
	// KindDeclined means the source genuinely has no transcript via this
	// method (captions disabled, auto-captions not generated). Not an
	// error; the router moves to the next candidate.
	KindDeclined
	// KindTransientFailure covers network, rate-limit and timeout
	// conditions, retried per the provider's policy.
	KindTransientFailure
	// KindFatalInput covers malformed identifiers and unreachable
	// resources. Skipped without retry.
	KindFatalInput
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindDeclined:
		return "declined"
	case KindTransientFailure:
		return "transient_failure"
	case KindFatalInput:
		return "fatal_input"
	default:
		return "unknown"
	}
}

// Segment is a timestamped slice of transcript text. Providers that have
// no timing information leave Segments nil.
type Segment struct {
	StartSec float64 `json:"start_sec"`
	DurSec   float64 `json:"dur_sec"`
	Text     string  `json:"text"`
}

// Outcome is the result of one provider extraction attempt. CostUSD is
// whatever the attempt billed, including failed paid attempts.
type Outcome struct {
	Kind     OutcomeKind
	Text     string
	Segments []Segment
	CostUSD  float64
	Reason   string
}

func Success(text string, segments []Segment, costUSD float64) Outcome {
	return Outcome{Kind: KindSuccess, Text: text, Segments: segments, CostUSD: costUSD}
}

func Declined(reason string) Outcome {
	return Outcome{Kind: KindDeclined, Reason: reason}
}

func TransientFailure(reason string) Outcome {
	return Outcome{Kind: KindTransientFailure, Reason: reason}
}

func FatalInput(reason string) Outcome {
	return Outcome{Kind: KindFatalInput, Reason: reason}
}

// ExtractRequest identifies the video a provider should transcribe.
type ExtractRequest struct {
	VideoID         uuid.UUID
	CreatorID       uuid.UUID
	SourceFamily    models.SourceFamily
	SourceRef       string
	DurationSeconds int
}

// Provider is a single transcript-acquisition method.
type Provider interface {
	Name() string
	Extract(ctx context.Context, req ExtractRequest) Outcome
}

// Result is the router's normalized output, consumed immediately by the
// chunker and the cost ledger.
type Result struct {
	Method   string
	Text     string
	Segments []Segment
	CostUSD  float64
}
