package transcript

import (
	"context"
	"fmt"
	"log"
	"time"

	"vidbase-backend/internal/models"
)

// NoTranscriptError means every candidate provider was exhausted without
// success. PartialCostUSD is whatever the failed attempts billed (a paid
// invocation is billed even when the run ultimately fails).
type NoTranscriptError struct {
	VideoRef       string
	PartialCostUSD float64
	LastReason     string
}

func (e *NoTranscriptError) Error() string {
	return fmt.Sprintf("no transcript available for %s: %s", e.VideoRef, e.LastReason)
}

type registration struct {
	provider Provider
	attempts int
	backoff  time.Duration
}

// Router tries providers in the classifier's cost order and returns the
// first success, normalized. Construct it at startup with explicit
// registrations; there is no global provider list.
type Router struct {
	providers map[string]registration
	sleep     func(time.Duration)
}

func NewRouter() *Router {
	return &Router{
		providers: make(map[string]registration),
		sleep:     time.Sleep,
	}
}

// Register adds a provider with its retry policy. attempts is the total
// number of tries on transient failures, backoff the base delay doubled
// per retry.
func (r *Router) Register(p Provider, attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	r.providers[p.Name()] = registration{provider: p, attempts: attempts, backoff: backoff}
}

// Route resolves a transcript for the video, trying each eligible provider
// in order. Success short-circuits: cheaper-but-declined providers are
// never revisited and more expensive ones never invoked.
func (r *Router) Route(ctx context.Context, video *models.Video) (*Result, error) {
	names, err := CandidateProviders(video.SourceFamily)
	if err != nil {
		return nil, err
	}

	req := ExtractRequest{
		VideoID:         video.ID,
		CreatorID:       video.CreatorID,
		SourceFamily:    video.SourceFamily,
		SourceRef:       video.SourceRef,
		DurationSeconds: video.DurationSeconds,
	}

	var partialCost float64
	lastReason := "no providers eligible"

	for _, name := range names {
		reg, ok := r.providers[name]
		if !ok {
			return nil, fmt.Errorf("provider %q required for family %q is not registered", name, video.SourceFamily)
		}

	providerLoop:
		for attempt := 1; attempt <= reg.attempts; attempt++ {
			outcome := reg.provider.Extract(ctx, req)
			partialCost += outcome.CostUSD

			switch outcome.Kind {
			case KindSuccess:
				text := Normalize(outcome.Text)
				if text == "" {
					lastReason = fmt.Sprintf("%s returned empty transcript", name)
					break providerLoop
				}
				return &Result{
					Method:   name,
					Text:     text,
					Segments: outcome.Segments,
					CostUSD:  partialCost,
				}, nil

			case KindDeclined:
				log.Printf("transcript router: %s declined video %s: %s", name, video.ID, outcome.Reason)
				lastReason = outcome.Reason
				break providerLoop

			case KindFatalInput:
				log.Printf("transcript router: %s fatal input for video %s: %s", name, video.ID, outcome.Reason)
				lastReason = outcome.Reason
				break providerLoop

			case KindTransientFailure:
				lastReason = outcome.Reason
				if attempt < reg.attempts {
					delay := reg.backoff << uint(attempt-1)
					log.Printf("transcript router: %s transient failure for video %s (attempt %d/%d), retrying in %s: %s",
						name, video.ID, attempt, reg.attempts, delay, outcome.Reason)
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					default:
					}
					r.sleep(delay)
					continue
				}
				log.Printf("transcript router: %s exhausted %d attempts for video %s: %s",
					name, reg.attempts, video.ID, outcome.Reason)
			}
		}
	}

	return nil, &NoTranscriptError{
		VideoRef:       video.ID.String(),
		PartialCostUSD: partialCost,
		LastReason:     lastReason,
	}
}
