package transcript

import (
	"fmt"

	"vidbase-backend/internal/models"
)

// Provider names. Candidate lists are ordered by cost: free caption
// sources first, paid speech-to-text always last.
const (
	ProviderYouTubeCaptions = "youtube_captions"
	ProviderHostedCaptions  = "hosted_captions"
	ProviderSpeechToText    = "speech_to_text"
)

var candidatesByFamily = map[models.SourceFamily][]string{
	models.SourceEmbedFree:            {ProviderYouTubeCaptions, ProviderSpeechToText},
	models.SourceEmbedOptionalCaption: {ProviderHostedCaptions, ProviderSpeechToText},
	models.SourceRawFile:              {ProviderSpeechToText},
}

// UnknownFamilyError indicates a data bug, not an operating condition.
// It is never retried.
type UnknownFamilyError struct {
	Family models.SourceFamily
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unrecognized source family %q", e.Family)
}

// CandidateProviders returns the ordered provider names eligible for a
// source family. Pure lookup, no side effects.
func CandidateProviders(family models.SourceFamily) ([]string, error) {
	names, ok := candidatesByFamily[family]
	if !ok {
		return nil, &UnknownFamilyError{Family: family}
	}

	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}
