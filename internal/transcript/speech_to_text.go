package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yt "github.com/kkdai/youtube/v2"

	"vidbase-backend/internal/models"
)

// PerMinuteRateUSD is the speech-to-text billing rate.
const PerMinuteRateUSD = 0.006

const maxAudioBytes = 100 * 1024 * 1024

// SpeechTranscriber is the remote STT call, satisfied by ai.GeminiService.
type SpeechTranscriber interface {
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// SpeechToTextProvider is the paid fallback of last resort. It never
// declines: any source with audio yields a transcript, and failures are
// transient or fatal-input, never "no transcript available". The
// transcription attempt is billed even when the pipeline later fails
// downstream.
type SpeechToTextProvider struct {
	transcriber SpeechTranscriber
	ytClient    *yt.Client
	storagePath string
}

func NewSpeechToTextProvider(transcriber SpeechTranscriber, storagePath string) *SpeechToTextProvider {
	return &SpeechToTextProvider{
		transcriber: transcriber,
		ytClient:    &yt.Client{},
		storagePath: storagePath,
	}
}

func (p *SpeechToTextProvider) Name() string { return ProviderSpeechToText }

func (p *SpeechToTextProvider) Extract(ctx context.Context, req ExtractRequest) Outcome {
	audio, mimeType, durationSec, err := p.fetchAudio(ctx, req)
	if err != nil {
		if fatal, reason := isFatalMedia(err); fatal {
			return FatalInput(reason)
		}
		return TransientFailure(fmt.Sprintf("audio fetch failed: %v", err))
	}

	if req.DurationSeconds > 0 {
		durationSec = req.DurationSeconds
	}
	cost := costForDuration(durationSec)

	text, err := p.transcriber.TranscribeAudio(ctx, audio, mimeType)
	if err != nil {
		// The upload was billed regardless of the result.
		return Outcome{
			Kind:    KindTransientFailure,
			CostUSD: cost,
			Reason:  fmt.Sprintf("speech-to-text failed: %v", err),
		}
	}

	return Success(text, nil, cost)
}

func costForDuration(durationSec int) float64 {
	minutes := float64(durationSec) / 60.0
	if minutes <= 0 {
		minutes = 1
	}
	return minutes * PerMinuteRateUSD
}

type fatalMediaError struct{ reason string }

func (e *fatalMediaError) Error() string { return e.reason }

func isFatalMedia(err error) (bool, string) {
	var fe *fatalMediaError
	if errors.As(err, &fe) {
		return true, fe.reason
	}
	return false, ""
}

func (p *SpeechToTextProvider) fetchAudio(ctx context.Context, req ExtractRequest) ([]byte, string, int, error) {
	switch req.SourceFamily {
	case models.SourceRawFile:
		return p.readStoredFile(req.SourceRef)
	case models.SourceEmbedFree, models.SourceEmbedOptionalCaption:
		return p.downloadEmbedAudio(ctx, req.SourceRef)
	default:
		return nil, "", 0, &fatalMediaError{reason: fmt.Sprintf("no audio source for family %q", req.SourceFamily)}
	}
}

func (p *SpeechToTextProvider) readStoredFile(ref string) ([]byte, string, int, error) {
	clean := filepath.Clean(ref)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, "", 0, &fatalMediaError{reason: fmt.Sprintf("storage ref %q escapes the upload root", ref)}
	}

	fullPath := filepath.Join(p.storagePath, clean)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", 0, &fatalMediaError{reason: fmt.Sprintf("uploaded file %s not found", clean)}
		}
		return nil, "", 0, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) > maxAudioBytes {
		return nil, "", 0, &fatalMediaError{reason: fmt.Sprintf("uploaded file exceeds %d MB limit", maxAudioBytes/(1024*1024))}
	}

	mimeType := "audio/mpeg"
	switch strings.ToLower(filepath.Ext(clean)) {
	case ".wav":
		mimeType = "audio/wav"
	case ".mp4":
		mimeType = "video/mp4"
	case ".m4a":
		mimeType = "audio/mp4"
	}

	return data, mimeType, 0, nil
}

// downloadEmbedAudio pulls the best audio-only stream for an embed-hosted
// video.
func (p *SpeechToTextProvider) downloadEmbedAudio(ctx context.Context, ref string) ([]byte, string, int, error) {
	video, err := p.ytClient.GetVideoContext(ctx, ref)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to fetch video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", 0, &fatalMediaError{reason: "no audio formats available"}
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := p.ytClient.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", 0, &fatalMediaError{reason: fmt.Sprintf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))}
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, int(video.Duration.Seconds()), nil
}
