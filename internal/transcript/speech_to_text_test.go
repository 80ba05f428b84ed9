package transcript

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"vidbase-backend/internal/models"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f.text, f.err
}

func TestCostForDuration(t *testing.T) {
	tests := []struct {
		name        string
		durationSec int
		expected    float64
	}{
		{"ten minutes", 600, 0.06},
		{"one hour", 3600, 0.36},
		{"ninety seconds", 90, 0.009},
		{"unknown duration bills one minute minimum", 0, 0.006},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := costForDuration(tc.durationSec)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tc.expected, got)
			}
		})
	}
}

func TestSpeechToText_RawFileSuccess(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lecture.mp3"), []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewSpeechToTextProvider(&fakeTranscriber{text: "transcribed speech."}, dir)
	outcome := p.Extract(context.Background(), ExtractRequest{
		SourceFamily:    models.SourceRawFile,
		SourceRef:       "lecture.mp3",
		DurationSeconds: 600,
	})

	if outcome.Kind != KindSuccess {
		t.Fatalf("Expected success, got %s: %s", outcome.Kind, outcome.Reason)
	}
	if outcome.Text != "transcribed speech." {
		t.Errorf("Unexpected transcript: %q", outcome.Text)
	}
	if math.Abs(outcome.CostUSD-0.06) > 1e-9 {
		t.Errorf("Expected cost 0.06 for ten minutes, got %f", outcome.CostUSD)
	}
}

func TestSpeechToText_FailedAttemptStillBills(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lecture.mp3"), []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewSpeechToTextProvider(&fakeTranscriber{err: errors.New("model overloaded")}, dir)
	outcome := p.Extract(context.Background(), ExtractRequest{
		SourceFamily:    models.SourceRawFile,
		SourceRef:       "lecture.mp3",
		DurationSeconds: 600,
	})

	if outcome.Kind != KindTransientFailure {
		t.Fatalf("Expected transient failure, got %s", outcome.Kind)
	}
	if math.Abs(outcome.CostUSD-0.06) > 1e-9 {
		t.Errorf("Failed paid attempt must still bill 0.06, got %f", outcome.CostUSD)
	}
}

func TestSpeechToText_RefEscapesStorageRoot(t *testing.T) {
	p := NewSpeechToTextProvider(&fakeTranscriber{text: "x"}, t.TempDir())

	tests := []string{"../secrets.txt", "/etc/passwd", "a/../../b.mp3"}
	for _, ref := range tests {
		outcome := p.Extract(context.Background(), ExtractRequest{
			SourceFamily: models.SourceRawFile,
			SourceRef:    ref,
		})
		if outcome.Kind != KindFatalInput {
			t.Errorf("Ref %q: expected fatal input, got %s", ref, outcome.Kind)
		}
	}
}

func TestSpeechToText_MissingFileIsFatal(t *testing.T) {
	p := NewSpeechToTextProvider(&fakeTranscriber{text: "x"}, t.TempDir())
	outcome := p.Extract(context.Background(), ExtractRequest{
		SourceFamily: models.SourceRawFile,
		SourceRef:    "nope.mp3",
	})
	if outcome.Kind != KindFatalInput {
		t.Errorf("Expected fatal input for missing upload, got %s", outcome.Kind)
	}
}
