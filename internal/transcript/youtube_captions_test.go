package transcript

import (
	"context"
	"testing"
)

func TestYouTubeCaptions_RejectsMalformedID(t *testing.T) {
	p := NewYouTubeCaptionsProvider()

	tests := []string{"", "short", "way-too-long-to-be-an-id", "bad/slashes", "spaces here!"}
	for _, ref := range tests {
		outcome := p.Extract(context.Background(), ExtractRequest{SourceRef: ref})
		if outcome.Kind != KindFatalInput {
			t.Errorf("Ref %q: expected fatal input, got %s", ref, outcome.Kind)
		}
	}
}

func TestParseCaptionsXML(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.12" dur="3.4">Hello &amp; welcome</text>
  <text start="3.52" dur="2.0"></text>
  <text start="5.52" dur="4.1">to the show</text>
</transcript>`)

	segments, err := parseCaptionsXML(doc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("Expected 2 non-empty segments, got %d", len(segments))
	}
	if segments[0].Text != "Hello & welcome" {
		t.Errorf("Expected entities unescaped, got %q", segments[0].Text)
	}
	if segments[0].StartSec != 0.12 || segments[0].DurSec != 3.4 {
		t.Errorf("Unexpected timing: %+v", segments[0])
	}
}

func TestParseCaptionsXML_EmptyTrack(t *testing.T) {
	if _, err := parseCaptionsXML([]byte(`<transcript></transcript>`)); err == nil {
		t.Error("Expected error for empty caption track")
	}
}

func TestExtractCaptionURL(t *testing.T) {
	page := `{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https:\/\/www.youtube.com\/api\/timedtext?v=abc&lang=en","name":{"simpleText":"English"}}],"audioTracks":[]}},"`

	url, err := extractCaptionURL(page)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "https://www.youtube.com/api/timedtext?v=abc&lang=en"
	if url != expected {
		t.Errorf("Expected %q, got %q", expected, url)
	}
}

func TestExtractCaptionURL_NoTracks(t *testing.T) {
	if _, err := extractCaptionURL(`<html>no captions here</html>`); err == nil {
		t.Error("Expected error when page has no caption tracks")
	}
}
