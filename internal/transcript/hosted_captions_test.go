package transcript

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleVTT = `WEBVTT

00:00.000 --> 00:04.500
Welcome to the channel.

00:04.500 --> 00:09.000
Today we cover chunking.
`

func hostedExtract(t *testing.T, handler http.HandlerFunc, ref string) Outcome {
	t.Helper()
	server := httptest.NewServer(handler)
	defer server.Close()

	p := NewHostedCaptionsProvider(server.URL)
	return p.Extract(context.Background(), ExtractRequest{SourceRef: ref})
}

func TestHostedCaptions_Success(t *testing.T) {
	outcome := hostedExtract(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/vid123/captions.vtt" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(sampleVTT))
	}, "vid123")

	if outcome.Kind != KindSuccess {
		t.Fatalf("Expected success, got %s: %s", outcome.Kind, outcome.Reason)
	}
	if outcome.CostUSD != 0 {
		t.Errorf("Hosted captions are free, got cost %f", outcome.CostUSD)
	}
	if len(outcome.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(outcome.Segments))
	}
	if outcome.Segments[0].StartSec != 0 || math.Abs(outcome.Segments[0].DurSec-4.5) > 1e-9 {
		t.Errorf("Unexpected first segment timing: %+v", outcome.Segments[0])
	}
}

func TestHostedCaptions_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected OutcomeKind
	}{
		{"missing captions decline", http.StatusNotFound, KindDeclined},
		{"rate limit is transient", http.StatusTooManyRequests, KindTransientFailure},
		{"server error is transient", http.StatusBadGateway, KindTransientFailure},
		{"auth failure is fatal", http.StatusForbidden, KindFatalInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := hostedExtract(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}, "vid123")

			if outcome.Kind != tc.expected {
				t.Errorf("Status %d: expected %s, got %s", tc.status, tc.expected, outcome.Kind)
			}
		})
	}
}

func TestHostedCaptions_BadRef(t *testing.T) {
	p := NewHostedCaptionsProvider("http://captions.internal")
	outcome := p.Extract(context.Background(), ExtractRequest{SourceRef: "../etc/passwd"})
	if outcome.Kind != KindFatalInput {
		t.Errorf("Expected fatal input for path-like ref, got %s", outcome.Kind)
	}
}

func TestParseWebVTT(t *testing.T) {
	segments, err := parseWebVTT(sampleVTT)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[1].Text != "Today we cover chunking." {
		t.Errorf("Unexpected cue text: %q", segments[1].Text)
	}
}

func TestParseWebVTT_MissingHeader(t *testing.T) {
	if _, err := parseWebVTT("00:00.000 --> 00:01.000\nhi"); err == nil {
		t.Error("Expected error for missing WEBVTT header")
	}
}

func TestParseVTTTimestamp(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"00:04.500", 4.5, false},
		{"01:02:03.000", 3723, false},
		{"90.5", 0, true},
		{"aa:bb", 0, true},
	}

	for _, tc := range tests {
		got, err := parseVTTTimestamp(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseVTTTimestamp(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseVTTTimestamp(%q): unexpected error %v", tc.input, err)
			continue
		}
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("parseVTTTimestamp(%q): expected %f, got %f", tc.input, tc.expected, got)
		}
	}
}
