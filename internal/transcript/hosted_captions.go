package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HostedCaptionsProvider fetches auto-generated captions from the embed
// host's captions endpoint for the optional-caption family. A 404 means
// the host never generated captions for this video, which is the designed
// trigger for falling through to paid transcription.
type HostedCaptionsProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHostedCaptionsProvider(baseURL string) *HostedCaptionsProvider {
	return &HostedCaptionsProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HostedCaptionsProvider) Name() string { return ProviderHostedCaptions }

func (p *HostedCaptionsProvider) Extract(ctx context.Context, req ExtractRequest) Outcome {
	ref := strings.TrimSpace(req.SourceRef)
	if ref == "" || strings.ContainsAny(ref, "/ ") {
		return FatalInput(fmt.Sprintf("source ref %q is not a hosted video id", req.SourceRef))
	}

	url := fmt.Sprintf("%s/videos/%s/captions.vtt", p.baseURL, ref)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FatalInput(fmt.Sprintf("building captions request: %v", err))
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return TransientFailure(fmt.Sprintf("captions fetch failed: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parsing
	case resp.StatusCode == http.StatusNotFound:
		return Declined("auto-captions not generated for this video")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return TransientFailure(fmt.Sprintf("captions endpoint returned %d", resp.StatusCode))
	default:
		return FatalInput(fmt.Sprintf("captions endpoint returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransientFailure(fmt.Sprintf("reading captions body: %v", err))
	}

	segments, err := parseWebVTT(string(body))
	if err != nil {
		return FatalInput(fmt.Sprintf("malformed captions: %v", err))
	}
	if len(segments) == 0 {
		return Declined("captions track is empty")
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
		b.WriteString(" ")
	}
	return Success(b.String(), segments, 0)
}

// parseWebVTT extracts cue text and timings from a WebVTT document.
// Styling blocks and cue settings are ignored.
func parseWebVTT(doc string) ([]Segment, error) {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	if len(lines) == 0 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "WEBVTT") {
		return nil, fmt.Errorf("missing WEBVTT header")
	}

	var segments []Segment
	i := 1
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			i++
			continue
		}

		parts := strings.SplitN(line, "-->", 2)
		start, err := parseVTTTimestamp(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, err
		}
		endField := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endField) == 0 {
			return nil, fmt.Errorf("cue missing end timestamp")
		}
		end, err := parseVTTTimestamp(endField[0])
		if err != nil {
			return nil, err
		}

		var text []string
		for i++; i < len(lines); i++ {
			cueLine := strings.TrimSpace(lines[i])
			if cueLine == "" {
				break
			}
			text = append(text, cueLine)
		}

		joined := strings.TrimSpace(strings.Join(text, " "))
		if joined != "" {
			segments = append(segments, Segment{
				StartSec: start,
				DurSec:   end - start,
				Text:     joined,
			})
		}
	}

	return segments, nil
}

func parseVTTTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	var total float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		total = total*60 + v
	}
	return total, nil
}
