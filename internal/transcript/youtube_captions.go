package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
)

// YouTubeCaptionsProvider pulls platform-native captions. Free: cost is
// always 0 and Declined is common and expected.
type YouTubeCaptionsProvider struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
}

func NewYouTubeCaptionsProvider() *YouTubeCaptionsProvider {
	return &YouTubeCaptionsProvider{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
	}
}

func (p *YouTubeCaptionsProvider) Name() string { return ProviderYouTubeCaptions }

var videoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

func (p *YouTubeCaptionsProvider) Extract(ctx context.Context, req ExtractRequest) Outcome {
	videoID := strings.TrimSpace(req.SourceRef)
	if !videoIDRe.MatchString(videoID) {
		return FatalInput(fmt.Sprintf("source ref %q is not a video id", req.SourceRef))
	}

	if text, ok := p.viaTranscriptAPI(videoID); ok {
		return Success(text, nil, 0)
	}

	// The transcript API hides why it failed, so fall back to the raw
	// timedtext track where "no captions" and "fetch failed" are
	// distinguishable.
	segments, err := p.viaTimedText(ctx, videoID)
	if err != nil {
		if isNoCaptions(err) {
			return Declined("captions disabled or unavailable")
		}
		return TransientFailure(fmt.Sprintf("timedtext fetch failed: %v", err))
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
		b.WriteString(" ")
	}
	return Success(b.String(), segments, 0)
}

func (p *YouTubeCaptionsProvider) viaTranscriptAPI(videoID string) (string, bool) {
	transcript, err := p.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Retry without a language filter before giving up on the API.
		transcript, err = p.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return "", false
		}
	}

	if len(transcript.Entries) == 0 {
		return "", false
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	return cleaned, cleaned != ""
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

var errNoCaptionTrack = fmt.Errorf("no caption track on watch page")

func isNoCaptions(err error) bool {
	return strings.Contains(err.Error(), "no caption track")
}

func (p *YouTubeCaptionsProvider) viaTimedText(ctx context.Context, videoID string) ([]Segment, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch page: %w", err)
	}

	captionURL, err := extractCaptionURL(string(body))
	if err != nil {
		return nil, err
	}

	captionReq, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, err
	}

	captionResp, err := p.httpClient.Do(captionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	return parseCaptionsXML(captionBody)
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		re2 := regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
		matches = re2.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", errNoCaptionTrack
		}
	}

	tracksJSON := matches[1]
	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(tracksJSON)
	if len(urlMatches) < 2 {
		return "", errNoCaptionTrack
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) ([]Segment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}

	var segments []Segment
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, Segment{StartSec: start, DurSec: dur, Text: text})
	}

	if len(segments) == 0 {
		return nil, errNoCaptionTrack
	}

	return segments, nil
}
